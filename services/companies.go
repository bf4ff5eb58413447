package services

import (
	"strings"

	"questline/models"

	"gorm.io/gorm"
)

type CompanyService struct {
	db *gorm.DB
}

func NewCompanyService(db *gorm.DB) *CompanyService {
	return &CompanyService{db: db}
}

func (s *CompanyService) Create(p Principal, name, description string) (*models.Company, error) {
	if err := Authorize(p, ActionManageCompanies); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, E(KindValidation, "company name is required")
	}

	company := models.Company{Name: name, Description: description}
	if err := s.db.Create(&company).Error; err != nil {
		return nil, translate(err, "company name already exists", "")
	}
	return &company, nil
}

func (s *CompanyService) List(p Principal) ([]models.Company, error) {
	if err := Authorize(p, ActionManageCompanies); err != nil {
		return nil, err
	}
	var companies []models.Company
	if err := s.db.Order("name asc").Find(&companies).Error; err != nil {
		return nil, storage(err, "failed to list companies")
	}
	return companies, nil
}

func (s *CompanyService) AddMember(p Principal, companyID, userID uint) error {
	if err := Authorize(p, ActionManageCompanies); err != nil {
		return err
	}
	var company models.Company
	if err := s.db.First(&company, companyID).Error; err != nil {
		return translate(err, "", "company not found")
	}
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return translate(err, "", "user not found")
	}

	membership := models.UserCompany{UserID: userID, CompanyID: companyID}
	if err := s.db.Create(&membership).Error; err != nil {
		return translate(err, "user is already a member of this company", "")
	}
	return nil
}

func (s *CompanyService) RemoveMember(p Principal, companyID, userID uint) error {
	if err := Authorize(p, ActionManageCompanies); err != nil {
		return err
	}
	res := s.db.Where("company_id = ? AND user_id = ?", companyID, userID).
		Delete(&models.UserCompany{})
	if res.Error != nil {
		return storage(res.Error, "failed to remove member")
	}
	if res.RowsAffected == 0 {
		return E(KindNotFound, "membership not found")
	}
	return nil
}

func (s *CompanyService) ListMembers(p Principal, companyID uint) ([]models.User, error) {
	if err := Authorize(p, ActionManageCompanies); err != nil {
		return nil, err
	}
	var company models.Company
	if err := s.db.First(&company, companyID).Error; err != nil {
		return nil, translate(err, "", "company not found")
	}

	var users []models.User
	err := s.db.Joins("JOIN user_companies ON user_companies.user_id = users.id").
		Where("user_companies.company_id = ?", companyID).
		Order("users.username asc").
		Find(&users).Error
	if err != nil {
		return nil, storage(err, "failed to list members")
	}
	return users, nil
}
