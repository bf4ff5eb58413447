package services

import (
	"strings"
	"time"

	"questline/config"
	"questline/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type InviteService struct {
	db  *gorm.DB
	cfg *config.Config
}

func NewInviteService(db *gorm.DB, cfg *config.Config) *InviteService {
	return &InviteService{db: db, cfg: cfg}
}

func (s *InviteService) Create(p Principal, role models.Role) (*models.Invite, error) {
	if err := Authorize(p, ActionManageInvites); err != nil {
		return nil, err
	}
	switch role {
	case models.RoleManager, models.RoleUser:
	default:
		return nil, E(KindValidation, "invites may only grant the manager or user role")
	}

	code, err := models.GenerateInviteCode()
	if err != nil {
		return nil, storage(err, "failed to generate invite code")
	}

	invite := models.Invite{
		Code:      code,
		Role:      role,
		CreatedBy: p.UserID,
		ExpiresAt: time.Now().Add(s.cfg.InviteExpiration),
	}
	if err := s.db.Create(&invite).Error; err != nil {
		return nil, storage(err, "failed to create invite")
	}
	return &invite, nil
}

func (s *InviteService) List(p Principal) ([]models.Invite, error) {
	if err := Authorize(p, ActionManageInvites); err != nil {
		return nil, err
	}
	var invites []models.Invite
	err := s.db.Where("created_by = ?", p.UserID).
		Order("created_at desc").Find(&invites).Error
	if err != nil {
		return nil, storage(err, "failed to list invites")
	}
	return invites, nil
}

// Validate checks a code without consuming it, for the signup form.
func (s *InviteService) Validate(code string) (*models.Invite, error) {
	var invite models.Invite
	if err := s.db.Where("code = ?", code).First(&invite).Error; err != nil {
		return nil, translate(err, "", "invalid invite code")
	}
	if invite.Used {
		return nil, E(KindConflict, "invite has already been used")
	}
	if time.Now().After(invite.ExpiresAt) {
		return nil, E(KindExpired, "invite has expired")
	}
	return &invite, nil
}

// CompleteSignup creates the account and consumes the invite atomically.
// Consumption is a conditional used=false→true update: of two concurrent
// redemptions only the first commits, the loser gets a conflict.
func (s *InviteService) CompleteSignup(code, username, fullName, password string) (*models.User, error) {
	invite, err := s.Validate(code)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if len(username) < 3 {
		return nil, E(KindValidation, "username must be at least 3 characters")
	}
	if len(password) < 5 {
		return nil, E(KindValidation, "password must be at least 5 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, storage(err, "failed to hash password")
	}

	user := models.User{
		Username:     username,
		FullName:     fullName,
		PasswordHash: string(hashedPassword),
		Role:         invite.Role,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return translate(err, "username already exists", "")
		}
		res := tx.Model(&models.Invite{}).
			Where("code = ? AND used = ?", code, false).
			Updates(map[string]interface{}{"used": true, "used_by": user.ID})
		if res.Error != nil {
			return storage(res.Error, "failed to consume invite")
		}
		if res.RowsAffected == 0 {
			return E(KindConflict, "invite has already been used")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}
