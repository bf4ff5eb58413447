package models

import (
	"time"
)

type Company struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	Name        string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description string    `gorm:"size:1000" json:"description"`
}

// UserCompany is a pure many-to-many association; neither side owns the other.
type UserCompany struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_company" json:"user_id"`
	CompanyID uint      `gorm:"not null;uniqueIndex:idx_user_company" json:"company_id"`
}

func (UserCompany) TableName() string {
	return "user_companies"
}
