package models

import (
	"time"
)

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleUser    Role = "USER"
)

// User holds a cached TotalPoints aggregate: it must equal the sum of the
// user's rows in user_point_history after every settled operation.
type User struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
	Username           string    `gorm:"uniqueIndex;not null;size:100" json:"username"`
	FullName           string    `gorm:"size:200" json:"full_name"`
	PasswordHash       string    `gorm:"not null" json:"-"`
	Role               Role      `gorm:"not null;size:20" json:"role"`
	TotalPoints        int       `gorm:"not null;default:0" json:"total_points"`
	MustChangePassword bool      `gorm:"default:false" json:"must_change_password"`
}

func (u *User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role == RoleManager
}
