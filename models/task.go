package models

import (
	"time"
)

type Task struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Title             string     `gorm:"not null;size:200" json:"title"`
	Description       string     `gorm:"size:2000" json:"description"`
	CreatedBy         uint       `gorm:"not null;index" json:"created_by"`
	AssignedManagerID uint       `gorm:"not null;index" json:"assigned_manager_id"`
	AssignedManager   *User      `gorm:"foreignKey:AssignedManagerID" json:"assigned_manager,omitempty"`
	CompanyID         *uint      `gorm:"index" json:"company_id"`
	Company           *Company   `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
	Deadline          *time.Time `json:"deadline"`
	Level             int        `gorm:"not null;default:1" json:"level"`
	IsActive          bool       `gorm:"not null;default:true" json:"is_active"`
	Steps             []Step     `gorm:"foreignKey:TaskID" json:"steps,omitempty"`
}

func (t *Task) Expired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}
