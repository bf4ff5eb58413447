package models

import (
	"time"
)

// Enrollment records a user's active participation in a task. The composite
// unique index is the authoritative guard against duplicate joins.
type Enrollment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	TaskID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_task_user" json:"task_id"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_enrollment_task_user" json:"user_id"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	JoinedAt time.Time `gorm:"not null" json:"joined_at"`
}

func (Enrollment) TableName() string {
	return "task_enrollments"
}
