package models

import (
	"time"
)

const NotificationTypeStepSubmitted = "STEP_SUBMITTED"

// Notification is addressed to a task's manager when a user submits a step.
// Purely informational; it never feeds back into the submission lifecycle.
type Notification struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	ManagerID    uint      `gorm:"not null;index" json:"manager_id"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	UserID       uint      `gorm:"not null;index" json:"user_id"`
	StepID       uint      `gorm:"not null" json:"step_id"`
	SubmissionID uint      `gorm:"not null" json:"submission_id"`
	Type         string    `gorm:"not null;size:50" json:"type"`
	Title        string    `gorm:"not null;size:200" json:"title"`
	Message      string    `gorm:"size:1000" json:"message"`
	IsRead       bool      `gorm:"not null;default:false" json:"is_read"`
}
