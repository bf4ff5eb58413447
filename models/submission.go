package models

import (
	"time"
)

type SubmissionStatus string

const (
	// StatusNotStarted is never stored; it is the conceptual state of a
	// (step, user) pair with no submission row.
	StatusNotStarted SubmissionStatus = "NOT_STARTED"
	StatusPending    SubmissionStatus = "PENDING"
	StatusApproved   SubmissionStatus = "APPROVED"
	StatusRejected   SubmissionStatus = "REJECTED"
)

// Submission is a user's claim of having completed a step. At most one row
// exists per (step, user); resubmission after rejection reuses the row.
type Submission struct {
	ID          uint             `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	StepID      uint             `gorm:"not null;uniqueIndex:idx_submission_step_user" json:"step_id"`
	UserID      uint             `gorm:"not null;uniqueIndex:idx_submission_step_user" json:"user_id"`
	Status      SubmissionStatus `gorm:"not null;size:20" json:"status"`
	SubmittedAt time.Time        `gorm:"not null" json:"submitted_at"`
	ReviewedBy  *uint            `json:"reviewed_by"`
	ReviewedAt  *time.Time       `json:"reviewed_at"`
	Feedback    string           `gorm:"size:2000" json:"feedback"`
}

func (Submission) TableName() string {
	return "step_submissions"
}
