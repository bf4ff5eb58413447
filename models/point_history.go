package models

import (
	"time"
)

// PointHistory is the append-only ledger of point-earning events. The sum of
// a user's entries must always equal users.total_points. The unique index on
// (user_id, step_id) makes double-crediting a step structurally impossible;
// StepID is nil for manual adjustments, which the index does not restrict.
type PointHistory struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;index;uniqueIndex:idx_ledger_user_step" json:"user_id"`
	StepID       *uint     `gorm:"uniqueIndex:idx_ledger_user_step" json:"step_id"`
	PointsEarned int       `gorm:"not null" json:"points_earned"`
	Reason       string    `gorm:"size:200" json:"reason"`
	EarnedAt     time.Time `gorm:"not null" json:"earned_at"`
}

func (PointHistory) TableName() string {
	return "user_point_history"
}
