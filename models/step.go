package models

import (
	"time"
)

// Step is an atomic unit of work inside a task, worth a fixed point reward.
// PointsReward is always a non-negative integer; unparseable input is
// normalized to 0 before it reaches storage.
type Step struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TaskID       uint      `gorm:"not null;index" json:"task_id"`
	Title        string    `gorm:"not null;size:200" json:"title"`
	Description  string    `gorm:"size:2000" json:"description"`
	PointsReward int       `gorm:"not null;default:0" json:"points_reward"`
}

func (Step) TableName() string {
	return "task_steps"
}
