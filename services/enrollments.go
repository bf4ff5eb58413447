package services

import (
	"time"

	"questline/models"

	"gorm.io/gorm"
)

// EnrollmentService governs join/leave/rejoin for (task, user). Leaving is a
// hard reset: the user's submissions and ledger rows for the task are purged
// and the cached total drops by exactly what the task had earned them, so a
// rejoin starts every step from NOT_STARTED with no residue.
type EnrollmentService struct {
	db     *gorm.DB
	points *PointsService
}

func NewEnrollmentService(db *gorm.DB, points *PointsService) *EnrollmentService {
	return &EnrollmentService{db: db, points: points}
}

func (s *EnrollmentService) Join(p Principal, taskID uint) (*models.Enrollment, error) {
	if err := Authorize(p, ActionJoinTasks); err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return nil, translate(err, "", "task not found")
	}
	if !task.IsActive {
		return nil, E(KindInactive, "task is not active")
	}
	if task.Expired(time.Now()) {
		return nil, E(KindExpired, "task deadline has passed")
	}

	enrollment := models.Enrollment{
		TaskID:   taskID,
		UserID:   p.UserID,
		JoinedAt: time.Now(),
	}
	// The unique index on (task_id, user_id) is the authoritative guard;
	// a concurrent join resolves to one row and one conflict.
	if err := s.db.Create(&enrollment).Error; err != nil {
		return nil, translate(err, "already joined this task", "task not found")
	}
	return &enrollment, nil
}

func (s *EnrollmentService) Leave(p Principal, taskID uint) error {
	if err := Authorize(p, ActionJoinTasks); err != nil {
		return err
	}

	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return translate(err, "", "task not found")
	}

	var enrollment models.Enrollment
	err := s.db.Where("task_id = ? AND user_id = ?", taskID, p.UserID).First(&enrollment).Error
	if err != nil {
		return translate(err, "", "not enrolled in this task")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var stepIDs []uint
		if err := tx.Model(&models.Step{}).Where("task_id = ?", taskID).
			Pluck("id", &stepIDs).Error; err != nil {
			return storage(err, "failed to list task steps")
		}

		if _, err := s.points.RemoveStepEntries(tx, p.UserID, stepIDs); err != nil {
			return err
		}

		if len(stepIDs) > 0 {
			if err := tx.Where("user_id = ? AND step_id IN ?", p.UserID, stepIDs).
				Delete(&models.Submission{}).Error; err != nil {
				return storage(err, "failed to delete submissions")
			}
		}

		if err := tx.Where("task_id = ? AND user_id = ?", taskID, p.UserID).
			Delete(&models.Enrollment{}).Error; err != nil {
			return storage(err, "failed to delete enrollment")
		}
		return nil
	})
}
