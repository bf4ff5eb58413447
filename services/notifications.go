package services

import (
	"fmt"

	"questline/models"

	"gorm.io/gorm"
)

// NotificationService produces and serves manager notifications. It is a
// pure side-effect consumer of submission events: nothing here ever feeds
// back into the submission or points state.
type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// NotifySubmission tells the task's manager that a step was submitted.
// Callers treat a failure here as log-and-continue, never as a reason to
// roll back the submission.
func (s *NotificationService) NotifySubmission(task *models.Task, step *models.Step, submitter *models.User, submissionID uint) error {
	n := models.Notification{
		ManagerID:    task.AssignedManagerID,
		TaskID:       task.ID,
		UserID:       submitter.ID,
		StepID:       step.ID,
		SubmissionID: submissionID,
		Type:         models.NotificationTypeStepSubmitted,
		Title:        "New step submission",
		Message:      fmt.Sprintf("%s submitted %q in task %q", submitter.DisplayName(), step.Title, task.Title),
	}
	if err := s.db.Create(&n).Error; err != nil {
		return storage(err, "failed to create notification")
	}
	return nil
}

func (s *NotificationService) UnreadCount(p Principal) (int64, error) {
	if err := Authorize(p, ActionReadNotifications); err != nil {
		return 0, err
	}
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("manager_id = ? AND is_read = ?", p.UserID, false).
		Count(&count).Error
	if err != nil {
		return 0, storage(err, "failed to count notifications")
	}
	return count, nil
}

func (s *NotificationService) List(p Principal, page, perPage int) ([]models.Notification, error) {
	if err := Authorize(p, ActionReadNotifications); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var notifications []models.Notification
	err := s.db.Where("manager_id = ?", p.UserID).
		Order("created_at desc").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&notifications).Error
	if err != nil {
		return nil, storage(err, "failed to list notifications")
	}
	return notifications, nil
}

func (s *NotificationService) MarkRead(p Principal, notificationID uint) error {
	if err := Authorize(p, ActionReadNotifications); err != nil {
		return err
	}
	res := s.db.Model(&models.Notification{}).
		Where("id = ? AND manager_id = ?", notificationID, p.UserID).
		Update("is_read", true)
	if res.Error != nil {
		return storage(res.Error, "failed to mark notification read")
	}
	if res.RowsAffected == 0 {
		return E(KindNotFound, "notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(p Principal) error {
	if err := Authorize(p, ActionReadNotifications); err != nil {
		return err
	}
	err := s.db.Model(&models.Notification{}).
		Where("manager_id = ? AND is_read = ?", p.UserID, false).
		Update("is_read", true).Error
	if err != nil {
		return storage(err, "failed to mark notifications read")
	}
	return nil
}

func (s *NotificationService) DeleteRead(p Principal) error {
	if err := Authorize(p, ActionReadNotifications); err != nil {
		return err
	}
	err := s.db.Where("manager_id = ? AND is_read = ?", p.UserID, true).
		Delete(&models.Notification{}).Error
	if err != nil {
		return storage(err, "failed to delete notifications")
	}
	return nil
}
