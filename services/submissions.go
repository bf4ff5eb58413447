package services

import (
	"errors"
	"log"
	"time"

	"questline/config"
	"questline/models"

	"gorm.io/gorm"
)

// SubmissionService governs the lifecycle of a (step, user) submission:
//
//	NOT_STARTED → PENDING → APPROVED | REJECTED, REJECTED → PENDING
//
// NOT_STARTED is the absence of a row; APPROVED is terminal. All review
// transitions are conditional updates guarded on the current status so a
// concurrent resubmission can never be approved or rejected stale.
type SubmissionService struct {
	db            *gorm.DB
	cfg           *config.Config
	points        *PointsService
	notifications *NotificationService
}

func NewSubmissionService(db *gorm.DB, cfg *config.Config, points *PointsService, notifications *NotificationService) *SubmissionService {
	return &SubmissionService{db: db, cfg: cfg, points: points, notifications: notifications}
}

// Submit creates a PENDING submission for the step, or moves a REJECTED one
// back to PENDING. Submitting an APPROVED step fails with InvalidState and a
// PENDING one with Conflict. Points are never touched here.
func (s *SubmissionService) Submit(p Principal, stepID uint) (*models.Submission, error) {
	if err := Authorize(p, ActionSubmitSteps); err != nil {
		return nil, err
	}

	var step models.Step
	if err := s.db.First(&step, stepID).Error; err != nil {
		return nil, translate(err, "", "step not found")
	}
	var task models.Task
	if err := s.db.First(&task, step.TaskID).Error; err != nil {
		return nil, translate(err, "", "task not found")
	}

	var enrolled int64
	if err := s.db.Model(&models.Enrollment{}).
		Where("task_id = ? AND user_id = ?", task.ID, p.UserID).
		Count(&enrolled).Error; err != nil {
		return nil, storage(err, "failed to check enrollment")
	}
	if enrolled == 0 {
		return nil, E(KindInvalidState, "join the task before submitting steps")
	}

	now := time.Now()

	var sub models.Submission
	err := s.db.Where("step_id = ? AND user_id = ?", stepID, p.UserID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		sub = models.Submission{
			StepID:      stepID,
			UserID:      p.UserID,
			Status:      models.StatusPending,
			SubmittedAt: now,
		}
		if err := s.db.Create(&sub).Error; err != nil {
			// A concurrent submit won the unique index on (step, user).
			return nil, translate(err, "submission already pending review", "step not found")
		}
		s.notifySubmit(&task, &step, p.UserID, sub.ID)
		return &sub, nil
	}
	if err != nil {
		return nil, storage(err, "failed to load submission")
	}

	switch sub.Status {
	case models.StatusApproved:
		return nil, E(KindInvalidState, "step already approved")
	case models.StatusPending:
		return nil, E(KindConflict, "submission already pending review")
	}

	// REJECTED → PENDING resubmission. The status guard protects against a
	// concurrent review of the same row.
	updates := map[string]interface{}{
		"status":       models.StatusPending,
		"submitted_at": now,
	}
	if !s.cfg.RetainReviewOnResubmit {
		updates["reviewed_by"] = nil
		updates["reviewed_at"] = nil
		updates["feedback"] = ""
	}
	res := s.db.Model(&models.Submission{}).
		Where("id = ? AND status = ?", sub.ID, models.StatusRejected).
		Updates(updates)
	if res.Error != nil {
		return nil, storage(res.Error, "failed to resubmit step")
	}
	if res.RowsAffected == 0 {
		return nil, E(KindConflict, "submission changed state, reload and retry")
	}

	// Reload into a fresh struct: scanning NULLed review columns into the
	// struct that still holds the old review would keep the stale pointers.
	var fresh models.Submission
	if err := s.db.First(&fresh, sub.ID).Error; err != nil {
		return nil, storage(err, "failed to reload submission")
	}
	s.notifySubmit(&task, &step, p.UserID, fresh.ID)
	return &fresh, nil
}

func (s *SubmissionService) notifySubmit(task *models.Task, step *models.Step, submitterID, submissionID uint) {
	var submitter models.User
	if err := s.db.First(&submitter, submitterID).Error; err != nil {
		log.Printf("notifications: could not load submitter %d: %v", submitterID, err)
		return
	}
	if err := s.notifications.NotifySubmission(task, step, &submitter, submissionID); err != nil {
		log.Printf("notifications: failed to notify manager %d about submission %d: %v",
			task.AssignedManagerID, submissionID, err)
	}
}

// Approve moves a PENDING submission to APPROVED and credits the step's
// points to the submitter, exactly once per submission. The status update and
// the credit commit atomically; if the row is no longer PENDING (already
// reviewed, or the user raced a resubmission in) the whole call fails with
// InvalidState and no points move.
func (s *SubmissionService) Approve(p Principal, submissionID uint, feedback string) (*models.Submission, error) {
	return s.review(p, submissionID, feedback, models.StatusApproved)
}

// Reject moves a PENDING submission to REJECTED. No point effect.
func (s *SubmissionService) Reject(p Principal, submissionID uint, feedback string) (*models.Submission, error) {
	return s.review(p, submissionID, feedback, models.StatusRejected)
}

func (s *SubmissionService) review(p Principal, submissionID uint, feedback string, verdict models.SubmissionStatus) (*models.Submission, error) {
	if err := Authorize(p, ActionReviewSubmissions); err != nil {
		return nil, err
	}

	var sub models.Submission
	if err := s.db.First(&sub, submissionID).Error; err != nil {
		return nil, translate(err, "", "submission not found")
	}
	var step models.Step
	if err := s.db.First(&step, sub.StepID).Error; err != nil {
		return nil, translate(err, "", "step not found")
	}
	var task models.Task
	if err := s.db.First(&task, step.TaskID).Error; err != nil {
		return nil, translate(err, "", "task not found")
	}
	if p.Role == models.RoleManager && task.AssignedManagerID != p.UserID {
		return nil, E(KindPermissionDenied, "task is assigned to another manager")
	}

	now := time.Now()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Submission{}).
			Where("id = ? AND status = ?", submissionID, models.StatusPending).
			Updates(map[string]interface{}{
				"status":      verdict,
				"reviewed_by": p.UserID,
				"reviewed_at": now,
				"feedback":    feedback,
			})
		if res.Error != nil {
			return storage(res.Error, "failed to update submission")
		}
		if res.RowsAffected == 0 {
			return E(KindInvalidState, "submission is not pending review")
		}
		if verdict == models.StatusApproved {
			return s.points.Credit(tx, sub.UserID, sub.StepID, step.PointsReward)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var fresh models.Submission
	if err := s.db.First(&fresh, submissionID).Error; err != nil {
		return nil, storage(err, "failed to reload submission")
	}
	return &fresh, nil
}
