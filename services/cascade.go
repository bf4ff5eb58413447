package services

import (
	"questline/models"

	"gorm.io/gorm"
)

// CascadeService owns every multi-entity delete. Children always go before
// parents, point reversal derives from the surviving ledger rows, and every
// path is re-runnable: a retry after a crash converges on the fully-deleted
// state instead of double-deducting or leaving orphans. Store-level cascade
// is deliberately not relied on.
type CascadeService struct {
	db     *gorm.DB
	points *PointsService
}

func NewCascadeService(db *gorm.DB, points *PointsService) *CascadeService {
	return &CascadeService{db: db, points: points}
}

// DeleteTask removes a task and everything hanging off it: for every user
// who earned points under the task the credits are reversed, then
// submissions, steps, enrollments, related notifications and finally the
// task row are deleted, all in one transaction.
func (s *CascadeService) DeleteTask(p Principal, taskID uint) error {
	if err := Authorize(p, ActionManageTasks); err != nil {
		return err
	}

	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return translate(err, "", "task not found")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var stepIDs []uint
		if err := tx.Model(&models.Step{}).Where("task_id = ?", taskID).
			Pluck("id", &stepIDs).Error; err != nil {
			return storage(err, "failed to list task steps")
		}

		users, err := affectedUsers(tx, taskID, stepIDs)
		if err != nil {
			return err
		}
		for _, userID := range users {
			if _, err := s.points.RemoveStepEntries(tx, userID, stepIDs); err != nil {
				return err
			}
		}

		if len(stepIDs) > 0 {
			if err := tx.Where("step_id IN ?", stepIDs).
				Delete(&models.Submission{}).Error; err != nil {
				return storage(err, "failed to delete submissions")
			}
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Step{}).Error; err != nil {
			return storage(err, "failed to delete steps")
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Enrollment{}).Error; err != nil {
			return storage(err, "failed to delete enrollments")
		}
		if err := tx.Where("task_id = ?", taskID).Delete(&models.Notification{}).Error; err != nil {
			return storage(err, "failed to delete notifications")
		}
		if err := tx.Delete(&models.Task{}, taskID).Error; err != nil {
			return storage(err, "failed to delete task")
		}
		return nil
	})
}

// affectedUsers is every user holding enrollment, submission or ledger state
// under the task; the union guards against rows that outlived an enrollment.
// Any read failure aborts the caller's transaction: skipping a user here
// would delete their steps while their ledger rows survive as orphans.
func affectedUsers(tx *gorm.DB, taskID uint, stepIDs []uint) ([]uint, error) {
	seen := make(map[uint]bool)
	var ids []uint

	var enrolled []uint
	if err := tx.Model(&models.Enrollment{}).Where("task_id = ?", taskID).
		Distinct("user_id").Pluck("user_id", &enrolled).Error; err != nil {
		return nil, storage(err, "failed to list enrolled users")
	}
	for _, id := range enrolled {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	if len(stepIDs) > 0 {
		var submitters []uint
		if err := tx.Model(&models.Submission{}).Where("step_id IN ?", stepIDs).
			Distinct("user_id").Pluck("user_id", &submitters).Error; err != nil {
			return nil, storage(err, "failed to list submitters")
		}
		for _, id := range submitters {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}

		var earners []uint
		if err := tx.Model(&models.PointHistory{}).Where("step_id IN ?", stepIDs).
			Distinct("user_id").Pluck("user_id", &earners).Error; err != nil {
			return nil, storage(err, "failed to list point earners")
		}
		for _, id := range earners {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// DeleteStep removes a single step inside an existing transaction, reversing
// any points already awarded for it. Invoked by the task-edit step diff.
func (s *CascadeService) DeleteStep(tx *gorm.DB, stepID uint) error {
	var earners []uint
	if err := tx.Model(&models.PointHistory{}).Where("step_id = ?", stepID).
		Distinct("user_id").Pluck("user_id", &earners).Error; err != nil {
		return storage(err, "failed to list point earners")
	}
	for _, userID := range earners {
		if _, err := s.points.RemoveStepEntries(tx, userID, []uint{stepID}); err != nil {
			return err
		}
	}

	if err := tx.Where("step_id = ?", stepID).Delete(&models.Submission{}).Error; err != nil {
		return storage(err, "failed to delete submissions")
	}
	if err := tx.Where("step_id = ?", stepID).Delete(&models.Notification{}).Error; err != nil {
		return storage(err, "failed to delete notifications")
	}
	if err := tx.Delete(&models.Step{}, stepID).Error; err != nil {
		return storage(err, "failed to delete step")
	}
	return nil
}

// DeleteUser purges every row referencing the user before removing the user
// itself: ledger, submissions, enrollments, company memberships,
// notifications they received or triggered, and invites they created.
// Reviews they performed are kept with the reviewer cleared, and users who
// still own or manage tasks are refused until those tasks are reassigned.
func (s *CascadeService) DeleteUser(p Principal, userID uint) error {
	if err := Authorize(p, ActionManageUsers); err != nil {
		return err
	}
	if p.UserID == userID {
		return E(KindInvalidState, "cannot delete your own account")
	}

	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return translate(err, "", "user not found")
	}

	// Tasks keep referencing their creator and assigned manager; deleting the
	// user now would orphan those columns. Reassignment happens first.
	var taskRefs int64
	if err := s.db.Model(&models.Task{}).
		Where("assigned_manager_id = ? OR created_by = ?", userID, userID).
		Count(&taskRefs).Error; err != nil {
		return storage(err, "failed to check task references")
	}
	if taskRefs > 0 {
		return E(KindInvalidState, "user still manages or owns tasks, reassign them first")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Submission{}).Where("reviewed_by = ?", userID).
			Update("reviewed_by", nil).Error; err != nil {
			return storage(err, "failed to clear reviewer references")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.PointHistory{}).Error; err != nil {
			return storage(err, "failed to delete point history")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Submission{}).Error; err != nil {
			return storage(err, "failed to delete submissions")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.Enrollment{}).Error; err != nil {
			return storage(err, "failed to delete enrollments")
		}
		if err := tx.Where("user_id = ?", userID).Delete(&models.UserCompany{}).Error; err != nil {
			return storage(err, "failed to delete company memberships")
		}
		if err := tx.Where("manager_id = ? OR user_id = ?", userID, userID).
			Delete(&models.Notification{}).Error; err != nil {
			return storage(err, "failed to delete notifications")
		}
		if err := tx.Where("created_by = ?", userID).Delete(&models.Invite{}).Error; err != nil {
			return storage(err, "failed to delete invites")
		}
		if err := tx.Delete(&models.User{}, userID).Error; err != nil {
			return storage(err, "failed to delete user")
		}
		return nil
	})
}
