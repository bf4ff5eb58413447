package services

import (
	"errors"
	"log"
	"time"

	"questline/models"

	"gorm.io/gorm"
)

// PointsService maintains the invariant that users.total_points equals the
// sum of the user's rows in user_point_history. Every mutation touches the
// ledger and the cached total inside the caller's transaction.
type PointsService struct {
	db *gorm.DB
}

func NewPointsService(db *gorm.DB) *PointsService {
	return &PointsService{db: db}
}

// Credit appends a ledger entry for a step and bumps the cached total.
// The unique index on (user_id, step_id) makes a second credit for the same
// step a conflict rather than a double award.
func (s *PointsService) Credit(tx *gorm.DB, userID, stepID uint, amount int) error {
	if amount < 0 {
		// Step points are normalized at create/edit time, so a negative
		// amount here means bad data slipped into task_steps.
		log.Printf("points: clamping negative credit %d for user %d step %d", amount, userID, stepID)
		amount = 0
	}

	entry := models.PointHistory{
		UserID:       userID,
		StepID:       &stepID,
		PointsEarned: amount,
		Reason:       "step approved",
		EarnedAt:     time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return E(KindConflict, "step already credited for this user")
		}
		return storage(err, "failed to record point credit")
	}

	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", amount)).Error; err != nil {
		return storage(err, "failed to update point total")
	}
	return nil
}

// RemoveStepEntries deletes the user's ledger rows for the given steps and
// decrements the cached total by their sum. It returns the amount removed.
// Running it twice removes nothing the second time, which is what makes the
// leave and cascade paths safely re-runnable.
func (s *PointsService) RemoveStepEntries(tx *gorm.DB, userID uint, stepIDs []uint) (int, error) {
	if len(stepIDs) == 0 {
		return 0, nil
	}

	var total int
	err := tx.Model(&models.PointHistory{}).
		Where("user_id = ? AND step_id IN ?", userID, stepIDs).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, storage(err, "failed to sum point history")
	}

	if err := tx.Where("user_id = ? AND step_id IN ?", userID, stepIDs).
		Delete(&models.PointHistory{}).Error; err != nil {
		return 0, storage(err, "failed to delete point history")
	}

	if total != 0 {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("total_points", gorm.Expr("total_points - ?", total)).Error; err != nil {
			return 0, storage(err, "failed to update point total")
		}
	}
	return total, nil
}

// Adjust records a manual, signed ledger entry not tied to any step.
func (s *PointsService) Adjust(tx *gorm.DB, userID uint, delta int, reason string) error {
	entry := models.PointHistory{
		UserID:       userID,
		PointsEarned: delta,
		Reason:       reason,
		EarnedAt:     time.Now(),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return storage(err, "failed to record point adjustment")
	}
	if err := tx.Model(&models.User{}).Where("id = ?", userID).
		UpdateColumn("total_points", gorm.Expr("total_points + ?", delta)).Error; err != nil {
		return storage(err, "failed to update point total")
	}
	return nil
}

// ReconcileReport compares a user's cached total against the summed ledger.
type ReconcileReport struct {
	UserID    uint `json:"user_id"`
	Cached    int  `json:"cached_total"`
	LedgerSum int  `json:"ledger_sum"`
	Drift     int  `json:"drift"`
}

func (r ReconcileReport) Consistent() bool {
	return r.Drift == 0
}

// Reconcile is a read-only diagnostic; it never repairs.
func (s *PointsService) Reconcile(userID uint) (ReconcileReport, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		return ReconcileReport{}, translate(err, "", "user not found")
	}

	var sum int
	err := s.db.Model(&models.PointHistory{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&sum).Error
	if err != nil {
		return ReconcileReport{}, storage(err, "failed to sum point history")
	}

	return ReconcileReport{
		UserID:    userID,
		Cached:    user.TotalPoints,
		LedgerSum: sum,
		Drift:     user.TotalPoints - sum,
	}, nil
}

// IntegrityReport is the system-wide points health signal.
type IntegrityReport struct {
	TotalCached  int               `json:"total_cached"`
	TotalLedger  int               `json:"total_ledger"`
	Consistent   bool              `json:"consistent"`
	DriftedUsers []ReconcileReport `json:"drifted_users,omitempty"`
}

func (s *PointsService) ReconcileAll() (IntegrityReport, error) {
	var report IntegrityReport

	if err := s.db.Model(&models.User{}).
		Select("COALESCE(SUM(total_points), 0)").
		Scan(&report.TotalCached).Error; err != nil {
		return report, storage(err, "failed to sum cached totals")
	}
	if err := s.db.Model(&models.PointHistory{}).
		Select("COALESCE(SUM(points_earned), 0)").
		Scan(&report.TotalLedger).Error; err != nil {
		return report, storage(err, "failed to sum point history")
	}

	var userIDs []uint
	if err := s.db.Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
		return report, storage(err, "failed to list users")
	}
	for _, id := range userIDs {
		r, err := s.Reconcile(id)
		if err != nil {
			return report, err
		}
		if !r.Consistent() {
			report.DriftedUsers = append(report.DriftedUsers, r)
		}
	}

	report.Consistent = report.TotalCached == report.TotalLedger && len(report.DriftedUsers) == 0
	return report, nil
}
