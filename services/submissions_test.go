package services_test

import (
	"testing"

	"questline/models"
	"questline/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// joinedUser enrolls a fresh user in the task.
func (e *env) joinedUser(t *testing.T, username string, taskID uint) *models.User {
	t.Helper()
	user := e.createUser(t, username, models.RoleUser)
	_, err := e.enrollments.Join(principalOf(user), taskID)
	require.NoError(t, err)
	return user
}

func TestSubmitCreatesPendingWithoutPoints(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, sub.Status)
	assert.Equal(t, 0, e.totalPoints(t, user.ID))

	// Manager was notified as a side effect.
	assert.EqualValues(t, 1, e.countRows(t, &models.Notification{},
		"manager_id = ? AND submission_id = ?", manager.ID, sub.ID))
}

func TestSubmitRequiresEnrollment(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.createUser(t, "alice", models.RoleUser)

	_, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.Error(t, err)
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))
}

func TestSubmitUnknownStep(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "alice", models.RoleUser)

	_, err := e.submissions.Submit(principalOf(user), 12345)
	require.Error(t, err)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestStateMachineLegality(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)
	stepID := task.Steps[0].ID

	// NOT_STARTED → PENDING
	sub, err := e.submissions.Submit(principalOf(user), stepID)
	require.NoError(t, err)

	// PENDING + submit → Conflict (no duplicate in flight)
	_, err = e.submissions.Submit(principalOf(user), stepID)
	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))

	// PENDING → REJECTED
	_, err = e.submissions.Reject(principalOf(manager), sub.ID, "needs work")
	require.NoError(t, err)

	// REJECTED + approve → InvalidState (only PENDING rows are reviewable)
	_, err = e.submissions.Approve(principalOf(manager), sub.ID, "")
	require.Error(t, err)
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))

	// REJECTED → PENDING (resubmission is the only exit from REJECTED)
	resub, err := e.submissions.Submit(principalOf(user), stepID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resub.Status)
	assert.Equal(t, sub.ID, resub.ID, "resubmission reuses the row")

	// PENDING → APPROVED
	_, err = e.submissions.Approve(principalOf(manager), sub.ID, "nice")
	require.NoError(t, err)

	// APPROVED is terminal for every operation
	_, err = e.submissions.Submit(principalOf(user), stepID)
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))
	_, err = e.submissions.Approve(principalOf(manager), sub.ID, "")
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))
	_, err = e.submissions.Reject(principalOf(manager), sub.ID, "")
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))

	e.requireInvariant(t, user.ID)
}

func TestApproveCreditsExactlyOnce(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)

	approved, err := e.submissions.Approve(principalOf(manager), sub.ID, "well done")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, manager.ID, *approved.ReviewedBy)
	assert.Equal(t, 100, e.totalPoints(t, user.ID))

	// Second approval of the same submission id must not double-credit.
	_, err = e.submissions.Approve(principalOf(manager), sub.ID, "again")
	require.Error(t, err)
	assert.Equal(t, services.KindInvalidState, services.KindOf(err))
	assert.Equal(t, 100, e.totalPoints(t, user.ID))
	assert.EqualValues(t, 1, e.countRows(t, &models.PointHistory{}, "user_id = ?", user.ID))
	e.requireInvariant(t, user.ID)
}

func TestRejectHasNoPointEffect(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)

	rejected, err := e.submissions.Reject(principalOf(manager), sub.ID, "incomplete")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "incomplete", rejected.Feedback)
	assert.Equal(t, 0, e.totalPoints(t, user.ID))
	e.requireInvariant(t, user.ID)
}

func TestResubmitRetainsReviewForAudit(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	_, err = e.submissions.Reject(principalOf(manager), sub.ID, "missing tests")
	require.NoError(t, err)

	resub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resub.Status)
	assert.Equal(t, "missing tests", resub.Feedback)
	require.NotNil(t, resub.ReviewedBy)
}

func TestResubmitClearsReviewWhenConfigured(t *testing.T) {
	e := newEnv(t)
	e.cfg.RetainReviewOnResubmit = false

	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	_, err = e.submissions.Reject(principalOf(manager), sub.ID, "missing tests")
	require.NoError(t, err)

	resub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, resub.Status)
	assert.Empty(t, resub.Feedback)
	assert.Nil(t, resub.ReviewedBy)
	assert.Nil(t, resub.ReviewedAt)
}

func TestReviewScopedToAssignedManager(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	other := e.createUser(t, "other-mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)

	_, err = e.submissions.Approve(principalOf(other), sub.ID, "")
	require.Error(t, err)
	assert.Equal(t, services.KindPermissionDenied, services.KindOf(err))

	// Admins are not scoped.
	_, err = e.submissions.Approve(principalOf(e.admin), sub.ID, "")
	require.NoError(t, err)
}

func TestRegularUserCannotReview(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	user := e.joinedUser(t, "alice", task.ID)

	sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)

	_, err = e.submissions.Approve(principalOf(user), sub.ID, "")
	require.Error(t, err)
	assert.Equal(t, services.KindPermissionDenied, services.KindOf(err))
}

// The full lifecycle: join, submit, approve, leave, rejoin.
func TestLifecycleScenario(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 100)
	stepID := task.Steps[0].ID
	user := e.createUser(t, "u", models.RoleUser)
	baseline := e.totalPoints(t, user.ID)

	_, err := e.enrollments.Join(principalOf(user), task.ID)
	require.NoError(t, err)

	sub, err := e.submissions.Submit(principalOf(user), stepID)
	require.NoError(t, err)
	assert.Equal(t, baseline, e.totalPoints(t, user.ID), "submit awards nothing")

	_, err = e.submissions.Approve(principalOf(manager), sub.ID, "")
	require.NoError(t, err)
	assert.Equal(t, baseline+100, e.totalPoints(t, user.ID))
	assert.EqualValues(t, 1, e.countRows(t, &models.PointHistory{},
		"user_id = ? AND step_id = ? AND points_earned = ?", user.ID, stepID, 100))
	e.requireInvariant(t, user.ID)

	require.NoError(t, e.enrollments.Leave(principalOf(user), task.ID))
	assert.Equal(t, baseline, e.totalPoints(t, user.ID))
	assert.EqualValues(t, 0, e.countRows(t, &models.Submission{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 0, e.countRows(t, &models.PointHistory{}, "user_id = ?", user.ID))
	e.requireInvariant(t, user.ID)

	// Rejoin starts from NOT_STARTED for every step.
	_, err = e.enrollments.Join(principalOf(user), task.ID)
	require.NoError(t, err)
	participants, err := e.tasks.Participants(principalOf(manager), task.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	require.Len(t, participants[0].Steps, 1)
	assert.Equal(t, models.StatusNotStarted, participants[0].Steps[0].Status)
	assert.Equal(t, 0, participants[0].EarnedPoints)
}
