package services_test

import (
	"testing"
	"time"

	"questline/models"
	"questline/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinUnknownTask(t *testing.T) {
	e := newEnv(t)
	user := e.createUser(t, "alice", models.RoleUser)

	_, err := e.enrollments.Join(principalOf(user), 4242)
	require.Error(t, err)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

func TestJoinInactiveTask(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 10)
	require.NoError(t, e.db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("is_active", false).Error)

	user := e.createUser(t, "alice", models.RoleUser)
	_, err := e.enrollments.Join(principalOf(user), task.ID)
	require.Error(t, err)
	assert.Equal(t, services.KindInactive, services.KindOf(err))
}

func TestJoinExpiredTask(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 10)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, e.db.Model(&models.Task{}).Where("id = ?", task.ID).
		Update("deadline", past).Error)

	user := e.createUser(t, "alice", models.RoleUser)
	_, err := e.enrollments.Join(principalOf(user), task.ID)
	require.Error(t, err)
	assert.Equal(t, services.KindExpired, services.KindOf(err))
}

// The unique index resolves racing joins to exactly one enrollment row; the
// loser surfaces as a conflict, never as a duplicate or a crash.
func TestDuplicateJoinConflicts(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 10)
	user := e.createUser(t, "alice", models.RoleUser)

	_, err := e.enrollments.Join(principalOf(user), task.ID)
	require.NoError(t, err)

	_, err = e.enrollments.Join(principalOf(user), task.ID)
	require.Error(t, err)
	assert.Equal(t, services.KindConflict, services.KindOf(err))

	assert.EqualValues(t, 1, e.countRows(t, &models.Enrollment{},
		"task_id = ? AND user_id = ?", task.ID, user.ID))
}

func TestLeaveRequiresKnownRole(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 10)

	err := e.enrollments.Leave(services.Principal{UserID: 42, Role: "GHOST"}, task.ID)
	require.Error(t, err)
	assert.Equal(t, services.KindPermissionDenied, services.KindOf(err))
}

func TestLeaveWithoutEnrollment(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 10)
	user := e.createUser(t, "alice", models.RoleUser)

	err := e.enrollments.Leave(principalOf(user), task.ID)
	require.Error(t, err)
	assert.Equal(t, services.KindNotFound, services.KindOf(err))
}

// join → leave → join is a full reset: no submissions, no history, and the
// total back where it started.
func TestJoinLeaveRejoinRoundTrip(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	task := e.createTask(t, manager, 60, 40)
	user := e.createUser(t, "alice", models.RoleUser)
	baseline := e.totalPoints(t, user.ID)

	_, err := e.enrollments.Join(principalOf(user), task.ID)
	require.NoError(t, err)

	// Earn points on both steps, leave one pending on the way out.
	subA, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
	require.NoError(t, err)
	_, err = e.submissions.Approve(principalOf(manager), subA.ID, "")
	require.NoError(t, err)
	_, err = e.submissions.Submit(principalOf(user), task.Steps[1].ID)
	require.NoError(t, err)
	assert.Equal(t, baseline+60, e.totalPoints(t, user.ID))

	require.NoError(t, e.enrollments.Leave(principalOf(user), task.ID))
	assert.Equal(t, baseline, e.totalPoints(t, user.ID))
	assert.EqualValues(t, 0, e.countRows(t, &models.Submission{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 0, e.countRows(t, &models.PointHistory{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 0, e.countRows(t, &models.Enrollment{}, "user_id = ?", user.ID))
	e.requireInvariant(t, user.ID)

	_, err = e.enrollments.Join(principalOf(user), task.ID)
	require.NoError(t, err)
	assert.Equal(t, baseline, e.totalPoints(t, user.ID))
}

// Leaving one task must not disturb state earned in another.
func TestLeaveOnlyAffectsThatTask(t *testing.T) {
	e := newEnv(t)
	manager := e.createUser(t, "mgr", models.RoleManager)
	taskA := e.createTask(t, manager, 100)
	taskB := e.createTask(t, manager, 30)
	user := e.createUser(t, "alice", models.RoleUser)

	for _, task := range []*models.Task{taskA, taskB} {
		_, err := e.enrollments.Join(principalOf(user), task.ID)
		require.NoError(t, err)
		sub, err := e.submissions.Submit(principalOf(user), task.Steps[0].ID)
		require.NoError(t, err)
		_, err = e.submissions.Approve(principalOf(manager), sub.ID, "")
		require.NoError(t, err)
	}
	assert.Equal(t, 130, e.totalPoints(t, user.ID))

	require.NoError(t, e.enrollments.Leave(principalOf(user), taskA.ID))
	assert.Equal(t, 30, e.totalPoints(t, user.ID))
	assert.EqualValues(t, 1, e.countRows(t, &models.Submission{}, "user_id = ?", user.ID))
	assert.EqualValues(t, 1, e.countRows(t, &models.Enrollment{},
		"task_id = ? AND user_id = ?", taskB.ID, user.ID))
	e.requireInvariant(t, user.ID)
}
