package services_test

import (
	"fmt"
	"testing"
	"time"

	"questline/config"
	"questline/models"
	"questline/services"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// env wires the full service graph against an in-memory sqlite database.
// TranslateError is on so unique-index violations behave exactly as they do
// on postgres (gorm.ErrDuplicatedKey → domain Conflict).
type env struct {
	db            *gorm.DB
	cfg           *config.Config
	points        *services.PointsService
	notifications *services.NotificationService
	submissions   *services.SubmissionService
	enrollments   *services.EnrollmentService
	cascade       *services.CascadeService
	tasks         *services.TaskService
	invites       *services.InviteService
	companies     *services.CompanyService

	admin *models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	// A fresh connection would see a fresh in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Company{},
		&models.UserCompany{},
		&models.Task{},
		&models.Step{},
		&models.Enrollment{},
		&models.Submission{},
		&models.PointHistory{},
		&models.Notification{},
		&models.Invite{},
	))

	cfg := &config.Config{
		InviteExpiration:       7 * 24 * time.Hour,
		RetainReviewOnResubmit: true,
	}

	e := &env{db: db, cfg: cfg}
	e.points = services.NewPointsService(db)
	e.notifications = services.NewNotificationService(db)
	e.submissions = services.NewSubmissionService(db, cfg, e.points, e.notifications)
	e.enrollments = services.NewEnrollmentService(db, e.points)
	e.cascade = services.NewCascadeService(db, e.points)
	e.tasks = services.NewTaskService(db, e.cascade)
	e.invites = services.NewInviteService(db, cfg)
	e.companies = services.NewCompanyService(db)

	e.admin = e.createUser(t, "admin", models.RoleAdmin)
	return e
}

func (e *env) createUser(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		FullName:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func principalOf(u *models.User) services.Principal {
	return services.Principal{UserID: u.ID, Role: u.Role}
}

// createTask builds a task assigned to manager with one step per entry in
// stepPoints.
func (e *env) createTask(t *testing.T, manager *models.User, stepPoints ...int) *models.Task {
	t.Helper()
	input := services.TaskInput{
		Title:             "Onboarding quest",
		Description:       "Learn the ropes",
		AssignedManagerID: manager.ID,
		Level:             2,
	}
	for i, pts := range stepPoints {
		input.Steps = append(input.Steps, services.StepInput{
			Title:  fmt.Sprintf("Step %d", i+1),
			Points: pts,
		})
	}
	task, err := e.tasks.Create(principalOf(e.admin), input)
	require.NoError(t, err)
	return task
}

// requireInvariant asserts the cached total equals the summed ledger.
func (e *env) requireInvariant(t *testing.T, userID uint) {
	t.Helper()
	report, err := e.points.Reconcile(userID)
	require.NoError(t, err)
	require.Truef(t, report.Consistent(),
		"points invariant violated for user %d: cached=%d ledger=%d",
		userID, report.Cached, report.LedgerSum)
}

func (e *env) totalPoints(t *testing.T, userID uint) int {
	t.Helper()
	var user models.User
	require.NoError(t, e.db.First(&user, userID).Error)
	return user.TotalPoints
}

func (e *env) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&count).Error)
	return count
}
