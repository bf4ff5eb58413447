package services

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"questline/models"

	"gorm.io/gorm"
)

type TaskService struct {
	db      *gorm.DB
	cascade *CascadeService
}

func NewTaskService(db *gorm.DB, cascade *CascadeService) *TaskService {
	return &TaskService{db: db, cascade: cascade}
}

// StepInput carries one step of a create/update form. Points is deliberately
// untyped: clients have historically sent numbers, numeric strings, empty
// strings and garbage, and all of it must land in storage as a non-negative
// integer.
type StepInput struct {
	ID          *uint       `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Points      interface{} `json:"points"`
}

type TaskInput struct {
	Title             string      `json:"title"`
	Description       string      `json:"description"`
	AssignedManagerID uint        `json:"assigned_manager_id"`
	CompanyID         *uint       `json:"company_id"`
	Deadline          *time.Time  `json:"deadline"`
	Level             int         `json:"level"`
	IsActive          *bool       `json:"is_active"`
	Steps             []StepInput `json:"steps"`
}

// CoercePoints normalizes arbitrary point input to a non-negative integer.
// NaN, infinities, negatives, unparseable strings and nil all become 0.
func CoercePoints(v interface{}) int {
	switch n := v.(type) {
	case nil:
		return 0
	case int:
		if n < 0 {
			return 0
		}
		return n
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n < 0 {
			return 0
		}
		return int(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0
		}
		return CoercePoints(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0
		}
		return CoercePoints(f)
	default:
		return 0
	}
}

func clampLevel(level int) int {
	if level < 1 {
		return 1
	}
	if level > 5 {
		return 5
	}
	return level
}

func (s *TaskService) validateInput(input *TaskInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return E(KindValidation, "task title is required")
	}

	var manager models.User
	if err := s.db.First(&manager, input.AssignedManagerID).Error; err != nil {
		return translate(err, "", "assigned manager not found")
	}
	if !manager.IsManager() && !manager.IsAdmin() {
		return E(KindValidation, "assigned user does not have the manager role")
	}

	if input.CompanyID != nil {
		var company models.Company
		if err := s.db.First(&company, *input.CompanyID).Error; err != nil {
			return translate(err, "", "company not found")
		}
	}
	return nil
}

func (s *TaskService) Create(p Principal, input TaskInput) (*models.Task, error) {
	if err := Authorize(p, ActionManageTasks); err != nil {
		return nil, err
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	task := models.Task{
		Title:             strings.TrimSpace(input.Title),
		Description:       input.Description,
		CreatedBy:         p.UserID,
		AssignedManagerID: input.AssignedManagerID,
		CompanyID:         input.CompanyID,
		Deadline:          input.Deadline,
		Level:             clampLevel(input.Level),
		IsActive:          true,
	}
	if input.IsActive != nil {
		task.IsActive = *input.IsActive
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&task).Error; err != nil {
			return storage(err, "failed to create task")
		}
		for _, in := range input.Steps {
			step := models.Step{
				TaskID:       task.ID,
				Title:        in.Title,
				Description:  in.Description,
				PointsReward: CoercePoints(in.Points),
			}
			if err := tx.Create(&step).Error; err != nil {
				return storage(err, "failed to create step")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(task.ID)
}

// Update edits a task and diffs its steps against the submitted list: an
// input step without an id is an insert, an existing step missing from the
// input is a cascade delete (reversing any awarded points), and a step whose
// id is present is an update.
func (s *TaskService) Update(p Principal, taskID uint, input TaskInput) (*models.Task, error) {
	if err := Authorize(p, ActionManageTasks); err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.db.First(&task, taskID).Error; err != nil {
		return nil, translate(err, "", "task not found")
	}
	if err := s.validateInput(&input); err != nil {
		return nil, err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		task.Title = strings.TrimSpace(input.Title)
		task.Description = input.Description
		task.AssignedManagerID = input.AssignedManagerID
		task.CompanyID = input.CompanyID
		task.Deadline = input.Deadline
		task.Level = clampLevel(input.Level)
		if input.IsActive != nil {
			task.IsActive = *input.IsActive
		}
		if err := tx.Save(&task).Error; err != nil {
			return storage(err, "failed to update task")
		}

		var existing []models.Step
		if err := tx.Where("task_id = ?", taskID).Find(&existing).Error; err != nil {
			return storage(err, "failed to load steps")
		}
		byID := make(map[uint]models.Step, len(existing))
		for _, step := range existing {
			byID[step.ID] = step
		}

		kept := make(map[uint]bool, len(input.Steps))
		for _, in := range input.Steps {
			if in.ID == nil {
				step := models.Step{
					TaskID:       taskID,
					Title:        in.Title,
					Description:  in.Description,
					PointsReward: CoercePoints(in.Points),
				}
				if err := tx.Create(&step).Error; err != nil {
					return storage(err, "failed to create step")
				}
				continue
			}

			step, ok := byID[*in.ID]
			if !ok {
				return E(KindNotFound, "step does not belong to this task")
			}
			kept[step.ID] = true
			step.Title = in.Title
			step.Description = in.Description
			step.PointsReward = CoercePoints(in.Points)
			if err := tx.Save(&step).Error; err != nil {
				return storage(err, "failed to update step")
			}
		}

		for _, step := range existing {
			if !kept[step.ID] {
				if err := s.cascade.DeleteStep(tx, step.ID); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(taskID)
}

func (s *TaskService) Get(taskID uint) (*models.Task, error) {
	var task models.Task
	err := s.db.Preload("Steps").Preload("AssignedManager").Preload("Company").
		First(&task, taskID).Error
	if err != nil {
		return nil, translate(err, "", "task not found")
	}
	return &task, nil
}

// List returns tasks visible to the caller: everything for admins and
// managers, active tasks for everyone else.
func (s *TaskService) List(p Principal) ([]models.Task, error) {
	query := s.db.Preload("Steps").Order("created_at desc")
	if p.Role == models.RoleUser {
		query = query.Where("is_active = ?", true)
	}
	var tasks []models.Task
	if err := query.Find(&tasks).Error; err != nil {
		return nil, storage(err, "failed to list tasks")
	}
	return tasks, nil
}

// ParticipantStep is the per-step view inside the participants read model.
// Status is NOT_STARTED when the user has no submission row for the step.
type ParticipantStep struct {
	StepID       uint                    `json:"step_id"`
	Title        string                  `json:"title"`
	PointsReward int                     `json:"points_reward"`
	Status       models.SubmissionStatus `json:"status"`
	SubmissionID *uint                   `json:"submission_id,omitempty"`
	SubmittedAt  *time.Time              `json:"submitted_at,omitempty"`
	Feedback     string                  `json:"feedback,omitempty"`
}

type Participant struct {
	UserID       uint              `json:"user_id"`
	Name         string            `json:"name"`
	JoinedAt     time.Time         `json:"joined_at"`
	EarnedPoints int               `json:"earned_points"`
	Steps        []ParticipantStep `json:"steps"`
}

// Participants is the authoritative read model for a task's enrolled users:
// one row per user, one entry per step with its submission state and the
// points the task has earned them so far.
func (s *TaskService) Participants(p Principal, taskID uint) ([]Participant, error) {
	if err := Authorize(p, ActionViewParticipants); err != nil {
		return nil, err
	}

	var task models.Task
	if err := s.db.Preload("Steps").First(&task, taskID).Error; err != nil {
		return nil, translate(err, "", "task not found")
	}
	if p.Role == models.RoleManager && task.AssignedManagerID != p.UserID {
		return nil, E(KindPermissionDenied, "task is assigned to another manager")
	}

	var enrollments []models.Enrollment
	if err := s.db.Preload("User").Where("task_id = ?", taskID).
		Order("joined_at asc").Find(&enrollments).Error; err != nil {
		return nil, storage(err, "failed to list enrollments")
	}

	stepIDs := make([]uint, 0, len(task.Steps))
	for _, step := range task.Steps {
		stepIDs = append(stepIDs, step.ID)
	}

	subs := make(map[uint]map[uint]models.Submission) // user → step → submission
	if len(stepIDs) > 0 {
		var rows []models.Submission
		if err := s.db.Where("step_id IN ?", stepIDs).Find(&rows).Error; err != nil {
			return nil, storage(err, "failed to list submissions")
		}
		for _, sub := range rows {
			if subs[sub.UserID] == nil {
				subs[sub.UserID] = make(map[uint]models.Submission)
			}
			subs[sub.UserID][sub.StepID] = sub
		}
	}

	participants := make([]Participant, 0, len(enrollments))
	for _, enr := range enrollments {
		participant := Participant{
			UserID:   enr.UserID,
			JoinedAt: enr.JoinedAt,
		}
		if enr.User != nil {
			participant.Name = enr.User.DisplayName()
		}
		for _, step := range task.Steps {
			ps := ParticipantStep{
				StepID:       step.ID,
				Title:        step.Title,
				PointsReward: step.PointsReward,
				Status:       models.StatusNotStarted,
			}
			if sub, ok := subs[enr.UserID][step.ID]; ok {
				ps.Status = sub.Status
				ps.SubmissionID = &sub.ID
				submittedAt := sub.SubmittedAt
				ps.SubmittedAt = &submittedAt
				ps.Feedback = sub.Feedback
				if sub.Status == models.StatusApproved {
					participant.EarnedPoints += step.PointsReward
				}
			}
			participant.Steps = append(participant.Steps, ps)
		}
		participants = append(participants, participant)
	}
	return participants, nil
}
