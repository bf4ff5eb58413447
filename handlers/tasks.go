package handlers

import (
	"net/http"

	"questline/database"
	"questline/middleware"
	"questline/models"
	"questline/services"
)

type TaskHandler struct {
	tasks       *services.TaskService
	enrollments *services.EnrollmentService
	cascade     *services.CascadeService
}

func NewTaskHandler(tasks *services.TaskService, enrollments *services.EnrollmentService, cascade *services.CascadeService) *TaskHandler {
	return &TaskHandler{tasks: tasks, enrollments: enrollments, cascade: cascade}
}

func principal(r *http.Request) services.Principal {
	user := middleware.GetUserFromContext(r.Context())
	return services.Principal{UserID: user.ID, Role: user.Role}
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.List(principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := h.tasks.Get(taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.TaskInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	task, err := h.tasks.Create(principal(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var input services.TaskInput
	if err := decodeBody(r, &input); err != nil {
		writeError(w, err)
		return
	}
	task, err := h.tasks.Update(principal(r), taskID, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.cascade.DeleteTask(principal(r), taskID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *TaskHandler) Join(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	enrollment, err := h.enrollments.Join(principal(r), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, enrollment)
}

func (h *TaskHandler) Leave(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	p := principal(r)
	if err := h.enrollments.Leave(p, taskID); err != nil {
		writeError(w, err)
		return
	}

	// Return the caller's settled state so clients need no follow-up read.
	user := middleware.GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "left",
		"task_id":      taskID,
		"total_points": currentTotal(user),
	})
}

func currentTotal(user *models.User) int {
	// The middleware snapshot predates the mutation; re-read the row.
	var fresh models.User
	if err := database.GetDB().First(&fresh, user.ID).Error; err != nil {
		return user.TotalPoints
	}
	return fresh.TotalPoints
}

func (h *TaskHandler) Participants(w http.ResponseWriter, r *http.Request) {
	taskID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	participants, err := h.tasks.Participants(principal(r), taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, participants)
}
