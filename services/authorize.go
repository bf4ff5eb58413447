package services

import (
	"questline/models"
)

// Principal identifies the caller of every operation. It is always passed
// explicitly; the services hold no ambient "current user" state.
type Principal struct {
	UserID uint
	Role   models.Role
}

type Action string

const (
	ActionManageTasks       Action = "tasks.manage"
	ActionViewParticipants  Action = "tasks.participants"
	ActionJoinTasks         Action = "tasks.join"
	ActionSubmitSteps       Action = "steps.submit"
	ActionReviewSubmissions Action = "submissions.review"
	ActionManageInvites     Action = "invites.manage"
	ActionManageUsers       Action = "users.manage"
	ActionManageCompanies   Action = "companies.manage"
	ActionViewIntegrity     Action = "integrity.view"
	ActionReadNotifications Action = "notifications.read"
)

var capabilities = map[models.Role]map[Action]bool{
	models.RoleAdmin: {
		ActionManageTasks:       true,
		ActionViewParticipants:  true,
		ActionJoinTasks:         true,
		ActionSubmitSteps:       true,
		ActionReviewSubmissions: true,
		ActionManageInvites:     true,
		ActionManageUsers:       true,
		ActionManageCompanies:   true,
		ActionViewIntegrity:     true,
		ActionReadNotifications: true,
	},
	models.RoleManager: {
		ActionViewParticipants:  true,
		ActionJoinTasks:         true,
		ActionSubmitSteps:       true,
		ActionReviewSubmissions: true,
		ActionReadNotifications: true,
	},
	models.RoleUser: {
		ActionJoinTasks:         true,
		ActionSubmitSteps:       true,
		ActionReadNotifications: true,
	},
}

// Authorize is the single role-capability gate for the whole core.
// Resource-level checks (e.g. a manager may only review submissions on tasks
// assigned to them) live with the operation that owns the resource.
func Authorize(p Principal, action Action) error {
	if actions, ok := capabilities[p.Role]; ok && actions[action] {
		return nil
	}
	return E(KindPermissionDenied, "role "+string(p.Role)+" may not perform "+string(action))
}
