package handlers

import (
	"net/http"

	"questline/database"
	"questline/models"
	"questline/services"
)

// AdminHandler groups the admin-only surface: invites, companies, user
// administration and the points integrity check.
type AdminHandler struct {
	invites   *services.InviteService
	companies *services.CompanyService
	cascade   *services.CascadeService
	points    *services.PointsService
}

func NewAdminHandler(invites *services.InviteService, companies *services.CompanyService, cascade *services.CascadeService, points *services.PointsService) *AdminHandler {
	return &AdminHandler{invites: invites, companies: companies, cascade: cascade, points: points}
}

type createInviteRequest struct {
	Role models.Role `json:"role"`
}

func (h *AdminHandler) CreateInvite(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	invite, err := h.invites.Create(principal(r), req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, invite)
}

func (h *AdminHandler) ListInvites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.invites.List(principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

type createCompanyRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *AdminHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var req createCompanyRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	company, err := h.companies.Create(principal(r), req.Name, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, company)
}

func (h *AdminHandler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(principal(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *AdminHandler) AddCompanyMember(w http.ResponseWriter, r *http.Request) {
	companyID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := uintParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.companies.AddMember(principal(r), companyID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

func (h *AdminHandler) RemoveCompanyMember(w http.ResponseWriter, r *http.Request) {
	companyID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	userID, err := uintParam(r, "userID")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.companies.RemoveMember(principal(r), companyID, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func (h *AdminHandler) ListCompanyMembers(w http.ResponseWriter, r *http.Request) {
	companyID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	members, err := h.companies.ListMembers(principal(r), companyID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	var users []models.User
	if err := database.GetDB().Order("username asc").Find(&users).Error; err != nil {
		writeError(w, services.E(services.KindStorage, "failed to list users"))
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.cascade.DeleteUser(principal(r), userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Integrity exposes the points reconciliation health signal.
func (h *AdminHandler) Integrity(w http.ResponseWriter, r *http.Request) {
	if err := services.Authorize(principal(r), services.ActionViewIntegrity); err != nil {
		writeError(w, err)
		return
	}
	report, err := h.points.ReconcileAll()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
