package handlers

import (
	"net/http"

	"questline/services"
)

type SubmissionHandler struct {
	submissions *services.SubmissionService
}

func NewSubmissionHandler(submissions *services.SubmissionService) *SubmissionHandler {
	return &SubmissionHandler{submissions: submissions}
}

func (h *SubmissionHandler) Submit(w http.ResponseWriter, r *http.Request) {
	stepID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.submissions.Submit(principal(r), stepID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

type reviewRequest struct {
	Feedback string `json:"feedback"`
}

func (h *SubmissionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.submissions.Approve(principal(r), submissionID, req.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (h *SubmissionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	submissionID, err := uintParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req reviewRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	sub, err := h.submissions.Reject(principal(r), submissionID, req.Feedback)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}
