package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"questline/services"

	"github.com/go-chi/chi/v5"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			log.Printf("handlers: failed to encode response: %v", err)
		}
	}
}

type errorResponse struct {
	Error string        `json:"error"`
	Kind  services.Kind `json:"kind"`
}

// writeError maps domain error kinds to HTTP statuses. Storage and external
// failures are logged with full context but reported generically.
func writeError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)

	var status int
	switch kind {
	case services.KindNotFound:
		status = http.StatusNotFound
	case services.KindConflict, services.KindInvalidState:
		status = http.StatusConflict
	case services.KindPermissionDenied:
		status = http.StatusForbidden
	case services.KindExpired, services.KindInactive:
		status = http.StatusGone
	case services.KindValidation:
		status = http.StatusBadRequest
	default:
		log.Printf("handlers: internal error: %v", err)
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, errorResponse{Error: services.Message(err), Kind: kind})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return services.E(services.KindValidation, "invalid request body")
	}
	return nil
}

func uintParam(r *http.Request, name string) (uint, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, services.E(services.KindValidation, "invalid "+name)
	}
	return uint(id), nil
}
