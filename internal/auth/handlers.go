package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fdg312/nutriplan/internal/config"
)

type Handlers struct {
	config  *config.Config
	service *Service
}

func NewHandlers(cfg *config.Config, service *Service) *Handlers {
	return &Handlers{config: cfg, service: service}
}

// HandleIssueToken handles POST /v1/auth/token. Only available locally with AUTH_MODE=jwt.
func (h *Handlers) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	if !h.config.AuthEnabled() || !h.config.IsLocal() {
		writeError(w, http.StatusNotFound, "not_found", "Token issuing is disabled")
		return
	}

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.IssueToken(req.Subject, time.Duration(req.TTLMinutes)*time.Minute)
	if errors.Is(err, ErrInvalidSubject) {
		writeError(w, http.StatusBadRequest, "invalid_request", "subject is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "Failed to issue token")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
