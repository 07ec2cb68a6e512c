package nutrition

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/distribution"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/userctx"
)

// ProfileResolver loads stored profiles. *profiles.Service satisfies it.
type ProfileResolver interface {
	Resolve(ctx context.Context, ownerUserID string, id uuid.UUID) (profiles.PatientProfile, error)
}

type Handler struct {
	service  *Service
	profiles ProfileResolver
}

func NewHandler(service *Service, resolver ProfileResolver) *Handler {
	return &Handler{service: service, profiles: resolver}
}

// HandleRequirements handles POST /v1/nutrition/requirements
func (h *Handler) HandleRequirements(w http.ResponseWriter, r *http.Request) {
	var req RequirementsRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	p, ok := h.resolveProfile(w, r, req)
	if !ok {
		return
	}

	report, err := h.service.Requirements(r.Context(), p)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, report)
}

func (h *Handler) resolveProfile(w http.ResponseWriter, r *http.Request, req RequirementsRequest) (profiles.PatientProfile, bool) {
	switch {
	case req.Profile != nil && req.ProfileID != nil:
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Send either profile or profile_id, not both")
	case req.Profile != nil:
		return *req.Profile, true
	case req.ProfileID != nil && h.profiles != nil:
		p, err := h.profiles.Resolve(r.Context(), userctx.OwnerOrDefault(r.Context()), *req.ProfileID)
		if err != nil {
			writeServiceError(w, err)
			return profiles.PatientProfile{}, false
		}
		return p, true
	default:
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "profile or profile_id is required")
	}
	return profiles.PatientProfile{}, false
}

// HandleDistribution handles POST /v1/nutrition/distribution
func (h *Handler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	var req distribution.Request
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	plan, err := distribution.Distribute(req)
	if err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_distribution", err.Error())
		return
	}
	profiles.SendJSON(w, http.StatusOK, plan)
}

// HandleCheckInteractions handles POST /v1/interactions/check
func (h *Handler) HandleCheckInteractions(w http.ResponseWriter, r *http.Request) {
	var req InteractionsRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	profiles.SendJSON(w, http.StatusOK, h.service.CheckInteractions(req))
}

// HandleDetect handles POST /v1/conditions/detect
func (h *Handler) HandleDetect(w http.ResponseWriter, r *http.Request) {
	var req DetectRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "text is required")
		return
	}
	ids := h.service.Detect(req.Text)
	profiles.SendJSON(w, http.StatusOK, ConditionsResponse{Conditions: h.service.refs(ids)})
}

// HandleListConditions handles GET /v1/conditions
func (h *Handler) HandleListConditions(w http.ResponseWriter, r *http.Request) {
	profiles.SendJSON(w, http.StatusOK, ConditionsResponse{Conditions: h.service.ListConditions()})
}

func writeServiceError(w http.ResponseWriter, err error) {
	var verr *profiles.ValidationError
	switch {
	case errors.As(err, &verr):
		profiles.SendValidationError(w, verr)
	case errors.Is(err, profiles.ErrNotFound):
		profiles.SendError(w, http.StatusNotFound, "not_found", "Profile not found")
	case errors.Is(err, distribution.ErrMissingCustom), errors.Is(err, distribution.ErrNoSlots):
		profiles.SendError(w, http.StatusBadRequest, "invalid_distribution", err.Error())
	default:
		profiles.SendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
