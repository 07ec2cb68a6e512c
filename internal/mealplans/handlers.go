package mealplans

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/ai"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/userctx"
)

const maxListLimit = 100

// Handler handles HTTP requests for meal plans.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleGenerate handles POST /v1/meal-plans/generate
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Generate(r.Context(), userctx.OwnerOrDefault(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /v1/meal-plans/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid meal plan id")
		return
	}

	dto, err := h.service.Get(r.Context(), userctx.OwnerOrDefault(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, dto)
}

// HandleList handles GET /v1/meal-plans?profile_id=&limit=
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var profileID *uuid.UUID
	if raw := q.Get("profile_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid profile_id")
			return
		}
		profileID = &id
	}

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxListLimit {
			profiles.SendError(w, http.StatusBadRequest, "invalid_request", "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	plans, err := h.service.List(r.Context(), userctx.OwnerOrDefault(r.Context()), profileID, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, MealPlansResponse{Plans: plans})
}

// HandleValidate handles POST /v1/meal-plans/validate
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	res, err := h.service.ValidateCandidate(req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, res)
}

// HandleControl handles POST /v1/meal-plans/control
func (h *Handler) HandleControl(w http.ResponseWriter, r *http.Request) {
	var req ControlRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.Control(r.Context(), userctx.OwnerOrDefault(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusCreated, resp)
}

// HandleReplaceMeal handles POST /v1/meal-plans/replace-meal
func (h *Handler) HandleReplaceMeal(w http.ResponseWriter, r *http.Request) {
	var req ReplaceMealRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	resp, err := h.service.ReplaceMeal(r.Context(), userctx.OwnerOrDefault(r.Context()), req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusCreated, resp)
}

func writeError(w http.ResponseWriter, err error) {
	var verr *profiles.ValidationError
	switch {
	case errors.As(err, &verr):
		profiles.SendValidationError(w, verr)
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, planvalidator.ErrInvalidCandidate):
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, ErrNotFound):
		profiles.SendError(w, http.StatusNotFound, "not_found", "Meal plan not found")
	case errors.Is(err, profiles.ErrNotFound):
		profiles.SendError(w, http.StatusNotFound, "not_found", "Profile not found")
	case errors.Is(err, ai.ErrUpstream), errors.Is(err, ai.ErrEmptyResponse):
		profiles.SendError(w, http.StatusBadGateway, "ai_unavailable", "Meal plan generator is unavailable")
	default:
		profiles.SendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
