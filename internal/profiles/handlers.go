package profiles

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/userctx"
)

// Handler содержит HTTP обработчики для профилей
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleList обрабатывает GET /v1/profiles
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListProfiles(r.Context(), userctx.OwnerOrDefault(r.Context()))
	if err != nil {
		SendError(w, http.StatusInternalServerError, "internal_error", "Failed to list profiles")
		return
	}
	SendJSON(w, http.StatusOK, ProfilesResponse{Profiles: list})
}

// HandleGet обрабатывает GET /v1/profiles/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	dto, err := h.service.GetProfile(r.Context(), userctx.OwnerOrDefault(r.Context()), id)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	SendJSON(w, http.StatusOK, dto)
}

// HandleCreate обрабатывает POST /v1/profiles
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p PatientProfile
	if err := DecodeJSON(r, &p); err != nil {
		SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	dto, err := h.service.CreateProfile(r.Context(), userctx.OwnerOrDefault(r.Context()), p)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	SendJSON(w, http.StatusCreated, dto)
}

// HandleUpdate обрабатывает PUT /v1/profiles/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var p PatientProfile
	if err := DecodeJSON(r, &p); err != nil {
		SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	dto, err := h.service.UpdateProfile(r.Context(), userctx.OwnerOrDefault(r.Context()), id, p)
	if err != nil {
		h.sendServiceError(w, err)
		return
	}
	SendJSON(w, http.StatusOK, dto)
}

// HandleDelete обрабатывает DELETE /v1/profiles/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteProfile(r.Context(), userctx.OwnerOrDefault(r.Context()), id); err != nil {
		h.sendServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sendServiceError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		SendValidationError(w, verr)
	case errors.Is(err, ErrNotFound):
		SendError(w, http.StatusNotFound, "not_found", "Profile not found")
	default:
		SendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		SendError(w, http.StatusBadRequest, "invalid_id", "Invalid profile ID")
		return uuid.Nil, false
	}
	return id, true
}

// DecodeJSON decodes a request body and rejects trailing data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

func SendJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func SendError(w http.ResponseWriter, status int, code, message string) {
	SendJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// SendValidationError writes 400 with one entry per invalid field.
func SendValidationError(w http.ResponseWriter, verr *ValidationError) {
	SendJSON(w, http.StatusBadRequest, ErrorResponse{Error: ErrorDetail{
		Code:    "validation_error",
		Message: "Profile is invalid",
		Fields:  verr.Fields,
	}})
}
