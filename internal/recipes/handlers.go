package recipes

import (
	"errors"
	"net/http"

	"github.com/fdg312/nutriplan/internal/profiles"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSelect handles POST /v1/recipes/select
func (h *Handler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Limit < 0 {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "limit must be >= 0")
		return
	}

	resp, err := h.service.Select(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, resp)
}

// HandleGet handles GET /v1/recipes/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, rec)
}

// HandleSimilar handles POST /v1/recipes/similar
func (h *Handler) HandleSimilar(w http.ResponseWriter, r *http.Request) {
	var req SimilarRequest
	if err := profiles.DecodeJSON(r, &req); err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Tolerance < 0 || req.Tolerance >= 1 {
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", "tolerance must be in [0,1)")
		return
	}

	resp, err := h.service.Similar(req)
	if err != nil {
		writeError(w, err)
		return
	}
	profiles.SendJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		profiles.SendError(w, http.StatusNotFound, "not_found", "Recipe not found")
	case errors.Is(err, ErrInvalidRecipe):
		profiles.SendError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		profiles.SendError(w, http.StatusInternalServerError, "internal_error", "Internal server error")
	}
}
