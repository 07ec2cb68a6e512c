package reports

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/userctx"
)

type Handlers struct {
	service *Service
}

func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// HandleReport handles GET /v1/meal-plans/{id}/report?format=pdf|csv&redirect=1
func (h *Handlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	planID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		profiles.SendError(w, http.StatusBadRequest, "invalid_id", "Invalid meal plan ID")
		return
	}

	report, err := h.service.Create(r.Context(), userctx.OwnerOrDefault(r.Context()), planID, r.URL.Query().Get("format"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFormat):
			profiles.SendError(w, http.StatusBadRequest, "invalid_format", "format must be pdf or csv")
		case errors.Is(err, ErrPlanNotFound):
			profiles.SendError(w, http.StatusNotFound, "not_found", "Meal plan not found")
		default:
			profiles.SendError(w, http.StatusInternalServerError, "internal_error", "Failed to create report")
		}
		return
	}

	if report.Data != nil {
		filename := fmt.Sprintf("plan_%s.%s", report.PlanID, report.Format)
		w.Header().Set("Content-Type", report.ContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
		w.Header().Set("Content-Length", strconv.Itoa(len(report.Data)))
		w.WriteHeader(http.StatusOK)
		w.Write(report.Data)
		return
	}

	if r.URL.Query().Get("redirect") == "1" {
		http.Redirect(w, r, report.DownloadURL, http.StatusFound)
		return
	}
	profiles.SendJSON(w, http.StatusOK, ReportDTO{
		PlanID:      report.PlanID,
		Format:      report.Format,
		DownloadURL: report.DownloadURL,
		ExpiresIn:   report.ExpiresIn,
		SizeBytes:   report.SizeBytes,
		CreatedAt:   report.CreatedAt,
	})
}
