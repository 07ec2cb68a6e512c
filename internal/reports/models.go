package reports

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	FormatPDF = "pdf"
	FormatCSV = "csv"
)

var (
	ErrInvalidFormat = errors.New("invalid format")
	ErrPlanNotFound  = errors.New("meal plan not found")
)

// Report — отчёт по плану питания. Data is set when no download URL could be issued.
type Report struct {
	PlanID      uuid.UUID
	Format      string
	ObjectKey   string
	SizeBytes   int64
	DownloadURL string
	ExpiresIn   int
	ContentType string
	Data        []byte
	CreatedAt   time.Time
}

// ReportDTO is the JSON answer when the report is downloadable by URL.
type ReportDTO struct {
	PlanID      uuid.UUID `json:"plan_id"`
	Format      string    `json:"format"`
	DownloadURL string    `json:"download_url"`
	ExpiresIn   int       `json:"expires_in,omitempty"`
	SizeBytes   int64     `json:"size_bytes"`
	CreatedAt   time.Time `json:"created_at"`
}

func contentType(format string) string {
	if format == FormatCSV {
		return "text/csv; charset=utf-8"
	}
	return "application/pdf"
}
