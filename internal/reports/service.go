package reports

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/blob"
	"github.com/fdg312/nutriplan/internal/mealplans"
)

// PlanGetter loads owned meal plans. *mealplans.Service satisfies it.
type PlanGetter interface {
	Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*mealplans.MealPlanDTO, error)
}

type Options struct {
	PresignTTLSeconds int
	PublicBaseURL     string
	PreferPublicURL   bool
}

// Service renders plan reports and hands out download links.
type Service struct {
	plans     PlanGetter
	store     blob.Store
	generator *Generator
	opts      Options
	logger    zerolog.Logger
}

// NewService creates a reports service. store may be nil, reports are then returned inline.
func NewService(plans PlanGetter, store blob.Store, opts Options, logger zerolog.Logger) *Service {
	if opts.PresignTTLSeconds <= 0 {
		opts.PresignTTLSeconds = 900
	}
	return &Service{
		plans:     plans,
		store:     store,
		generator: NewGenerator(),
		opts:      opts,
		logger:    logger,
	}
}

// Create renders the plan and uploads it. The returned report carries either
// a DownloadURL or the bytes themselves.
func (s *Service) Create(ctx context.Context, ownerUserID string, planID uuid.UUID, format string) (*Report, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatPDF
	}
	if format != FormatPDF && format != FormatCSV {
		return nil, ErrInvalidFormat
	}

	plan, err := s.plans.Get(ctx, ownerUserID, planID)
	if errors.Is(err, mealplans.ErrNotFound) {
		return nil, ErrPlanNotFound
	}
	if err != nil {
		return nil, err
	}

	data, err := s.generator.Render(plan, format)
	if err != nil {
		return nil, fmt.Errorf("failed to generate report: %w", err)
	}

	report := &Report{
		PlanID:      planID,
		Format:      format,
		SizeBytes:   int64(len(data)),
		ContentType: contentType(format),
		CreatedAt:   time.Now().UTC(),
	}
	if s.store == nil {
		report.Data = data
		return report, nil
	}

	key := fmt.Sprintf("reports/%s/%s.%s", planID, uuid.NewString(), format)
	if _, err := s.store.PutObject(ctx, key, data, report.ContentType); err != nil {
		return nil, fmt.Errorf("failed to upload report: %w", err)
	}
	report.ObjectKey = key

	if s.opts.PreferPublicURL && s.opts.PublicBaseURL != "" {
		report.DownloadURL = strings.TrimSuffix(s.opts.PublicBaseURL, "/") + "/" + key
		return report, nil
	}

	url, err := s.store.PresignGet(ctx, key, s.opts.PresignTTLSeconds)
	switch {
	case err == nil:
		report.DownloadURL = url
		report.ExpiresIn = s.opts.PresignTTLSeconds
	case errors.Is(err, blob.ErrPresignUnsupported):
		report.Data = data
	default:
		return nil, fmt.Errorf("failed to presign report: %w", err)
	}

	s.logger.Info().
		Str("plan_id", planID.String()).
		Str("format", format).
		Str("key", key).
		Int64("size_bytes", report.SizeBytes).
		Bool("inline", report.Data != nil).
		Msg("report created")
	return report, nil
}
