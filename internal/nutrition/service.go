package nutrition

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/conditions"
	"github.com/fdg312/nutriplan/internal/detect"
	"github.com/fdg312/nutriplan/internal/distribution"
	"github.com/fdg312/nutriplan/internal/interactions"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/requirements"
)

// Service runs detection, aggregation, the calculator, the distributor and the
// interaction advisor for one profile. All collaborators are read-only.
type Service struct {
	conditions *conditions.Catalog
	classifier *detect.Classifier
	calculator *requirements.Calculator
	advisor    *interactions.Advisor
	logger     zerolog.Logger
}

func NewService(cat *conditions.Catalog, classifier *detect.Classifier, calc *requirements.Calculator, advisor *interactions.Advisor, logger zerolog.Logger) *Service {
	return &Service{
		conditions: cat,
		classifier: classifier,
		calculator: calc,
		advisor:    advisor,
		logger:     logger,
	}
}

// NewDefaultService wires the embedded catalogs.
func NewDefaultService(logger zerolog.Logger) (*Service, error) {
	cat, err := conditions.Default()
	if err != nil {
		return nil, err
	}
	classifier, err := detect.NewDefault(cat)
	if err != nil {
		return nil, err
	}
	acts, err := requirements.DefaultActivities()
	if err != nil {
		return nil, err
	}
	ic, err := interactions.Default()
	if err != nil {
		return nil, err
	}
	return NewService(cat, classifier, requirements.NewCalculator(cat, acts), interactions.NewAdvisor(ic), logger), nil
}

func (s *Service) Conditions() *conditions.Catalog { return s.conditions }

func (s *Service) Advisor() *interactions.Advisor { return s.advisor }

// Requirements computes the full report. Invalid profiles return *profiles.ValidationError.
func (s *Service) Requirements(ctx context.Context, p profiles.PatientProfile) (*RequirementsReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	detected := s.Detect(p.Pathologies)
	p.ConditionIDs = mergeIDs(p.ConditionIDs, detected)

	res, err := s.calculator.Calculate(p)
	if err != nil {
		return nil, fmt.Errorf("calculate requirements: %w", err)
	}

	plan, err := distribution.Distribute(distribution.FromResult(res, p))
	if err != nil {
		return nil, fmt.Errorf("distribute calories: %w", err)
	}

	report := &RequirementsReport{
		Profile:            p,
		DetectedConditions: detected,
		Targets:            res,
		Distribution:       plan,
		Interactions:       s.advisor.Advise(p.Medications, p.Supplements),
		SupplementMacros:   s.advisor.SupplementMacros(p.Supplements),
		MedicationNotes:    s.advisor.MedicationNotes(p.Medications),
		Restrictions:       s.conditions.Restrictions(res.Conditions),
		AvoidTags:          s.conditions.AvoidTags(res.Conditions),
		PreferTags:         s.conditions.PreferTags(res.Conditions),
		Considerations:     res.Aggregated.Considerations,
	}

	s.logger.Debug().
		Strs("conditions", res.Conditions).
		Str("path", string(res.Path)).
		Float64("daily_calories", res.DailyCalories).
		Int("interactions", len(report.Interactions.Interactions)).
		Msg("requirements computed")

	return report, nil
}

// Detect returns catalog condition ids mentioned in free text.
func (s *Service) Detect(text string) []string {
	ids := s.classifier.Detect(text)
	if ids == nil {
		return []string{}
	}
	return ids
}

func (s *Service) CheckInteractions(req InteractionsRequest) InteractionsResponse {
	doses := make([]profiles.SupplementDose, len(req.Supplements))
	for i, d := range req.Supplements {
		if d.Servings == 0 {
			d.Servings = 1
		}
		doses[i] = d
	}
	return InteractionsResponse{
		Report:           s.advisor.Advise(req.Medications, doses),
		SupplementMacros: s.advisor.SupplementMacros(doses),
		MedicationNotes:  s.advisor.MedicationNotes(req.Medications),
	}
}

func (s *Service) ListConditions() []ConditionRef {
	all := s.conditions.All()
	out := make([]ConditionRef, 0, len(all))
	for _, c := range all {
		out = append(out, s.ref(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Service) refs(ids []string) []ConditionRef {
	out := make([]ConditionRef, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.conditions.Get(id); ok {
			out = append(out, s.ref(c))
		}
	}
	return out
}

func (s *Service) ref(c *conditions.Condition) ConditionRef {
	return ConditionRef{ID: c.ID, Name: c.Name, Description: c.Description, Pregnancy: c.IsPregnancy()}
}

// mergeIDs keeps explicit ids first and appends detected ones not already present.
func mergeIDs(explicit, detected []string) []string {
	seen := make(map[string]struct{}, len(explicit)+len(detected))
	out := make([]string, 0, len(explicit)+len(detected))
	for _, list := range [][]string{explicit, detected} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
