package mealplans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fdg312/nutriplan/internal/ai"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/recipes"
	"github.com/fdg312/nutriplan/internal/storage"
)

var (
	ErrNotFound       = errors.New("meal plan not found")
	ErrInvalidRequest = errors.New("invalid meal plan request")
)

// Config — параметры генерации
type Config struct {
	Tolerance      float64
	MaxAttempts    int
	RecipesPerSlot int
	MaxTokens      int
	Temperature    float64
}

// Service handles meal plan generation and lookup.
type Service struct {
	storage   storage.MealPlansStorage
	nutrition *nutrition.Service
	recipes   *recipes.Service
	profiles  nutrition.ProfileResolver
	provider  ai.Provider
	config    Config
	logger    zerolog.Logger
}

func NewService(
	st storage.MealPlansStorage,
	nutritionSvc *nutrition.Service,
	recipesSvc *recipes.Service,
	resolver nutrition.ProfileResolver,
	provider ai.Provider,
	cfg Config,
	logger zerolog.Logger,
) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RecipesPerSlot <= 0 {
		cfg.RecipesPerSlot = 10
	}
	if cfg.Tolerance <= 0 {
		cfg.Tolerance = planvalidator.DefaultTolerance
	}
	return &Service{
		storage:   st,
		nutrition: nutritionSvc,
		recipes:   recipesSvc,
		profiles:  resolver,
		provider:  provider,
		config:    cfg,
		logger:    logger,
	}
}

// attempt is the outcome of one model answer.
type attempt struct {
	text      string
	candidate *planvalidator.Candidate
	result    planvalidator.Result
	repairs   recipes.RepairReport
}

// checkFunc validates a parsed candidate.
type checkFunc func(planvalidator.Candidate) planvalidator.Result

// Generate builds requirements, asks the model for a plan and re-prompts with
// the violations until the plan validates or attempts run out. Both outcomes are stored.
func (s *Service) Generate(ctx context.Context, ownerUserID string, req GenerateRequest) (*GenerateResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	p, err := s.resolveProfile(ctx, ownerUserID, req)
	if err != nil {
		return nil, err
	}
	return s.plan(ctx, ownerUserID, req.ProfileID, p, req.OptionsPerSlot, func(report *nutrition.RequirementsReport, hint *ai.PlanHint) string {
		return buildPrompt(report, hint, req.Notes)
	})
}

// plan runs the full-plan flow shared by Generate and Control.
func (s *Service) plan(
	ctx context.Context,
	ownerUserID string,
	profileID *uuid.UUID,
	p profiles.PatientProfile,
	perSlot int,
	prompt func(*nutrition.RequirementsReport, *ai.PlanHint) string,
) (*GenerateResponse, error) {
	report, err := s.nutrition.Requirements(ctx, p)
	if err != nil {
		return nil, err
	}

	if perSlot == 0 {
		perSlot = defaultOptionsPerSlot
	}
	catalog := s.recipes.Catalog()
	hint := s.buildHint(report, catalog, perSlot)

	opts := planvalidator.Options{
		Strategy:       report.Profile.Strategy,
		Tolerance:      s.config.Tolerance,
		Slots:          report.Distribution.Names(),
		OptionsPerSlot: perSlot,
	}
	if report.Targets.Pregnancy != nil {
		opts.MinDailyCarbsG = report.Targets.Pregnancy.MinCarbsG
	}

	last, attempts, err := s.converse(ctx, prompt(report, hint), hint, catalog, func(c planvalidator.Candidate) planvalidator.Result {
		return planvalidator.Validate(c, opts)
	})
	if err != nil {
		return nil, err
	}

	reqJSON, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("encode requirements: %w", err)
	}
	stored, err := s.persist(ctx, ownerUserID, profileID, reqJSON, last, attempts)
	if err != nil {
		return nil, err
	}
	return &GenerateResponse{MealPlanDTO: s.toDTO(*stored), Repairs: last.repairs}, nil
}

// converse sends prompt and re-prompts with the violations until check passes
// or attempts run out. It returns the last attempt and the number of attempts.
func (s *Service) converse(ctx context.Context, prompt string, hint *ai.PlanHint, catalog *recipes.Catalog, check checkFunc) (attempt, int, error) {
	messages := []ai.Message{{Role: ai.RoleUser, Content: prompt}}
	var last attempt
	attempts := 0
	for attempts < s.config.MaxAttempts {
		attempts++
		resp, err := s.provider.Complete(ctx, ai.CompletionRequest{
			System:      systemPrompt,
			Messages:    messages,
			MaxTokens:   s.config.MaxTokens,
			Temperature: s.config.Temperature,
			Hint:        hint,
		})
		if err != nil {
			return attempt{}, attempts, fmt.Errorf("generate plan: %w", err)
		}

		last = s.evaluate(resp.Text, catalog, check)
		s.logger.Info().
			Str("provider", s.provider.Name()).
			Int("attempt", attempts).
			Bool("valid", last.result.Valid).
			Int("violations", len(last.result.Violations)).
			Int("repaired_refs", len(last.repairs.Replaced)).
			Msg("meal plan attempt")

		if last.result.Valid {
			break
		}
		messages = append(messages,
			ai.Message{Role: ai.RoleAssistant, Content: last.text},
			ai.Message{Role: ai.RoleUser, Content: feedbackPrompt(last.result.Violations, last.repairs.Unresolved)},
		)
	}
	return last, attempts, nil
}

func (s *Service) resolveProfile(ctx context.Context, ownerUserID string, req GenerateRequest) (profiles.PatientProfile, error) {
	if req.Profile != nil {
		return *req.Profile, nil
	}
	if s.profiles == nil {
		return profiles.PatientProfile{}, fmt.Errorf("%w: stored profiles are not available", ErrInvalidRequest)
	}
	return s.profiles.Resolve(ctx, ownerUserID, *req.ProfileID)
}

// buildHint picks the top candidates per slot, ranked against the slot macros.
func (s *Service) buildHint(report *nutrition.RequirementsReport, catalog *recipes.Catalog, perSlot int) *ai.PlanHint {
	p := report.Profile
	hint := &ai.PlanHint{OptionsPerSlot: perSlot}
	for _, slot := range report.Distribution.Slots {
		target := recipes.MacroTarget{ProteinG: slot.ProteinG, CarbsG: slot.CarbsG, FatG: slot.FatG}
		cands := s.recipes.Selector().Select(catalog.ByMealType(slot.Name), recipes.Criteria{
			Restrictions: p.Restrictions,
			Conditions:   report.Targets.Conditions,
			BudgetTier:   p.BudgetTier,
			Preferences:  p.Preferences,
			Target:       &target,
			Limit:        s.config.RecipesPerSlot,
		})

		sh := ai.SlotHint{
			Name:     slot.Name,
			Calories: slot.Calories,
			ProteinG: slot.ProteinG,
			CarbsG:   slot.CarbsG,
			FatG:     slot.FatG,
		}
		for _, c := range cands {
			sh.Recipes = append(sh.Recipes, ai.RecipeHint{ID: c.ID, Name: c.Name, Calories: c.Calories})
		}
		hint.Slots = append(hint.Slots, sh)
	}
	return hint
}

func (s *Service) evaluate(text string, catalog *recipes.Catalog, check checkFunc) attempt {
	fixed, repairs := recipes.RepairRefs(text, catalog)
	out := attempt{text: fixed, repairs: repairs}

	raw, ok := extractPlan(fixed)
	if !ok {
		out.result = formatFailure("la respuesta no contiene un bloque <plan>")
		return out
	}
	cand, err := planvalidator.ParseCandidateBytes(raw)
	if err != nil {
		out.result = formatFailure(fmt.Sprintf("el bloque <plan> no es válido: %v", err))
		return out
	}
	out.candidate = &cand
	out.result = check(cand)
	return out
}

func formatFailure(msg string) planvalidator.Result {
	return planvalidator.Result{
		Valid:      false,
		Violations: []planvalidator.Violation{{Check: planvalidator.CheckFormat, Message: msg}},
	}
}

func (s *Service) persist(ctx context.Context, ownerUserID string, profileID *uuid.UUID, reqJSON []byte, last attempt, attempts int) (*storage.MealPlan, error) {
	violations, err := json.Marshal(last.result.Violations)
	if err != nil {
		return nil, fmt.Errorf("encode violations: %w", err)
	}
	var candidate []byte
	if last.candidate != nil {
		if candidate, err = json.Marshal(last.candidate); err != nil {
			return nil, fmt.Errorf("encode plan: %w", err)
		}
	}

	status := storage.PlanStatusInvalid
	if last.result.Valid {
		status = storage.PlanStatusValid
	}
	now := time.Now().UTC()
	plan := &storage.MealPlan{
		ID:           uuid.New(),
		OwnerUserID:  ownerUserID,
		ProfileID:    profileID,
		Status:       status,
		Requirements: reqJSON,
		Candidate:    candidate,
		Violations:   violations,
		RawText:      last.text,
		Attempts:     attempts,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storage.CreateMealPlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("store meal plan: %w", err)
	}
	return plan, nil
}

// Get returns a stored plan owned by ownerUserID.
func (s *Service) Get(ctx context.Context, ownerUserID string, id uuid.UUID) (*MealPlanDTO, error) {
	plan, err := s.owned(ctx, ownerUserID, id)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(*plan)
	return &dto, nil
}

// owned loads a plan and hides plans of other owners.
func (s *Service) owned(ctx context.Context, ownerUserID string, id uuid.UUID) (*storage.MealPlan, error) {
	plan, err := s.storage.GetMealPlan(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if plan.OwnerUserID != ownerUserID {
		return nil, ErrNotFound
	}
	return plan, nil
}

// List returns the owner's plans, newest first, optionally for one profile.
func (s *Service) List(ctx context.Context, ownerUserID string, profileID *uuid.UUID, limit int) ([]MealPlanDTO, error) {
	plans, err := s.storage.ListMealPlans(ctx, ownerUserID, storage.MealPlanFilter{ProfileID: profileID, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]MealPlanDTO, 0, len(plans))
	for _, p := range plans {
		dto := s.toDTO(p)
		// the list view omits the heavy fields
		dto.Requirements = nil
		dto.Recipes = nil
		out = append(out, dto)
	}
	return out, nil
}

// ValidateCandidate runs the plan validator on a submitted candidate.
func (s *Service) ValidateCandidate(req ValidateRequest) (planvalidator.Result, error) {
	if err := req.Validate(); err != nil {
		return planvalidator.Result{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	cand, err := planvalidator.ParseCandidateBytes(req.Plan)
	if err != nil {
		return planvalidator.Result{}, err
	}
	tol := req.Tolerance
	if tol == 0 {
		tol = s.config.Tolerance
	}
	return planvalidator.Validate(cand, planvalidator.Options{
		Strategy:       req.Strategy,
		Tolerance:      tol,
		MinDailyCarbsG: req.MinDailyCarbsG,
		Slots:          req.Slots,
		OptionsPerSlot: req.OptionsPerSlot,
	}), nil
}

func (s *Service) toDTO(p storage.MealPlan) MealPlanDTO {
	dto := MealPlanDTO{
		ID:           p.ID,
		ProfileID:    p.ProfileID,
		Status:       p.Status,
		Attempts:     p.Attempts,
		Violations:   []planvalidator.Violation{},
		Requirements: json.RawMessage(p.Requirements),
		Text:         p.RawText,
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	if len(p.Violations) > 0 {
		if err := json.Unmarshal(p.Violations, &dto.Violations); err != nil {
			s.logger.Warn().Err(err).Str("plan_id", p.ID.String()).Msg("stored violations are not valid JSON")
		}
	}
	if len(p.Candidate) > 0 {
		var c planvalidator.Candidate
		if err := json.Unmarshal(p.Candidate, &c); err != nil {
			s.logger.Warn().Err(err).Str("plan_id", p.ID.String()).Msg("stored plan is not valid JSON")
		} else {
			dto.Plan = &c
			catalog := s.recipes.Catalog()
			for _, id := range c.RecipeIDs() {
				if r, ok := catalog.Get(id); ok {
					dto.Recipes = append(dto.Recipes, r)
				}
			}
		}
	}
	return dto
}
