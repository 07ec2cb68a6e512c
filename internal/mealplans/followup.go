package mealplans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fdg312/nutriplan/internal/ai"
	"github.com/fdg312/nutriplan/internal/nutrition"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/recipes"
)

const (
	// replaceSearchTolerance bounds the per-macro deviation of replacement recipes.
	replaceSearchTolerance = 0.20
	maxPreviousPlanText    = 4000
)

// Control builds a follow-up plan from a stored plan and the patient's progress.
// Requirements are recomputed with the current weight and any updated goal or activity.
func (s *Service) Control(ctx context.Context, ownerUserID string, req ControlRequest) (*ControlResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	prev, err := s.owned(ctx, ownerUserID, req.PreviousPlanID)
	if err != nil {
		return nil, err
	}

	var prevReport nutrition.RequirementsReport
	if err := json.Unmarshal(prev.Requirements, &prevReport); err != nil {
		return nil, fmt.Errorf("%w: previous plan has no usable requirements", ErrInvalidRequest)
	}

	p := prevReport.Profile
	if prev.ProfileID != nil && s.profiles != nil {
		stored, err := s.profiles.Resolve(ctx, ownerUserID, *prev.ProfileID)
		switch {
		case err == nil:
			p = stored
		case !errors.Is(err, profiles.ErrNotFound):
			return nil, err
		}
	}

	before := req.PreviousWeightKg
	if before == 0 {
		before = p.WeightKg
	}
	p.WeightKg = req.CurrentWeightKg
	if req.Goal != "" {
		p.Goal = req.Goal
	}
	if req.GoalRateKgPerWeek != nil {
		p.GoalRateKgPerWeek = *req.GoalRateKgPerWeek
	}
	if req.ActivityType != "" {
		p.ActivityType = req.ActivityType
		// a new activity replaces itemized history
		p.Activities = nil
	}
	if req.ActivityFrequency != nil {
		p.ActivityFrequency = *req.ActivityFrequency
	}
	if req.ActivityDuration != nil {
		p.ActivityDuration = *req.ActivityDuration
	}

	previousText := prev.RawText
	if len(prev.Candidate) > 0 {
		var c planvalidator.Candidate
		if err := json.Unmarshal(prev.Candidate, &c); err == nil {
			previousText = describePlan(c, prevReport.Distribution.Names())
		}
	}
	if len(previousText) > maxPreviousPlanText {
		previousText = previousText[:maxPreviousPlanText]
	}

	pr := progress{
		previousWeightKg: before,
		currentWeightKg:  req.CurrentWeightKg,
		previousTargets:  prevReport.Targets,
		add:              req.Add,
		remove:           req.Remove,
		keep:             req.Keep,
	}
	resp, err := s.plan(ctx, ownerUserID, prev.ProfileID, p, req.OptionsPerSlot, func(report *nutrition.RequirementsReport, hint *ai.PlanHint) string {
		return buildPrompt(report, hint, req.Notes) + controlPrompt(pr, previousText)
	})
	if err != nil {
		return nil, err
	}

	change := math.Round((req.CurrentWeightKg-before)*10) / 10
	s.logger.Info().
		Str("previous_plan_id", prev.ID.String()).
		Str("plan_id", resp.ID.String()).
		Float64("weight_change_kg", change).
		Str("status", resp.Status).
		Msg("follow-up meal plan")

	return &ControlResponse{GenerateResponse: *resp, PreviousPlanID: prev.ID, WeightChangeKg: change}, nil
}

// ReplaceMeal asks for one alternative to a stored option with the same calories
// and macros. The result is stored as a new plan with the option swapped in.
func (s *Service) ReplaceMeal(ctx context.Context, ownerUserID string, req ReplaceMealRequest) (*ReplaceMealResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	prev, err := s.owned(ctx, ownerUserID, req.PlanID)
	if err != nil {
		return nil, err
	}
	if len(prev.Candidate) == 0 {
		return nil, fmt.Errorf("%w: meal plan has no stored options", ErrInvalidRequest)
	}
	var current planvalidator.Candidate
	if err := json.Unmarshal(prev.Candidate, &current); err != nil {
		return nil, fmt.Errorf("%w: stored plan is unreadable", ErrInvalidRequest)
	}

	slot, options, ok := lookupSlot(current, req.Slot)
	if !ok {
		return nil, fmt.Errorf("%w: plan has no slot %q", ErrInvalidRequest, req.Slot)
	}
	idx := req.Option
	if idx == 0 {
		idx = 1
	}
	if idx > len(options) {
		return nil, fmt.Errorf("%w: slot %q has %d options", ErrInvalidRequest, slot, len(options))
	}
	original := options[idx-1]

	var report nutrition.RequirementsReport
	if err := json.Unmarshal(prev.Requirements, &report); err != nil {
		s.logger.Warn().Err(err).Str("plan_id", prev.ID.String()).Msg("stored requirements are not valid JSON")
	}

	catalog := s.recipes.Catalog()
	target := recipes.MacroTarget{ProteinG: original.ProteinG, CarbsG: original.CarbsG, FatG: original.FatG}
	cands, err := s.replacementCandidates(catalog, slot, original, target, req.Tolerance, report)
	if err != nil {
		return nil, err
	}

	hint := &ai.PlanHint{OptionsPerSlot: 1, Slots: []ai.SlotHint{{
		Name:     slot,
		Calories: original.Calories,
		ProteinG: original.ProteinG,
		CarbsG:   original.CarbsG,
		FatG:     original.FatG,
	}}}
	for _, c := range cands {
		hint.Slots[0].Recipes = append(hint.Slots[0].Recipes, ai.RecipeHint{ID: c.ID, Name: c.Name, Calories: c.Calories})
	}

	tol := s.config.Tolerance
	check := func(c planvalidator.Candidate) planvalidator.Result {
		res := planvalidator.Validate(c, planvalidator.Options{Tolerance: tol, Slots: []string{slot}, OptionsPerSlot: 1})
		if !res.Valid {
			return res
		}
		_, got, ok := lookupSlot(c, slot)
		if !ok || len(got) == 0 {
			return planvalidator.Result{Violations: []planvalidator.Violation{{
				Check:   planvalidator.CheckCoverage,
				Slot:    slot,
				Message: fmt.Sprintf("slot %q is missing from the plan", slot),
			}}}
		}
		pair := planvalidator.Candidate{Slots: map[string][]planvalidator.Option{slot: {original, got[0]}}}
		return planvalidator.Validate(pair, planvalidator.Options{Tolerance: tol})
	}

	prompt := replacementPrompt(slot, idx, original, req.Desired, report.Targets.Conditions, hint)
	last, attempts, err := s.converse(ctx, prompt, hint, catalog, check)
	if err != nil {
		return nil, err
	}

	var replacement *planvalidator.Option
	if last.candidate != nil {
		if _, got, ok := lookupSlot(*last.candidate, slot); ok && len(got) > 0 {
			r := got[0]
			replacement = &r
			merged := swapOption(current, slot, idx-1, r)
			last.candidate = &merged
		} else {
			last.candidate = nil
		}
	}

	stored, err := s.persist(ctx, ownerUserID, prev.ProfileID, prev.Requirements, last, attempts)
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("previous_plan_id", prev.ID.String()).
		Str("plan_id", stored.ID.String()).
		Str("slot", slot).
		Int("option", idx).
		Int("candidates", len(cands)).
		Str("status", stored.Status).
		Msg("meal replacement")

	return &ReplaceMealResponse{
		GenerateResponse: GenerateResponse{MealPlanDTO: s.toDTO(*stored), Repairs: last.repairs},
		PreviousPlanID:   prev.ID,
		Slot:             slot,
		Option:           idx,
		Replaced:         original,
		Replacement:      replacement,
		Candidates:       cands,
	}, nil
}

// replacementCandidates searches recipes close to the target and drops the ones
// the original option already uses. Patient filters apply; when nothing is close
// enough the ranked slot catalog is used instead.
func (s *Service) replacementCandidates(
	catalog *recipes.Catalog,
	slot string,
	original planvalidator.Option,
	target recipes.MacroTarget,
	tolerance float64,
	report nutrition.RequirementsReport,
) ([]recipes.Candidate, error) {
	if tolerance == 0 {
		tolerance = replaceSearchTolerance
	}
	found, err := s.recipes.Similar(recipes.SimilarRequest{Target: &target, MealType: slot, Tolerance: tolerance})
	if err != nil {
		return nil, err
	}

	used := make(map[string]bool, len(original.RecipeIDs))
	for _, id := range original.RecipeIDs {
		used[strings.ToUpper(strings.TrimSpace(id))] = true
	}
	pool := make([]recipes.Recipe, 0, len(found.Candidates))
	for _, c := range found.Candidates {
		if !used[c.ID] {
			pool = append(pool, c.Recipe)
		}
	}

	p := report.Profile
	criteria := recipes.Criteria{
		Restrictions: p.Restrictions,
		Conditions:   report.Targets.Conditions,
		BudgetTier:   p.BudgetTier,
		Preferences:  p.Preferences,
		Target:       &target,
		Limit:        s.config.RecipesPerSlot,
	}
	cands := s.recipes.Selector().Select(pool, criteria)
	if len(cands) > 0 {
		return cands, nil
	}

	var fallback []recipes.Recipe
	for _, r := range catalog.ByMealType(slot) {
		if !used[r.ID] {
			fallback = append(fallback, r)
		}
	}
	return s.recipes.Selector().Select(fallback, criteria), nil
}

// lookupSlot finds a slot by exact name, then case-insensitively.
func lookupSlot(c planvalidator.Candidate, name string) (string, []planvalidator.Option, bool) {
	name = strings.TrimSpace(name)
	if opts, ok := c.Slots[name]; ok {
		return name, opts, true
	}
	for k, opts := range c.Slots {
		if strings.EqualFold(k, name) {
			return k, opts, true
		}
	}
	return "", nil, false
}

// swapOption returns a copy of c with one option replaced.
func swapOption(c planvalidator.Candidate, slot string, i int, o planvalidator.Option) planvalidator.Candidate {
	out := planvalidator.Candidate{Slots: make(map[string][]planvalidator.Option, len(c.Slots)), Notes: c.Notes}
	for k, opts := range c.Slots {
		out.Slots[k] = append([]planvalidator.Option(nil), opts...)
	}
	out.Slots[slot][i] = o
	return out
}
