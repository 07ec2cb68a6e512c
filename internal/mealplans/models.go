package mealplans

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/recipes"
)

const (
	defaultOptionsPerSlot = 3
	maxOptionsPerSlot     = 5
	maxNotesLength        = 2000
)

// GenerateRequest accepts an inline profile or a stored one.
type GenerateRequest struct {
	ProfileID      *uuid.UUID               `json:"profile_id,omitempty"`
	Profile        *profiles.PatientProfile `json:"profile,omitempty"`
	OptionsPerSlot int                      `json:"options_per_slot,omitempty"`
	Notes          string                   `json:"notes,omitempty"`
}

func (r *GenerateRequest) Validate() error {
	if r.Profile == nil && r.ProfileID == nil {
		return fmt.Errorf("profile or profile_id is required")
	}
	if r.Profile != nil && r.ProfileID != nil {
		return fmt.Errorf("send either profile or profile_id, not both")
	}
	if r.OptionsPerSlot < 0 || r.OptionsPerSlot > maxOptionsPerSlot {
		return fmt.Errorf("options_per_slot must be between 1 and %d", maxOptionsPerSlot)
	}
	if len(r.Notes) > maxNotesLength {
		return fmt.Errorf("notes cannot exceed %d characters", maxNotesLength)
	}
	return nil
}

type MealPlanDTO struct {
	ID           uuid.UUID                 `json:"id"`
	ProfileID    *uuid.UUID                `json:"profile_id,omitempty"`
	Status       string                    `json:"status"`
	Attempts     int                       `json:"attempts"`
	Plan         *planvalidator.Candidate  `json:"plan,omitempty"`
	Violations   []planvalidator.Violation `json:"violations"`
	Recipes      []recipes.Recipe          `json:"recipes,omitempty"`
	Requirements json.RawMessage           `json:"requirements,omitempty"`
	Text         string                    `json:"text"`
	CreatedAt    time.Time                 `json:"created_at"`
	UpdatedAt    time.Time                 `json:"updated_at"`
}

// GenerateResponse adds what changed during reference repair of the last attempt.
type GenerateResponse struct {
	MealPlanDTO
	Repairs recipes.RepairReport `json:"repairs"`
}

type MealPlansResponse struct {
	Plans []MealPlanDTO `json:"plans"`
}

// ValidateRequest checks a hand-written candidate without calling the model.
type ValidateRequest struct {
	Plan           json.RawMessage   `json:"plan"`
	Strategy       profiles.Strategy `json:"strategy,omitempty"`
	Tolerance      float64           `json:"tolerance,omitempty"`
	MinDailyCarbsG float64           `json:"min_daily_carbs_g,omitempty"`
	Slots          []string          `json:"slots,omitempty"`
	OptionsPerSlot int               `json:"options_per_slot,omitempty"`
}

func (r *ValidateRequest) Validate() error {
	if len(r.Plan) == 0 {
		return fmt.Errorf("plan is required")
	}
	if r.Tolerance < 0 || r.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in [0,1)")
	}
	if r.MinDailyCarbsG < 0 {
		return fmt.Errorf("min_daily_carbs_g must be >= 0")
	}
	if r.OptionsPerSlot < 0 || r.OptionsPerSlot > maxOptionsPerSlot {
		return fmt.Errorf("options_per_slot must be between 0 and %d", maxOptionsPerSlot)
	}
	switch r.Strategy {
	case "", profiles.StrategyTraditional, profiles.StrategyEquitable, profiles.StrategyCustom:
	default:
		return fmt.Errorf("unknown strategy %q", r.Strategy)
	}
	return nil
}

// ControlRequest — данные контрольного визита. The follow-up plan starts from the
// profile stored with the previous plan, updated with the new measurements.
type ControlRequest struct {
	PreviousPlanID    uuid.UUID     `json:"previous_plan_id"`
	CurrentWeightKg   float64       `json:"current_weight_kg"`
	PreviousWeightKg  float64       `json:"previous_weight_kg,omitempty"`
	Goal              profiles.Goal `json:"goal,omitempty"`
	GoalRateKgPerWeek *float64      `json:"goal_rate_kg_per_week,omitempty"`
	ActivityType      string        `json:"activity_type,omitempty"`
	ActivityFrequency *int          `json:"activity_frequency,omitempty"`
	ActivityDuration  *int          `json:"activity_duration_min,omitempty"`
	Add               string        `json:"add,omitempty"`
	Remove            string        `json:"remove,omitempty"`
	Keep              string        `json:"keep,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	OptionsPerSlot    int           `json:"options_per_slot,omitempty"`
}

func (r *ControlRequest) Validate() error {
	if r.PreviousPlanID == uuid.Nil {
		return fmt.Errorf("previous_plan_id is required")
	}
	if r.CurrentWeightKg < 20 || r.CurrentWeightKg > 400 {
		return fmt.Errorf("current_weight_kg must be between 20 and 400")
	}
	if r.PreviousWeightKg != 0 && (r.PreviousWeightKg < 20 || r.PreviousWeightKg > 400) {
		return fmt.Errorf("previous_weight_kg must be between 20 and 400")
	}
	switch r.Goal {
	case "", profiles.GoalMaintain, profiles.GoalLose, profiles.GoalGain:
	default:
		return fmt.Errorf("unknown goal %q", r.Goal)
	}
	if r.OptionsPerSlot < 0 || r.OptionsPerSlot > maxOptionsPerSlot {
		return fmt.Errorf("options_per_slot must be between 1 and %d", maxOptionsPerSlot)
	}
	if len(r.Add)+len(r.Remove)+len(r.Keep)+len(r.Notes) > maxNotesLength {
		return fmt.Errorf("adjustments cannot exceed %d characters", maxNotesLength)
	}
	return nil
}

// ControlResponse is the follow-up plan and the progress it was built from.
type ControlResponse struct {
	GenerateResponse
	PreviousPlanID uuid.UUID `json:"previous_plan_id"`
	WeightChangeKg float64   `json:"weight_change_kg"`
}

// ReplaceMealRequest asks for one macro-equivalent alternative to a stored option.
// Option is 1-based and defaults to the first option of the slot.
type ReplaceMealRequest struct {
	PlanID    uuid.UUID `json:"plan_id"`
	Slot      string    `json:"slot"`
	Option    int       `json:"option,omitempty"`
	Desired   string    `json:"desired,omitempty"`
	Tolerance float64   `json:"tolerance,omitempty"`
}

func (r *ReplaceMealRequest) Validate() error {
	if r.PlanID == uuid.Nil {
		return fmt.Errorf("plan_id is required")
	}
	if strings.TrimSpace(r.Slot) == "" {
		return fmt.Errorf("slot is required")
	}
	if r.Option < 0 {
		return fmt.Errorf("option must be >= 1")
	}
	if r.Tolerance < 0 || r.Tolerance >= 1 {
		return fmt.Errorf("tolerance must be in [0,1)")
	}
	if len(r.Desired) > maxNotesLength {
		return fmt.Errorf("desired cannot exceed %d characters", maxNotesLength)
	}
	return nil
}

// ReplaceMealResponse is the new plan with the replaced option swapped in.
type ReplaceMealResponse struct {
	GenerateResponse
	PreviousPlanID uuid.UUID             `json:"previous_plan_id"`
	Slot           string                `json:"slot"`
	Option         int                   `json:"option"`
	Replaced       planvalidator.Option  `json:"replaced"`
	Replacement    *planvalidator.Option `json:"replacement,omitempty"`
	Candidates     []recipes.Candidate   `json:"candidates"`
}
