package requirements

import "github.com/fdg312/nutriplan/internal/conditions"

// MacroSplit is a protein/carbs/fat split in percent.
type MacroSplit struct {
	ProteinPct float64 `json:"protein_pct"`
	CarbsPct   float64 `json:"carbs_pct"`
	FatPct     float64 `json:"fat_pct"`
}

func (m MacroSplit) Sum() float64 {
	return m.ProteinPct + m.CarbsPct + m.FatPct
}

func splitFromTriple(t conditions.MacroTriple) MacroSplit {
	return MacroSplit{ProteinPct: t.Protein, CarbsPct: t.Carbs, FatPct: t.Fat}
}

type Path string

const (
	PathDefault    Path = "default"
	PathConditions Path = "conditions"
	PathPregnancy  Path = "pregnancy"
	PathCustom     Path = "custom"
)

// Advisory is a non-fatal note attached to a result. Callers decide whether to act.
type Advisory struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	AdvisoryProteinGap       = "protein_target_gap"
	AdvisoryTripleConflict   = "condition_macro_conflict"
	AdvisoryCarbsBelowMin    = "carbs_below_minimum"
	AdvisoryCaloriesFloor    = "calories_floor"
	AdvisoryPregnancyGoal    = "pregnancy_goal_ignored"
	AdvisoryPregnancyCustom  = "pregnancy_custom_macros_ignored"
	AdvisoryOverlayFloor     = "pregnancy_carb_floor_over_overlay"
	AdvisoryUnknownTier      = "unknown_protein_tier"
	AdvisoryUnknownCondition = "unknown_condition"
)

type PregnancyInfo struct {
	Trimester         int                `json:"trimester"`
	TrimesterID       string             `json:"trimester_id"`
	AssumedTrimester  bool               `json:"assumed_trimester"`
	Overlays          []string           `json:"overlays,omitempty"`
	ProteinTargetG    float64            `json:"protein_target_g"`
	MinCarbsG         float64            `json:"min_carbs_g"`
	CarbsPerMealMaxG  float64            `json:"carbs_per_meal_max_g,omitempty"`
	CarbsPerSnackMaxG float64            `json:"carbs_per_snack_max_g,omitempty"`
	Micronutrients    map[string]float64 `json:"micronutrients"`
	MealDistribution  map[string]float64 `json:"meal_distribution,omitempty"`
}

// Result — суточные цели по калориям и макронутриентам.
type Result struct {
	BMR            float64 `json:"bmr"`
	ActivityFactor float64 `json:"activity_factor"`
	ActivityKcal   float64 `json:"activity_kcal"`
	TDEE           float64 `json:"tdee"`
	GoalDelta      float64 `json:"goal_delta"`
	ConditionDelta float64 `json:"condition_delta"`
	DailyCalories  float64 `json:"daily_calories"`

	Split    MacroSplit `json:"macro_percentages"`
	ProteinG float64    `json:"protein_g"`
	CarbsG   float64    `json:"carbs_g"`
	FatG     float64    `json:"fat_g"`

	MinCarbsG      float64            `json:"min_carbs_g,omitempty"`
	FiberMinG      float64            `json:"fiber_min_g,omitempty"`
	FiberMaxG      *float64           `json:"fiber_max_g,omitempty"`
	SodiumMaxMg    *float64           `json:"sodium_max_mg,omitempty"`
	Micronutrients map[string]float64 `json:"micronutrients,omitempty"`

	Path       Path                  `json:"path"`
	Conditions []string              `json:"conditions,omitempty"`
	Aggregated conditions.Aggregated `json:"-"`
	Pregnancy  *PregnancyInfo        `json:"pregnancy,omitempty"`
	Advisories []Advisory            `json:"advisories,omitempty"`
}

func (r *Result) advise(code, msg string) {
	r.Advisories = append(r.Advisories, Advisory{Code: code, Message: msg})
}
