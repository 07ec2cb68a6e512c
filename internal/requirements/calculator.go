package requirements

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/fdg312/nutriplan/internal/conditions"
	"github.com/fdg312/nutriplan/internal/profiles"
)

var ErrInvalidProfile = errors.New("invalid profile")

const (
	itemizedActivityFactor = 1.3
	MinDailyCalories       = 800.0

	proteinPctCap   = 40.0
	fatPctMin       = 15.0
	fatPctMax       = 45.0
	proteinGapLimit = 0.10

	defaultPregnancyMinCarbsG = 175.0
	defaultPregnancyProtein   = 1.2
)

var sedentaryTypes = map[string]bool{
	"sedentario": true,
	"ninguna":    true,
	"sedentary":  true,
	"none":       true,
}

// ProteinTiers maps a protein level to grams per kilogram of body weight.
var ProteinTiers = map[string]float64{
	"muy_baja":   0.65,
	"conservada": 1.0,
	"moderada":   1.4,
	"alta":       1.9,
	"muy_alta":   2.5,
	"extrema":    3.2,
}

var pregnancyMicronutrientDefaults = map[string]float64{
	"folic_acid_mcg": 600,
	"iron_mg":        27,
	"calcium_mg":     1000,
	"vitamin_d_iu":   600,
}

// Calculator turns a patient profile into daily targets. It holds only
// read-only catalogs and is safe for concurrent use.
type Calculator struct {
	conditions *conditions.Catalog
	activities *ActivityCatalog
}

func NewCalculator(cat *conditions.Catalog, acts *ActivityCatalog) *Calculator {
	return &Calculator{conditions: cat, activities: acts}
}

func BMR(p profiles.PatientProfile) float64 {
	base := 10*p.WeightKg + 6.25*p.HeightCm - 5*float64(p.AgeYears)
	if p.Sex == profiles.SexMale {
		return base + 5
	}
	return base - 161
}

// ActivityFactor buckets weekly activity hours. Zero minutes count as sedentary.
func ActivityFactor(activityType string, sessionsPerWeek, minutesPerSession int) float64 {
	if sedentaryTypes[strings.ToLower(strings.TrimSpace(activityType))] {
		return 1.2
	}
	hours := float64(sessionsPerWeek*minutesPerSession) / 60
	switch {
	case hours <= 0:
		return 1.2
	case hours < 3:
		return 1.375
	case hours < 5:
		return 1.55
	case hours < 7:
		return 1.725
	default:
		return 1.9
	}
}

// GoalDelta maps a goal and weekly rate to a calorie delta: 0.25 kg/week is 250 kcal.
func GoalDelta(goal profiles.Goal, rateKgPerWeek float64) float64 {
	delta := math.Round(rateKgPerWeek/0.25) * 250
	if delta > 1000 {
		delta = 1000
	}
	switch goal {
	case profiles.GoalLose:
		return -delta
	case profiles.GoalGain:
		return delta
	default:
		return 0
	}
}

// DefaultSplit is the goal-keyed split used when nothing else applies.
func DefaultSplit(goal profiles.Goal) MacroSplit {
	switch goal {
	case profiles.GoalLose:
		return MacroSplit{ProteinPct: 30, CarbsPct: 40, FatPct: 30}
	case profiles.GoalGain:
		return MacroSplit{ProteinPct: 20, CarbsPct: 50, FatPct: 30}
	default:
		return MacroSplit{ProteinPct: 25, CarbsPct: 45, FatPct: 30}
	}
}

func defaultCarbsPct(goal profiles.Goal) float64 {
	return DefaultSplit(goal).CarbsPct
}

// Calculate computes daily targets for p using p.ConditionIDs as the active set.
func (c *Calculator) Calculate(p profiles.PatientProfile) (Result, error) {
	if p.WeightKg <= 0 || p.HeightCm <= 0 || p.AgeYears <= 0 {
		return Result{}, fmt.Errorf("%w: weight, height and age must be positive", ErrInvalidProfile)
	}
	p = p.Normalize()

	res := Result{BMR: BMR(p)}
	if len(p.Activities) > 0 {
		res.ActivityFactor = itemizedActivityFactor
		for _, a := range p.Activities {
			res.ActivityKcal += c.activities.KcalPerDay(a, p.WeightKg)
		}
		res.ActivityKcal = math.Round(res.ActivityKcal)
	} else {
		res.ActivityFactor = ActivityFactor(p.ActivityType, p.ActivityFrequency, p.ActivityDuration)
	}
	res.TDEE = math.Round(res.BMR*res.ActivityFactor + res.ActivityKcal)

	agg := c.conditions.Aggregate(p.ConditionIDs)
	res.Aggregated = agg
	res.Conditions = agg.Conditions
	for _, id := range agg.Unknown {
		res.advise(AdvisoryUnknownCondition, fmt.Sprintf("condition %q is not in the catalog and was ignored", id))
	}

	if agg.Pregnancy != nil {
		c.pregnancy(&res, p, agg)
		return res, nil
	}

	res.GoalDelta = GoalDelta(p.Goal, p.GoalRateKgPerWeek)
	res.ConditionDelta = agg.CaloriesDelta
	res.DailyCalories = c.floorCalories(&res, res.TDEE+res.GoalDelta+res.ConditionDelta)

	res.Split = DefaultSplit(p.Goal)
	res.Path = PathDefault
	if agg.Macros != nil {
		res.Split = splitFromTriple(*agg.Macros)
		res.Path = PathConditions
		if len(agg.ConflictingTriples) > 0 {
			res.advise(AdvisoryTripleConflict, fmt.Sprintf(
				"macro split of %s (carbs %.0f%%) was selected over %s",
				agg.MacrosFrom, agg.Macros.Carbs, strings.Join(agg.ConflictingTriples, ", ")))
		}
	}

	if !p.Macros.Empty() {
		res.Split = c.customSplit(&res, p)
		res.Path = PathCustom
	}

	res.ProteinG = grams(res.DailyCalories, res.Split.ProteinPct, 4)
	res.CarbsG = grams(res.DailyCalories, res.Split.CarbsPct, 4)
	res.FatG = grams(res.DailyCalories, res.Split.FatPct, 9)

	if agg.Active() {
		res.MinCarbsG = agg.MinCarbsG
		res.FiberMinG = agg.FiberMinG
		res.FiberMaxG = agg.FiberMaxG
		res.SodiumMaxMg = agg.SodiumMaxMg
		res.Micronutrients = agg.Micronutrients
		if res.CarbsG < agg.MinCarbsG {
			res.advise(AdvisoryCarbsBelowMin, fmt.Sprintf(
				"carbohydrates %.0f g are below the %.0f g minimum of the active conditions", res.CarbsG, agg.MinCarbsG))
		}
	}
	return res, nil
}

func (c *Calculator) floorCalories(res *Result, kcal float64) float64 {
	kcal = math.Round(kcal)
	if kcal < MinDailyCalories {
		res.advise(AdvisoryCaloriesFloor, fmt.Sprintf("computed %.0f kcal raised to the %.0f kcal floor", kcal, MinDailyCalories))
		return MinDailyCalories
	}
	return kcal
}

// customSplit applies an explicit protein tier and carb/fat percentages.
// Out-of-range values are clamped, and the split is reconciled to 100 by adjusting fat last.
func (c *Calculator) customSplit(res *Result, p profiles.PatientProfile) MacroSplit {
	m := p.Macros
	cal := res.DailyCalories

	protein := 25.0
	if tier := strings.ToLower(strings.TrimSpace(m.ProteinTier)); tier != "" {
		gpk, ok := ProteinTiers[tier]
		if !ok {
			gpk = ProteinTiers["conservada"]
			res.advise(AdvisoryUnknownTier, fmt.Sprintf("protein tier %q is unknown, using %.2f g/kg", m.ProteinTier, gpk))
		}
		ideal := p.WeightKg * gpk
		protein = math.Min(ideal*4/cal*100, proteinPctCap)
		achievable := cal * protein / 100 / 4
		if gap := math.Abs(ideal-achievable) / ideal; gap > proteinGapLimit {
			res.advise(AdvisoryProteinGap, fmt.Sprintf(
				"ideal protein %.0f g (%.2f g/kg) vs achievable %.0f g within %.0f kcal, gap %.0f%%",
				ideal, gpk, achievable, cal, gap*100))
		}
	}

	carbs := defaultCarbsPct(p.Goal)
	switch {
	case m.CarbsPct != nil:
		carbs = clamp(*m.CarbsPct, 0, 100)
	case m.FatPct != nil:
		// only fat given: carbs take the remainder
		carbs = math.Max(100-protein-clamp(*m.FatPct, fatPctMin, fatPctMax), 0)
	}

	// fat is reconciled last; carbs move only when fat hits a clamp
	fat := 100 - protein - carbs
	if fat < fatPctMin || fat > fatPctMax {
		fat = clamp(fat, fatPctMin, fatPctMax)
		carbs = 100 - protein - fat
		if carbs < 0 {
			carbs = 0
			protein = 100 - fat
		}
	}
	return MacroSplit{ProteinPct: round1(protein), CarbsPct: round1(carbs), FatPct: round1(100 - round1(protein) - round1(carbs))}
}

// pregnancy is the exclusive path taken when any pregnancy-family condition is active.
func (c *Calculator) pregnancy(res *Result, p profiles.PatientProfile, agg conditions.Aggregated) {
	state := agg.Pregnancy
	tri := state.Trimester
	adj := tri.Adjustment

	res.Path = PathPregnancy
	if p.Goal != profiles.GoalMaintain {
		res.advise(AdvisoryPregnancyGoal, "weight goal is not applied during pregnancy")
	}
	if !p.Macros.Empty() {
		res.advise(AdvisoryPregnancyCustom, "custom macro settings are not applied during pregnancy")
	}

	res.ConditionDelta = adj.CaloriesDelta
	cal := c.floorCalories(res, res.TDEE+adj.CaloriesDelta)
	res.DailyCalories = cal

	gpk := defaultPregnancyProtein
	if adj.ProteinGPerKg != nil {
		gpk = *adj.ProteinGPerKg
	}
	weight := p.WeightKg
	if tri.Pregnancy.Trimester == 1 && p.PregestationalWeightKg != nil && *p.PregestationalWeightKg > 0 {
		weight = *p.PregestationalWeightKg
	}
	proteinTarget := weight * gpk

	split := MacroSplit{ProteinPct: 20, CarbsPct: 50, FatPct: 30}
	if adj.Macros != nil {
		split = splitFromTriple(*adj.Macros)
	}
	minCarbs := defaultPregnancyMinCarbsG
	if adj.MinCarbsG != nil {
		minCarbs = *adj.MinCarbsG
	}
	split = enforceCarbFloor(split, cal, minCarbs)

	info := &PregnancyInfo{
		Trimester:        tri.Pregnancy.Trimester,
		TrimesterID:      tri.ID,
		AssumedTrimester: state.AssumedTrimester,
		Overlays:         state.OverlayIDs(),
		MinCarbsG:        minCarbs,
		MealDistribution: tri.MealDistribution,
		Micronutrients:   make(map[string]float64, len(pregnancyMicronutrientDefaults)),
	}

	for _, o := range state.Overlays {
		ov := o.Overlay
		if ov.CarbsMaxPct > 0 && split.CarbsPct > ov.CarbsMaxPct {
			split.CarbsPct = ov.CarbsMaxPct
		}
		if ov.ProteinPct > 0 {
			split.ProteinPct = ov.ProteinPct
		}
		split.FatPct = 100 - split.CarbsPct - split.ProteinPct
		if ov.CarbsPerMealMaxG > 0 {
			info.CarbsPerMealMaxG = ov.CarbsPerMealMaxG
		}
		if ov.CarbsPerSnackMaxG > 0 {
			info.CarbsPerSnackMaxG = ov.CarbsPerSnackMaxG
		}
	}
	if floored := enforceCarbFloor(split, cal, minCarbs); floored != split {
		if len(state.Overlays) > 0 {
			res.advise(AdvisoryOverlayFloor, fmt.Sprintf(
				"overlay carb ceiling would drop carbohydrates under %.0f g; the floor was kept", minCarbs))
		}
		split = floored
	}
	if split.FatPct < 0 {
		split.ProteinPct += split.FatPct
		split.FatPct = 0
	}

	res.Split = MacroSplit{ProteinPct: round1(split.ProteinPct), CarbsPct: round1(split.CarbsPct)}
	res.Split.FatPct = round1(100 - res.Split.ProteinPct - res.Split.CarbsPct)

	res.CarbsG = math.Max(grams(cal, split.CarbsPct, 4), math.Ceil(minCarbs))
	res.ProteinG = math.Round(math.Max(proteinTarget, cal*split.ProteinPct/100/4))
	res.FatG = grams(cal, split.FatPct, 9)
	res.MinCarbsG = minCarbs
	res.FiberMinG = conditions.DefaultFiberMinG
	if adj.FiberMinG != nil {
		res.FiberMinG = *adj.FiberMinG
	}
	res.SodiumMaxMg = adj.SodiumMaxMg
	for _, o := range state.Overlays {
		if o.Adjustment.SodiumMaxMg != nil && (res.SodiumMaxMg == nil || *o.Adjustment.SodiumMaxMg < *res.SodiumMaxMg) {
			v := *o.Adjustment.SodiumMaxMg
			res.SodiumMaxMg = &v
		}
	}

	for k, v := range pregnancyMicronutrientDefaults {
		info.Micronutrients[k] = v
	}
	for k, v := range adj.Micronutrients {
		info.Micronutrients[k] = v
	}
	info.ProteinTargetG = math.Round(proteinTarget)
	res.Micronutrients = info.Micronutrients
	res.Pregnancy = info
}

// enforceCarbFloor raises the carb share so carb grams reach minCarbs and
// splits the remainder between protein and fat in their current proportion.
func enforceCarbFloor(s MacroSplit, cal, minCarbs float64) MacroSplit {
	if cal <= 0 || cal*s.CarbsPct/100/4 >= minCarbs {
		return s
	}
	carbs := math.Min(minCarbs*4/cal*100, 100)
	remaining := 100 - carbs
	other := s.ProteinPct + s.FatPct
	protein := remaining / 2
	if other > 0 {
		protein = s.ProteinPct / other * remaining
	}
	return MacroSplit{ProteinPct: protein, CarbsPct: carbs, FatPct: remaining - protein}
}

func grams(kcal, pct, kcalPerGram float64) float64 {
	return math.Round(kcal * pct / 100 / kcalPerGram)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
