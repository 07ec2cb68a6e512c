package profiles

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type Goal string

const (
	GoalMaintain Goal = "maintain"
	GoalLose     Goal = "lose"
	GoalGain     Goal = "gain"
)

type Strategy string

const (
	StrategyTraditional Strategy = "traditional"
	StrategyEquitable   Strategy = "equitable"
	StrategyCustom      Strategy = "custom"
)

// Activity — одна позиция детализированной активности.
// KcalPerDay wins over the catalog lookup when set.
type Activity struct {
	Key               string   `json:"key" validate:"required_without=KcalPerDay"`
	MinutesPerSession int      `json:"minutes_per_session" validate:"gte=0,lte=600"`
	SessionsPerWeek   int      `json:"sessions_per_week" validate:"gte=0,lte=21"`
	KcalPerDay        *float64 `json:"kcal_per_day,omitempty" validate:"omitempty,gte=0,lte=5000"`
	CustomKcalPerHour *float64 `json:"custom_kcal_per_hour,omitempty" validate:"omitempty,gte=0,lte=2000"`
}

type SupplementDose struct {
	ID        string  `json:"id" validate:"required"`
	Name      string  `json:"name,omitempty"`
	Dose      string  `json:"dose,omitempty"`
	Frequency string  `json:"frequency,omitempty"`
	Servings  float64 `json:"servings,omitempty" validate:"gte=0,lte=20"`
}

// MacroOverride carries explicit customization. Out-of-range values are clamped later, not rejected.
type MacroOverride struct {
	ProteinTier string   `json:"protein_tier,omitempty"`
	CarbsPct    *float64 `json:"carbs_pct,omitempty"`
	FatPct      *float64 `json:"fat_pct,omitempty"`
}

func (m *MacroOverride) Empty() bool {
	return m == nil || (m.ProteinTier == "" && m.CarbsPct == nil && m.FatPct == nil)
}

type CustomSlot struct {
	Calories float64  `json:"calories" validate:"gte=0"`
	ProteinG *float64 `json:"protein_g,omitempty" validate:"omitempty,gte=0"`
	CarbsG   *float64 `json:"carbs_g,omitempty" validate:"omitempty,gte=0"`
	FatG     *float64 `json:"fat_g,omitempty" validate:"omitempty,gte=0"`
}

// PatientProfile is the immutable input of one planning request.
type PatientProfile struct {
	Name     string  `json:"name,omitempty" validate:"max=120"`
	Sex      Sex     `json:"sex" validate:"required,oneof=male female"`
	AgeYears int     `json:"age" validate:"required,gte=1,lte=120"`
	HeightCm float64 `json:"height_cm" validate:"required,gte=50,lte=260"`
	WeightKg float64 `json:"weight_kg" validate:"required,gte=20,lte=400"`
	// PregestationalWeightKg is used for trimester 1 protein targets.
	PregestationalWeightKg *float64 `json:"pregestational_weight_kg,omitempty" validate:"omitempty,gte=20,lte=400"`

	ActivityType      string     `json:"activity_type,omitempty"`
	ActivityFrequency int        `json:"activity_frequency,omitempty" validate:"gte=0,lte=21"`
	ActivityDuration  int        `json:"activity_duration_min,omitempty" validate:"gte=0,lte=600"`
	Activities        []Activity `json:"activities,omitempty" validate:"dive"`

	Goal              Goal    `json:"goal" validate:"required,oneof=maintain lose gain"`
	GoalRateKgPerWeek float64 `json:"goal_rate_kg_per_week,omitempty" validate:"goal_rate"`

	Pathologies  string           `json:"pathologies,omitempty" validate:"max=4000"`
	ConditionIDs []string         `json:"conditions,omitempty" validate:"dive,required"`
	Medications  []string         `json:"medications,omitempty" validate:"dive,required"`
	Supplements  []SupplementDose `json:"supplements,omitempty" validate:"dive"`

	Restrictions string   `json:"restrictions,omitempty" validate:"max=2000"`
	Preferences  []string `json:"preferences,omitempty"`
	BudgetTier   string   `json:"budget_tier,omitempty"`

	MealSlots    []string              `json:"meal_slots,omitempty" validate:"dive,required"`
	Strategy     Strategy              `json:"strategy,omitempty" validate:"omitempty,oneof=traditional equitable custom"`
	IncludeSnack bool                  `json:"include_snack,omitempty"`
	CustomSlots  map[string]CustomSlot `json:"custom_slots,omitempty" validate:"dive"`

	Macros *MacroOverride `json:"macros,omitempty"`
}

// DefaultMealSlots is used when the profile does not name any slot.
var DefaultMealSlots = []string{"breakfast", "lunch", "merienda", "dinner"}

var goalRates = []float64{0, 0.25, 0.5, 0.75, 1}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func profileValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		_ = validate.RegisterValidation("goal_rate", func(fl validator.FieldLevel) bool {
			v := fl.Field().Float()
			for _, r := range goalRates {
				if math.Abs(v-r) < 1e-9 {
					return true
				}
			}
			return false
		})
	})
	return validate
}

// FieldError — одна ошибка валидации в формате API.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field of a profile.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid profile: " + strings.Join(parts, "; ")
}

// Normalize lowercases enums and fills defaults. It returns a copy.
func (p PatientProfile) Normalize() PatientProfile {
	p.Sex = normalizeSex(string(p.Sex))
	p.Goal = Goal(strings.ToLower(strings.TrimSpace(string(p.Goal))))
	if p.Goal == "" {
		p.Goal = GoalMaintain
	}
	if p.Goal == GoalMaintain {
		p.GoalRateKgPerWeek = 0
	}
	p.Strategy = Strategy(strings.ToLower(strings.TrimSpace(string(p.Strategy))))
	if p.Strategy == "" {
		p.Strategy = StrategyTraditional
	}
	if len(p.MealSlots) == 0 {
		p.MealSlots = append([]string(nil), DefaultMealSlots...)
	} else {
		slots := make([]string, 0, len(p.MealSlots))
		for _, s := range p.MealSlots {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				slots = append(slots, s)
			}
		}
		p.MealSlots = slots
	}
	for i := range p.Supplements {
		if p.Supplements[i].Servings == 0 {
			p.Supplements[i].Servings = 1
		}
	}
	return p
}

func normalizeSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "m", "male", "masculino", "hombre", "varon", "varón":
		return SexMale
	case "f", "female", "femenino", "mujer":
		return SexFemale
	default:
		return Sex(strings.ToLower(strings.TrimSpace(s)))
	}
}

// Validate checks the profile and returns *ValidationError on bad input.
func (p PatientProfile) Validate() error {
	err := profileValidator().Struct(p)
	if err == nil {
		if p.Goal != GoalMaintain && p.GoalRateKgPerWeek == 0 {
			return &ValidationError{Fields: []FieldError{{Field: "goal_rate_kg_per_week", Message: "required when goal is lose or gain"}}}
		}
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fieldPath(fe), Message: fieldMessage(fe)})
	}
	return out
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_without":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "gte":
		return "must be >= " + fe.Param()
	case "lte":
		return "must be <= " + fe.Param()
	case "max":
		return "is too long"
	case "goal_rate":
		return "must be one of 0, 0.25, 0.5, 0.75, 1"
	default:
		return "is invalid"
	}
}
