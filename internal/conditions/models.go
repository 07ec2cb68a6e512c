package conditions

// MacroTriple is a protein/carbs/fat split in percent of daily calories.
type MacroTriple struct {
	Protein float64 `yaml:"protein" json:"protein"`
	Carbs   float64 `yaml:"carbs" json:"carbs"`
	Fat     float64 `yaml:"fat" json:"fat"`
}

func (m MacroTriple) Sum() float64 {
	return m.Protein + m.Carbs + m.Fat
}

// NutritionalAdjustment описывает, как условие меняет суточные цели.
// Nil pointers mean "not constrained by this condition".
type NutritionalAdjustment struct {
	CaloriesDelta  float64            `yaml:"calories_delta" json:"calories_delta"`
	Macros         *MacroTriple       `yaml:"macros" json:"macros,omitempty"`
	MinCarbsG      *float64           `yaml:"min_carbs_g" json:"min_carbs_g,omitempty"`
	SodiumMaxMg    *float64           `yaml:"sodium_max_mg" json:"sodium_max_mg,omitempty"`
	FiberMinG      *float64           `yaml:"fiber_min_g" json:"fiber_min_g,omitempty"`
	FiberMaxG      *float64           `yaml:"fiber_max_g" json:"fiber_max_g,omitempty"`
	ProteinGPerKg  *float64           `yaml:"protein_g_per_kg" json:"protein_g_per_kg,omitempty"`
	Micronutrients map[string]float64 `yaml:"micronutrients" json:"micronutrients,omitempty"`
}

type TagPolicy struct {
	Avoid  []string `json:"avoid"`
	Prefer []string `json:"prefer"`
}

// PregnancyRule marks a trimester condition.
type PregnancyRule struct {
	Trimester int `yaml:"trimester" json:"trimester"`
}

// OverlayRule marks a pregnancy complication layered on top of a trimester.
type OverlayRule struct {
	CarbsMaxPct       float64 `yaml:"carbs_max_pct" json:"carbs_max_pct,omitempty"`
	ProteinPct        float64 `yaml:"protein_pct" json:"protein_pct,omitempty"`
	CarbsPerMealMaxG  float64 `yaml:"carbs_per_meal_max_g" json:"carbs_per_meal_max_g,omitempty"`
	CarbsPerSnackMaxG float64 `yaml:"carbs_per_snack_max_g" json:"carbs_per_snack_max_g,omitempty"`
}

type Condition struct {
	ID               string                `yaml:"id" json:"id"`
	Name             string                `yaml:"name" json:"name"`
	Description      string                `yaml:"description" json:"description,omitempty"`
	Adjustment       NutritionalAdjustment `yaml:"adjustment" json:"adjustment"`
	Flags            map[string]string     `yaml:"flags" json:"flags,omitempty"`
	Restrictions     []string              `yaml:"restrictions" json:"restrictions,omitempty"`
	AvoidTags        []string              `yaml:"avoid_tags" json:"avoid_tags,omitempty"`
	PreferTags       []string              `yaml:"prefer_tags" json:"prefer_tags,omitempty"`
	MealDistribution map[string]float64    `yaml:"meal_distribution" json:"meal_distribution,omitempty"`
	Considerations   []string              `yaml:"considerations" json:"considerations,omitempty"`
	Pregnancy        *PregnancyRule        `yaml:"pregnancy" json:"pregnancy,omitempty"`
	Overlay          *OverlayRule          `yaml:"overlay" json:"overlay,omitempty"`
}

func (c *Condition) Tags() TagPolicy {
	return TagPolicy{Avoid: c.AvoidTags, Prefer: c.PreferTags}
}

// IsPregnancy reports whether the condition belongs to the pregnancy family.
func (c *Condition) IsPregnancy() bool {
	return c.Pregnancy != nil || c.Overlay != nil
}
