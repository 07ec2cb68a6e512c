package conditions

// Combinator says how values of one adjustment field merge across active conditions.
type Combinator int

const (
	CombineSum Combinator = iota
	CombineMax
	CombineMin
	CombineLowestCarbTriple
	CombineOverride
)

func (c Combinator) String() string {
	switch c {
	case CombineSum:
		return "sum"
	case CombineMax:
		return "max"
	case CombineMin:
		return "min"
	case CombineLowestCarbTriple:
		return "lowest_carb_triple"
	case CombineOverride:
		return "override"
	default:
		return "unknown"
	}
}

type Field string

const (
	FieldCaloriesDelta Field = "calories_delta"
	FieldMinCarbs      Field = "min_carbs_g"
	FieldFiberMin      Field = "fiber_min_g"
	FieldFiberMax      Field = "fiber_max_g"
	FieldSodiumMax     Field = "sodium_max_mg"
	FieldProteinPerKg  Field = "protein_g_per_kg"
	FieldMacros        Field = "macros"
	FieldPregnancy     Field = "pregnancy"
)

// Rule binds an adjustment field to its combinator.
type Rule struct {
	Field      Field
	Combinator Combinator
}

// Rules is the declared merge policy. Aggregate consults it for every field.
var Rules = []Rule{
	{Field: FieldCaloriesDelta, Combinator: CombineSum},
	{Field: FieldMinCarbs, Combinator: CombineMax},
	{Field: FieldFiberMin, Combinator: CombineMax},
	{Field: FieldFiberMax, Combinator: CombineMin},
	{Field: FieldSodiumMax, Combinator: CombineMin},
	{Field: FieldProteinPerKg, Combinator: CombineMax},
	{Field: FieldMacros, Combinator: CombineLowestCarbTriple},
	{Field: FieldPregnancy, Combinator: CombineOverride},
}

const (
	DefaultMinCarbsG = 130.0
	DefaultFiberMinG = 25.0
	// DefaultTrimester is assumed when only a pregnancy overlay is active.
	DefaultTrimester = 2
)

func ruleFor(f Field) Combinator {
	for _, r := range Rules {
		if r.Field == f {
			return r.Combinator
		}
	}
	return CombineSum
}

// Aggregated is the merged view of a set of active conditions.
type Aggregated struct {
	Conditions []string `json:"conditions"`
	Unknown    []string `json:"unknown,omitempty"`

	CaloriesDelta float64      `json:"calories_delta"`
	Macros        *MacroTriple `json:"macros,omitempty"`
	MacrosFrom    string       `json:"macros_from,omitempty"`
	// ConflictingTriples lists conditions whose triple lost to MacrosFrom.
	ConflictingTriples []string `json:"conflicting_triples,omitempty"`

	MinCarbsG      float64            `json:"min_carbs_g"`
	FiberMinG      float64            `json:"fiber_min_g"`
	FiberMaxG      *float64           `json:"fiber_max_g,omitempty"`
	SodiumMaxMg    *float64           `json:"sodium_max_mg,omitempty"`
	ProteinGPerKg  *float64           `json:"protein_g_per_kg,omitempty"`
	Micronutrients map[string]float64 `json:"micronutrients,omitempty"`

	Restrictions     []string           `json:"restrictions,omitempty"`
	Tags             TagPolicy          `json:"tags"`
	MealDistribution map[string]float64 `json:"meal_distribution,omitempty"`
	Considerations   []string           `json:"considerations,omitempty"`

	Pregnancy *PregnancyState `json:"pregnancy,omitempty"`
}

// PregnancyState is set when any pregnancy-family condition is active.
// When present it overrides generic calorie and macro aggregation.
type PregnancyState struct {
	Trimester        *Condition   `json:"trimester"`
	Overlays         []*Condition `json:"overlays,omitempty"`
	AssumedTrimester bool         `json:"assumed_trimester"`
}

// OverlayIDs returns overlay ids in activation order.
func (p *PregnancyState) OverlayIDs() []string {
	out := make([]string, 0, len(p.Overlays))
	for _, o := range p.Overlays {
		out = append(out, o.ID)
	}
	return out
}

func (p *PregnancyState) HasOverlay(id string) bool {
	for _, o := range p.Overlays {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Active reports whether any condition was recognized.
func (a Aggregated) Active() bool {
	return len(a.Conditions) > 0
}

// Aggregate folds the given condition ids through Rules. Unknown ids are
// reported and otherwise ignored. Duplicate ids count once.
func (c *Catalog) Aggregate(ids []string) Aggregated {
	out := Aggregated{}
	seen := make(map[string]struct{}, len(ids))
	active := make([]*Condition, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		cond, ok := c.byID[id]
		if !ok {
			out.Unknown = append(out.Unknown, id)
			continue
		}
		active = append(active, cond)
		out.Conditions = append(out.Conditions, id)
	}
	if len(active) == 0 {
		return out
	}

	out.Restrictions = c.Restrictions(out.Conditions)
	out.Tags = TagPolicy{Avoid: c.AvoidTags(out.Conditions), Prefer: c.PreferTags(out.Conditions)}
	out.Considerations = considerations(active)

	if preg := c.pregnancyState(active); preg != nil && ruleFor(FieldPregnancy) == CombineOverride {
		out.Pregnancy = preg
		out.MealDistribution = preg.Trimester.MealDistribution
		return out
	}

	// defaults apply only when no active condition declares the bound
	var minCarbs, fiberMin *float64

	var triples []*Condition
	for _, cond := range active {
		adj := cond.Adjustment
		out.CaloriesDelta = combineValue(ruleFor(FieldCaloriesDelta), out.CaloriesDelta, adj.CaloriesDelta)
		combineInto(ruleFor(FieldMinCarbs), &minCarbs, adj.MinCarbsG)
		combineInto(ruleFor(FieldFiberMin), &fiberMin, adj.FiberMinG)
		combineInto(ruleFor(FieldFiberMax), &out.FiberMaxG, adj.FiberMaxG)
		combineInto(ruleFor(FieldSodiumMax), &out.SodiumMaxMg, adj.SodiumMaxMg)
		combineInto(ruleFor(FieldProteinPerKg), &out.ProteinGPerKg, adj.ProteinGPerKg)
		for k, v := range adj.Micronutrients {
			if out.Micronutrients == nil {
				out.Micronutrients = make(map[string]float64)
			}
			if cur, ok := out.Micronutrients[k]; !ok || v > cur {
				out.Micronutrients[k] = v
			}
		}
		if adj.Macros != nil {
			triples = append(triples, cond)
		}
		if out.MealDistribution == nil && len(cond.MealDistribution) > 0 {
			out.MealDistribution = cond.MealDistribution
		}
	}

	out.MinCarbsG = valueOr(minCarbs, DefaultMinCarbsG)
	out.FiberMinG = valueOr(fiberMin, DefaultFiberMinG)

	if winner := lowestCarbTriple(triples); winner != nil {
		m := *winner.Adjustment.Macros
		out.Macros = &m
		out.MacrosFrom = winner.ID
		for _, cond := range triples {
			if cond.ID != winner.ID && *cond.Adjustment.Macros != m {
				out.ConflictingTriples = append(out.ConflictingTriples, cond.ID)
			}
		}
	}
	return out
}

// lowestCarbTriple picks the triple with the smallest carb share; ties keep the first.
func lowestCarbTriple(conds []*Condition) *Condition {
	var best *Condition
	for _, cond := range conds {
		if best == nil || cond.Adjustment.Macros.Carbs < best.Adjustment.Macros.Carbs {
			best = cond
		}
	}
	return best
}

func (c *Catalog) pregnancyState(active []*Condition) *PregnancyState {
	var state *PregnancyState
	for _, cond := range active {
		if !cond.IsPregnancy() {
			continue
		}
		if state == nil {
			state = &PregnancyState{}
		}
		switch {
		case cond.Pregnancy != nil && state.Trimester == nil:
			state.Trimester = cond
		case cond.Overlay != nil:
			state.Overlays = append(state.Overlays, cond)
		}
	}
	if state == nil {
		return nil
	}
	if state.Trimester == nil {
		state.Trimester, _ = c.TrimesterCondition(DefaultTrimester)
		state.AssumedTrimester = true
		if state.Trimester == nil {
			return nil
		}
	}
	return state
}

func combineValue(op Combinator, acc, v float64) float64 {
	switch op {
	case CombineMax:
		if v > acc {
			return v
		}
		return acc
	case CombineMin:
		if v < acc {
			return v
		}
		return acc
	default:
		return acc + v
	}
}

// combineInto merges an optional value into an optional accumulator.
func combineInto(op Combinator, acc **float64, v *float64) {
	if v == nil {
		return
	}
	if *acc == nil {
		x := *v
		*acc = &x
		return
	}
	x := combineValue(op, **acc, *v)
	*acc = &x
}

func considerations(active []*Condition) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, cond := range active {
		for _, s := range cond.Considerations {
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
