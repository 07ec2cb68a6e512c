package recipes

import (
	"math"
	"sort"
	"strings"

	"github.com/fdg312/nutriplan/internal/conditions"
	"github.com/fdg312/nutriplan/internal/detect"
)

const (
	scoreNameTerm       = 10
	scoreIngredientTerm = 2
	scorePreferTag      = 10
	scoreEconomical     = 2
	scoreComplete       = 5

	// DefaultSimilarTolerance is the macro window of the replacement search.
	DefaultSimilarTolerance = 0.20
	// zeroTargetSlackG is accepted around a zero gram target.
	zeroTargetSlackG = 2.0
)

// Criteria describes one selection request.
type Criteria struct {
	Restrictions string       `json:"restrictions,omitempty"`
	Conditions   []string     `json:"conditions,omitempty"`
	BudgetTier   string       `json:"budget_tier,omitempty"`
	Preferences  []string     `json:"preferences,omitempty"`
	Target       *MacroTarget `json:"target,omitempty"`
	Limit        int          `json:"limit,omitempty"`
}

// Candidate is a recipe that survived filtering.
type Candidate struct {
	Recipe
	Score      float64  `json:"score"`
	Similarity *float64 `json:"similarity,omitempty"`
}

// Selector filters and ranks recipes. It only reads its catalogs and is safe for concurrent use.
type Selector struct {
	conditions *conditions.Catalog
	filters    *Filters
}

func NewSelector(cat *conditions.Catalog, f *Filters) *Selector {
	return &Selector{conditions: cat, filters: f}
}

type plan struct {
	banned      []string
	avoid       map[string]struct{}
	prefer      []string
	pregnancy   bool
	constrained bool
	prefs       []string
}

func (s *Selector) prepare(c Criteria) plan {
	p := plan{
		banned:      s.filters.ExpandRestrictions(append([]string{c.Restrictions}, s.conditions.Restrictions(c.Conditions)...)...),
		avoid:       make(map[string]struct{}),
		prefer:      s.conditions.PreferTags(c.Conditions),
		constrained: s.filters.Constrained(c.BudgetTier),
	}
	for _, t := range s.conditions.AvoidTags(c.Conditions) {
		p.avoid[strings.ToLower(t)] = struct{}{}
	}
	for _, id := range c.Conditions {
		if s.conditions.IsPregnancy(id) {
			p.pregnancy = true
		}
	}
	for _, pref := range c.Preferences {
		for _, part := range strings.Split(pref, ",") {
			if part = strings.TrimSpace(detect.Fold(part)); part != "" {
				p.prefs = append(p.prefs, part)
			}
		}
	}
	return p
}

// Select drops recipes that break a restriction, budget, avoid-tag or
// pregnancy rule and ranks the rest by score, highest first.
func (s *Selector) Select(recipes []Recipe, c Criteria) []Candidate {
	p := s.prepare(c)
	out := make([]Candidate, 0, len(recipes))
	for _, r := range recipes {
		ingredients := detect.Fold(r.IngredientText())
		if reason := s.reject(r, ingredients, p); reason != "" {
			continue
		}
		cand := Candidate{Recipe: r, Score: s.score(r, ingredients, p)}
		if c.Target != nil {
			sim := Similarity(r, *c.Target)
			cand.Similarity = &sim
		}
		out = append(out, cand)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if c.Limit > 0 && len(out) > c.Limit {
		out = out[:c.Limit]
	}
	return out
}

// Rejection returns why a recipe would be filtered out, or "" when it passes.
func (s *Selector) Rejection(r Recipe, c Criteria) string {
	return s.reject(r, detect.Fold(r.IngredientText()), s.prepare(c))
}

func (s *Selector) reject(r Recipe, ingredients string, p plan) string {
	for _, kw := range p.banned {
		if strings.Contains(ingredients, kw) {
			return "restricted ingredient: " + kw
		}
	}
	if p.constrained {
		if group, kw, ok := s.filters.ExpensiveMatch(ingredients); ok {
			return "expensive " + group + ": " + kw
		}
	}
	for _, t := range r.Tags {
		if _, bad := p.avoid[strings.ToLower(t)]; bad {
			return "avoided tag: " + t
		}
	}
	if p.pregnancy {
		text := ingredients + " " + detect.Fold(r.Name)
		for _, kw := range s.filters.PregnancyUnsafe {
			if strings.Contains(text, kw) {
				return "unsafe during pregnancy: " + kw
			}
		}
	}
	return ""
}

func (s *Selector) score(r Recipe, ingredients string, p plan) float64 {
	var score float64
	name := detect.Fold(r.Name)
	for _, pref := range p.prefs {
		if strings.Contains(name, pref) {
			score += scoreNameTerm
		}
		if strings.Contains(ingredients, pref) {
			score += scoreIngredientTerm
		}
	}
	for _, tag := range p.prefer {
		if r.HasTag(tag) {
			score += scorePreferTag
		}
	}
	if p.constrained {
		for _, kw := range s.filters.Economical {
			if strings.Contains(ingredients, kw) {
				score += scoreEconomical
			}
		}
	}
	if r.Complete() {
		score += scoreComplete
	}
	return score
}

// Similar keeps recipes whose every macro is within tolerance of target,
// most similar first. A tolerance <= 0 uses DefaultSimilarTolerance.
func Similar(recipes []Recipe, target MacroTarget, tolerance float64) []Candidate {
	if tolerance <= 0 {
		tolerance = DefaultSimilarTolerance
	}
	out := make([]Candidate, 0)
	for _, r := range recipes {
		if !within(r.ProteinG, target.ProteinG, tolerance) ||
			!within(r.CarbsG, target.CarbsG, tolerance) ||
			!within(r.FatG, target.FatG, tolerance) {
			continue
		}
		sim := Similarity(r, target)
		out = append(out, Candidate{Recipe: r, Score: sim, Similarity: &sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func within(v, target, tolerance float64) bool {
	if target <= 0 {
		return v <= zeroTargetSlackG
	}
	return math.Abs(v-target)/target <= tolerance
}
