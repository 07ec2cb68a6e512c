package planvalidator

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/fdg312/nutriplan/internal/profiles"
)

var ErrInvalidCandidate = errors.New("invalid meal plan candidate")

const DefaultTolerance = 0.05

// Option is one interchangeable alternative of a meal slot.
type Option struct {
	Name        string   `json:"name,omitempty"`
	Description string   `json:"description,omitempty"`
	RecipeIDs   []string `json:"recipe_ids,omitempty"`
	Calories    float64  `json:"calories"`
	ProteinG    float64  `json:"protein_g"`
	CarbsG      float64  `json:"carbs_g"`
	FatG        float64  `json:"fat_g"`
}

func (o Option) macro(m Macro) float64 {
	switch m {
	case MacroProtein:
		return o.ProteinG
	case MacroCarbs:
		return o.CarbsG
	case MacroFat:
		return o.FatG
	default:
		return o.Calories
	}
}

// Candidate is an externally generated plan. Treat it as untrusted.
type Candidate struct {
	Slots map[string][]Option `json:"slots"`
	Notes string              `json:"notes,omitempty"`
}

type Macro string

const (
	MacroCalories Macro = "calories"
	MacroProtein  Macro = "protein_g"
	MacroCarbs    Macro = "carbs_g"
	MacroFat      Macro = "fat_g"
)

var macros = []Macro{MacroCalories, MacroProtein, MacroCarbs, MacroFat}

type Check string

const (
	CheckEquivalence Check = "equivalence"
	CheckEquitable   Check = "equitable"
	CheckLightness   Check = "lightness"
	CheckCarbFloor   Check = "carb_floor"
	CheckReconcile   Check = "reconcile"
	CheckCoverage    Check = "coverage"
	CheckOptionCount Check = "option_count"
	// CheckFormat is reported by callers when no candidate could be parsed.
	CheckFormat Check = "format"
)

// Violation — одно нарушение. Option is 1-based, zero for slot or day level checks.
type Violation struct {
	Check     Check   `json:"check"`
	Slot      string  `json:"slot,omitempty"`
	Option    int     `json:"option,omitempty"`
	Macro     Macro   `json:"macro"`
	Reference float64 `json:"reference"`
	Actual    float64 `json:"actual"`
	DiffPct   float64 `json:"diff_pct"`
	Message   string  `json:"message"`
}

type Result struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations"`
}

// Messages returns the violation messages in order.
func (r Result) Messages() []string {
	out := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		out[i] = v.Message
	}
	return out
}

type Options struct {
	Strategy  profiles.Strategy
	Tolerance float64
	// MinDailyCarbsG enables the daily carb floor on first options when positive.
	MinDailyCarbsG float64
	// Slots lists the slot names the plan must cover. Empty skips the check.
	Slots []string
	// OptionsPerSlot is the exact option count every slot must carry. Zero skips the check.
	OptionsPerSlot int
}

// ParseCandidate decodes {"slots":{"breakfast":[{...}]}} strictly.
func ParseCandidate(r io.Reader) (Candidate, error) {
	var c Candidate
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrInvalidCandidate, err)
	}
	if err := c.Check(); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

func ParseCandidateBytes(b []byte) (Candidate, error) {
	return ParseCandidate(bytes.NewReader(b))
}

// Check rejects structurally broken candidates.
func (c Candidate) Check() error {
	if len(c.Slots) == 0 {
		return fmt.Errorf("%w: no slots", ErrInvalidCandidate)
	}
	for name, opts := range c.Slots {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty slot name", ErrInvalidCandidate)
		}
		if len(opts) == 0 {
			return fmt.Errorf("%w: slot %q has no options", ErrInvalidCandidate, name)
		}
		for i, o := range opts {
			for _, m := range macros {
				v := o.macro(m)
				if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
					return fmt.Errorf("%w: slot %q option %d: invalid %s", ErrInvalidCandidate, name, i+1, m)
				}
			}
		}
	}
	return nil
}

// RecipeIDs returns every referenced recipe id, deduplicated in slot order.
func (c Candidate) RecipeIDs() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, slot := range orderedSlots(c) {
		for _, o := range c.Slots[slot] {
			for _, id := range o.RecipeIDs {
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}
