package planvalidator

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fdg312/nutriplan/internal/profiles"
)

const (
	lightnessRatio     = 0.80
	reconcileTolerance = 0.15
)

// mainSlots is the closed set of main meals, Spanish names included.
var mainSlots = map[string]int{
	"breakfast": 0,
	"desayuno":  0,
	"lunch":     1,
	"almuerzo":  1,
	"merienda":  2,
	"dinner":    3,
	"cena":      3,
}

func IsMainSlot(name string) bool {
	_, ok := mainSlots[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Validate runs every check and collects all violations.
func Validate(c Candidate, opts Options) Result {
	tol := opts.Tolerance
	if tol <= 0 {
		tol = DefaultTolerance
	}

	var vs []Violation
	slots := orderedSlots(c)

	vs = append(vs, coverage(c, slots, opts)...)

	for _, slot := range slots {
		options := c.Slots[slot]
		if len(options) == 0 {
			continue
		}
		ref := options[0]
		for i := 1; i < len(options); i++ {
			for _, m := range macros {
				if v, bad := compare(ref.macro(m), options[i].macro(m), tol); bad {
					v.Check = CheckEquivalence
					v.Slot = slot
					v.Option = i + 1
					v.Macro = m
					v.Message = fmt.Sprintf("slot %q option %d: %s %s differs %.1f%% from option 1 (%s)",
						slot, i+1, m, num(v.Actual), v.DiffPct, num(v.Reference))
					vs = append(vs, v)
				}
			}
		}
	}

	var main []string
	for _, slot := range slots {
		if IsMainSlot(slot) && len(c.Slots[slot]) > 0 {
			main = append(main, slot)
		}
	}

	if opts.Strategy == profiles.StrategyEquitable {
		for i := 0; i < len(main); i++ {
			for j := i + 1; j < len(main); j++ {
				a, b := c.Slots[main[i]][0], c.Slots[main[j]][0]
				for _, m := range macros {
					if v, bad := compare(a.macro(m), b.macro(m), tol); bad {
						v.Check = CheckEquitable
						v.Slot = main[j]
						v.Option = 1
						v.Macro = m
						v.Message = fmt.Sprintf("equitable plan: %q %s %s differs %.1f%% from %q (%s)",
							main[j], m, num(v.Actual), v.DiffPct, main[i], num(v.Reference))
						vs = append(vs, v)
					}
				}
			}
		}
	}

	if len(main) > 0 {
		var sum float64
		for _, slot := range main {
			sum += c.Slots[slot][0].Calories
		}
		avg := sum / float64(len(main))
		limit := avg * lightnessRatio
		for _, slot := range slots {
			if IsMainSlot(slot) {
				continue
			}
			for i, o := range c.Slots[slot] {
				if o.Calories <= limit {
					continue
				}
				vs = append(vs, Violation{
					Check:     CheckLightness,
					Slot:      slot,
					Option:    i + 1,
					Macro:     MacroCalories,
					Reference: round1(avg),
					Actual:    o.Calories,
					DiffPct:   round1(pct(o.Calories, avg)),
					Message: fmt.Sprintf("slot %q option %d: %s kcal is %.1f%% of the main meal average (%s), limit %.0f%%",
						slot, i+1, num(o.Calories), round1(pct(o.Calories, avg)), num(round1(avg)), lightnessRatio*100),
				})
			}
		}
	}

	if opts.MinDailyCarbsG > 0 {
		var carbs float64
		for _, slot := range slots {
			if options := c.Slots[slot]; len(options) > 0 {
				carbs += options[0].CarbsG
			}
		}
		if carbs < opts.MinDailyCarbsG {
			diff := round1(math.Abs(carbs-opts.MinDailyCarbsG) / opts.MinDailyCarbsG * 100)
			vs = append(vs, Violation{
				Check:     CheckCarbFloor,
				Macro:     MacroCarbs,
				Reference: opts.MinDailyCarbsG,
				Actual:    round1(carbs),
				DiffPct:   diff,
				Message: fmt.Sprintf("daily carbs %s g are %.1f%% below the minimum of %s g",
					num(round1(carbs)), diff, num(opts.MinDailyCarbsG)),
			})
		}
	}

	for _, slot := range slots {
		for i, o := range c.Slots[slot] {
			if o.Calories <= 0 {
				continue
			}
			fromMacros := o.ProteinG*4 + o.CarbsG*4 + o.FatG*9
			diff := math.Abs(fromMacros-o.Calories) / o.Calories
			if diff <= reconcileTolerance {
				continue
			}
			vs = append(vs, Violation{
				Check:     CheckReconcile,
				Slot:      slot,
				Option:    i + 1,
				Macro:     MacroCalories,
				Reference: o.Calories,
				Actual:    round1(fromMacros),
				DiffPct:   round1(diff * 100),
				Message: fmt.Sprintf("slot %q option %d: macros add up to %s kcal but %s kcal are stated (%.1f%%)",
					slot, i+1, num(round1(fromMacros)), num(o.Calories), round1(diff*100)),
			})
		}
	}

	if vs == nil {
		vs = []Violation{}
	}
	return Result{Valid: len(vs) == 0, Violations: vs}
}

// coverage reports expected slots the candidate omits and slots with the wrong option count.
func coverage(c Candidate, slots []string, opts Options) []Violation {
	var vs []Violation
	if len(opts.Slots) > 0 {
		have := make(map[string]bool, len(slots))
		for _, slot := range slots {
			if len(c.Slots[slot]) > 0 {
				have[strings.ToLower(strings.TrimSpace(slot))] = true
			}
		}
		for _, want := range opts.Slots {
			key := strings.ToLower(strings.TrimSpace(want))
			if key == "" || have[key] {
				continue
			}
			have[key] = true
			vs = append(vs, Violation{
				Check:   CheckCoverage,
				Slot:    want,
				Message: fmt.Sprintf("slot %q is missing from the plan", want),
			})
		}
	}
	if opts.OptionsPerSlot > 0 {
		for _, slot := range slots {
			n := len(c.Slots[slot])
			if n == opts.OptionsPerSlot {
				continue
			}
			vs = append(vs, Violation{
				Check:     CheckOptionCount,
				Slot:      slot,
				Reference: float64(opts.OptionsPerSlot),
				Actual:    float64(n),
				Message:   fmt.Sprintf("slot %q has %d options, exactly %d required", slot, n, opts.OptionsPerSlot),
			})
		}
	}
	return vs
}

// compare reports whether actual deviates from ref beyond tol.
// A zero reference only accepts exactly zero.
func compare(ref, actual, tol float64) (Violation, bool) {
	v := Violation{Reference: ref, Actual: actual}
	if ref == 0 {
		if actual == 0 {
			return v, false
		}
		v.DiffPct = 100
		return v, true
	}
	diff := math.Abs(actual-ref) / ref
	// 1e-9 absorbs float noise at exactly the tolerance.
	if diff <= tol+1e-9 {
		return v, false
	}
	v.DiffPct = round1(diff * 100)
	return v, true
}

// orderedSlots puts main meals first in their daily order, the rest alphabetically.
func orderedSlots(c Candidate) []string {
	names := make([]string, 0, len(c.Slots))
	for name := range c.Slots {
		names = append(names, name)
	}
	rank := func(s string) int {
		if r, ok := mainSlots[strings.ToLower(strings.TrimSpace(s))]; ok {
			return r
		}
		return len(mainSlots)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	return names
}

func pct(v, of float64) float64 {
	if of == 0 {
		return 0
	}
	return v / of * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func num(v float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.1f", v), "0"), ".")
}
