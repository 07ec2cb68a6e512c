package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/requirements"
)

var (
	ErrNoSlots         = errors.New("at least one meal slot is required")
	ErrUnknownStrategy = errors.New("unknown distribution strategy")
	ErrMissingCustom   = errors.New("custom strategy requires per-slot calories")
	ErrInvalidCalories = errors.New("daily calories must be positive")
)

// SnackSlot is the name of the slot carved out when snacks are enabled.
const SnackSlot = "snack"

const (
	snackShare = 10.0
	snackScale = 0.90
)

// Traditional shares by slot count, assigned in chronological slot order.
var traditionalShares = map[int][]float64{
	3: {30, 40, 30},
	4: {25, 35, 15, 25},
}

// slotOrder sorts pregnancy slots, which arrive as a map.
var slotOrder = map[string]int{
	"breakfast":       0,
	"desayuno":        0,
	"mid_morning":     1,
	"lunch":           2,
	"almuerzo":        2,
	"afternoon_snack": 3,
	"merienda":        3,
	"dinner":          4,
	"cena":            4,
	"evening_snack":   5,
	"snack":           6,
}

// SlotOverride is one caller-supplied slot of the custom strategy.
type SlotOverride struct {
	Calories float64  `json:"calories"`
	ProteinG *float64 `json:"protein_g,omitempty"`
	CarbsG   *float64 `json:"carbs_g,omitempty"`
	FatG     *float64 `json:"fat_g,omitempty"`
}

type Request struct {
	DailyCalories   float64                 `json:"daily_calories"`
	Split           requirements.MacroSplit `json:"macro_percentages"`
	Slots           []string                `json:"slots"`
	Strategy        profiles.Strategy       `json:"strategy"`
	Custom          map[string]SlotOverride `json:"custom,omitempty"`
	PregnancyShares map[string]float64      `json:"pregnancy_shares,omitempty"`
	IncludeSnack    bool                    `json:"include_snack"`
}

// SlotTarget is the calorie and macro target of one slot.
type SlotTarget struct {
	Name     string  `json:"name"`
	Share    float64 `json:"share_pct"`
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

type Plan struct {
	Strategy profiles.Strategy `json:"strategy"`
	Slots    []SlotTarget      `json:"slots"`
	Total    float64           `json:"total_calories"`
}

// Get returns the target of a named slot.
func (p Plan) Get(name string) (SlotTarget, bool) {
	for _, s := range p.Slots {
		if s.Name == name {
			return s, true
		}
	}
	return SlotTarget{}, false
}

// Names returns slot names in plan order.
func (p Plan) Names() []string {
	out := make([]string, len(p.Slots))
	for i, s := range p.Slots {
		out[i] = s.Name
	}
	return out
}

// FromResult builds a request from computed targets and the profile's slot settings.
func FromResult(res requirements.Result, p profiles.PatientProfile) Request {
	p = p.Normalize()
	req := Request{
		DailyCalories: res.DailyCalories,
		Split:         res.Split,
		Slots:         p.MealSlots,
		Strategy:      p.Strategy,
		IncludeSnack:  p.IncludeSnack,
	}
	if len(p.CustomSlots) > 0 {
		req.Custom = make(map[string]SlotOverride, len(p.CustomSlots))
		for name, cs := range p.CustomSlots {
			req.Custom[name] = SlotOverride{Calories: cs.Calories, ProteinG: cs.ProteinG, CarbsG: cs.CarbsG, FatG: cs.FatG}
		}
	}
	if res.Pregnancy != nil && len(res.Pregnancy.MealDistribution) > 0 {
		req.PregnancyShares = res.Pregnancy.MealDistribution
	}
	return req
}

// Distribute splits daily calories across meal slots. Per-slot macros follow
// the daily split except for custom slots that carry explicit grams.
func Distribute(req Request) (Plan, error) {
	strategy := profiles.Strategy(strings.ToLower(strings.TrimSpace(string(req.Strategy))))
	if strategy == "" {
		strategy = profiles.StrategyTraditional
	}

	switch strategy {
	case profiles.StrategyCustom:
		return distributeCustom(req)
	case profiles.StrategyTraditional, profiles.StrategyEquitable:
	default:
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownStrategy, req.Strategy)
	}

	if req.DailyCalories <= 0 {
		return Plan{}, ErrInvalidCalories
	}

	var names []string
	var shares []float64
	usePregnancy := strategy == profiles.StrategyTraditional && len(req.PregnancyShares) > 0
	if usePregnancy {
		names, shares = pregnancyShares(req.PregnancyShares)
	} else {
		names = cleanSlots(req.Slots)
		if len(names) == 0 {
			return Plan{}, ErrNoSlots
		}
		shares = baseShares(strategy, names)
	}

	// Pregnancy tables already include snack slots.
	if req.IncludeSnack && !usePregnancy {
		for i := range shares {
			shares[i] *= snackScale
		}
		names = append(names, SnackSlot)
		shares = append(shares, snackShare)
	}

	total := math.Round(req.DailyCalories)
	var kcal []float64
	if strategy == profiles.StrategyEquitable {
		kcal = exactParts(total, shares)
	} else {
		kcal = largestRemainder(total, shares)
	}

	plan := Plan{Strategy: strategy, Total: total, Slots: make([]SlotTarget, len(names))}
	for i, name := range names {
		plan.Slots[i] = derived(name, shares[i], kcal[i], req.Split)
	}
	return plan, nil
}

func distributeCustom(req Request) (Plan, error) {
	if len(req.Custom) == 0 {
		return Plan{}, ErrMissingCustom
	}
	names := make([]string, 0, len(req.Custom))
	seen := make(map[string]bool, len(req.Custom))
	for _, s := range cleanSlots(req.Slots) {
		if _, ok := req.Custom[s]; ok && !seen[s] {
			names = append(names, s)
			seen[s] = true
		}
	}
	var extra []string
	for s := range req.Custom {
		if !seen[s] {
			extra = append(extra, s)
		}
	}
	sortSlots(extra)
	names = append(names, extra...)

	var total float64
	for _, s := range names {
		o := req.Custom[s]
		if o.Calories < 0 {
			return Plan{}, fmt.Errorf("%w: slot %q has negative calories", ErrInvalidCalories, s)
		}
		total += o.Calories
	}
	if total <= 0 {
		return Plan{}, ErrMissingCustom
	}

	plan := Plan{Strategy: profiles.StrategyCustom, Total: total, Slots: make([]SlotTarget, len(names))}
	for i, s := range names {
		o := req.Custom[s]
		t := derived(s, o.Calories/total*100, o.Calories, req.Split)
		if o.ProteinG != nil {
			t.ProteinG = *o.ProteinG
		}
		if o.CarbsG != nil {
			t.CarbsG = *o.CarbsG
		}
		if o.FatG != nil {
			t.FatG = *o.FatG
		}
		plan.Slots[i] = t
	}
	return plan, nil
}

func derived(name string, share, kcal float64, split requirements.MacroSplit) SlotTarget {
	return SlotTarget{
		Name:     name,
		Share:    round1(share),
		Calories: kcal,
		ProteinG: round1(kcal * split.ProteinPct / 100 / 4),
		CarbsG:   round1(kcal * split.CarbsPct / 100 / 4),
		FatG:     round1(kcal * split.FatPct / 100 / 9),
	}
}

func baseShares(strategy profiles.Strategy, names []string) []float64 {
	n := len(names)
	out := make([]float64, n)
	if table, ok := traditionalShares[n]; ok && strategy == profiles.StrategyTraditional {
		for k, i := range chronological(names) {
			out[i] = table[k]
		}
		return out
	}
	for i := range out {
		out[i] = 100 / float64(n)
	}
	return out
}

// chronological returns slot indices ordered by time of day. Names without a
// known position keep their input order.
func chronological(names []string) []int {
	idx := make([]int, len(names))
	for i := range idx {
		idx[i] = i
	}
	for _, name := range names {
		if _, ok := slotOrder[name]; !ok {
			return idx
		}
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return slotOrder[names[idx[a]]] < slotOrder[names[idx[b]]]
	})
	return idx
}

func pregnancyShares(m map[string]float64) ([]string, []float64) {
	names := make([]string, 0, len(m))
	var sum float64
	for k, v := range m {
		if v > 0 {
			names = append(names, k)
			sum += v
		}
	}
	sortSlots(names)
	shares := make([]float64, len(names))
	for i, k := range names {
		shares[i] = m[k] / sum * 100
	}
	return names, shares
}

func sortSlots(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		oi, iok := slotOrder[names[i]]
		oj, jok := slotOrder[names[j]]
		switch {
		case iok && jok && oi != oj:
			return oi < oj
		case iok != jok:
			return iok
		default:
			return names[i] < names[j]
		}
	})
}

func cleanSlots(slots []string) []string {
	out := make([]string, 0, len(slots))
	seen := make(map[string]bool, len(slots))
	for _, s := range slots {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// exactParts splits total by share without rounding, so equal shares give equal parts.
func exactParts(total float64, shares []float64) []float64 {
	var sum float64
	for _, s := range shares {
		sum += s
	}
	out := make([]float64, len(shares))
	if sum <= 0 {
		return out
	}
	for i, s := range shares {
		out[i] = total * s / sum
	}
	return out
}

// largestRemainder rounds total*share/100 to whole kcal so the parts sum to total.
// Ties go to the earlier slot.
func largestRemainder(total float64, shares []float64) []float64 {
	var sum float64
	for _, s := range shares {
		sum += s
	}
	out := make([]float64, len(shares))
	if sum <= 0 {
		return out
	}
	type rem struct {
		idx  int
		frac float64
	}
	rems := make([]rem, len(shares))
	var assigned float64
	for i, s := range shares {
		raw := total * s / sum
		out[i] = math.Floor(raw)
		assigned += out[i]
		rems[i] = rem{idx: i, frac: raw - out[i]}
	}
	sort.SliceStable(rems, func(i, j int) bool { return rems[i].frac > rems[j].frac })
	left := int(math.Round(total - assigned))
	for i := 0; i < left && i < len(rems); i++ {
		out[rems[i].idx]++
	}
	return out
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
