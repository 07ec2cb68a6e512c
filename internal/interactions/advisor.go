package interactions

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fdg312/nutriplan/internal/profiles"
)

// InteractionWarning is a drug and supplement pair the patient should be told about.
type InteractionWarning struct {
	Medication string `json:"medication"`
	Drug       string `json:"drug"`
	Supplement string `json:"supplement"`
	Interaction
}

type DoseWarning struct {
	Supplement          string  `json:"supplement"`
	Dose                float64 `json:"dose"`
	Limit               float64 `json:"limit"`
	Unit                string  `json:"unit"`
	SideEffect          string  `json:"side_effect"`
	RequiresSupervision bool    `json:"requires_supervision,omitempty"`
}

type SynergyNote struct {
	Supplement     string `json:"supplement"`
	Partner        string `json:"partner"`
	Benefit        string `json:"benefit"`
	Recommendation string `json:"recommendation,omitempty"`
}

// Report — все предупреждения по лекарствам и добавкам пациента.
type Report struct {
	Interactions []InteractionWarning `json:"interactions"`
	DoseWarnings []DoseWarning        `json:"dose_warnings"`
	Synergies    []SynergyNote        `json:"synergies"`
}

func (r Report) Empty() bool {
	return len(r.Interactions) == 0 && len(r.DoseWarnings) == 0 && len(r.Synergies) == 0
}

// HighSeverity returns the interactions marked high.
func (r Report) HighSeverity() []InteractionWarning {
	var out []InteractionWarning
	for _, w := range r.Interactions {
		if w.Severity == SeverityHigh {
			out = append(out, w)
		}
	}
	return out
}

// Macros is the extra daily intake contributed by supplements.
type Macros struct {
	Calories float64  `json:"calories"`
	ProteinG float64  `json:"protein_g"`
	CarbsG   float64  `json:"carbs_g"`
	FatG     float64  `json:"fat_g"`
	Unknown  []string `json:"unknown,omitempty"`
}

type MedicationNote struct {
	Medication string `json:"medication"`
	MedicationInfo
}

// Advisor cross-checks medications and supplements against the catalog.
type Advisor struct {
	catalog *Catalog
}

func NewAdvisor(c *Catalog) *Advisor {
	return &Advisor{catalog: c}
}

func (a *Advisor) Catalog() *Catalog { return a.catalog }

// Advise never fails: unknown medications and unparsable doses are skipped.
func (a *Advisor) Advise(medications []string, supplements []profiles.SupplementDose) Report {
	rep := Report{
		Interactions: []InteractionWarning{},
		DoseWarnings: []DoseWarning{},
		Synergies:    []SynergyNote{},
	}

	for _, med := range medications {
		m := normalize(med)
		if m == "" {
			continue
		}
		for _, drug := range a.catalog.drugs {
			if !drugMatches(m, drug) {
				continue
			}
			for _, it := range drug.Interactions {
				terms := a.catalog.supplementTerms(it.Supplement)
				for _, s := range supplements {
					if !supplementMatches(s, terms) {
						continue
					}
					rep.Interactions = append(rep.Interactions, InteractionWarning{
						Medication:  strings.TrimSpace(med),
						Drug:        drug.ID,
						Supplement:  s.ID,
						Interaction: it,
					})
				}
			}
		}
	}

	for _, s := range supplements {
		dose, ok := ParseDose(s.Dose)
		if !ok {
			continue
		}
		for _, md := range a.catalog.maxDoses {
			if !supplementMatches(s, a.catalog.supplementTerms(md.Supplement)) {
				continue
			}
			limit, _ := md.Limit()
			if dose > limit {
				rep.DoseWarnings = append(rep.DoseWarnings, DoseWarning{
					Supplement:          s.ID,
					Dose:                dose,
					Limit:               limit,
					Unit:                md.Unit,
					SideEffect:          md.SideEffect,
					RequiresSupervision: md.RequiresSupervision,
				})
			}
			break
		}
	}

	for _, syn := range a.catalog.synergies {
		left := a.catalog.supplementTerms(syn.Supplement)
		right := a.catalog.supplementTerms(syn.Partner)
		for i, s := range supplements {
			if !supplementMatches(s, left) {
				continue
			}
			for j, p := range supplements {
				if i == j || !supplementMatches(p, right) {
					continue
				}
				rep.Synergies = append(rep.Synergies, SynergyNote{
					Supplement:     s.ID,
					Partner:        p.ID,
					Benefit:        syn.Benefit,
					Recommendation: syn.Recommendation,
				})
				break
			}
		}
	}
	return rep
}

// SupplementMacros sums per-serving nutrition times servings. Missing servings count as one.
func (a *Advisor) SupplementMacros(supplements []profiles.SupplementDose) Macros {
	var m Macros
	for _, s := range supplements {
		info, ok := a.catalog.Supplement(s.ID)
		if !ok {
			m.Unknown = append(m.Unknown, s.ID)
			continue
		}
		n := s.Servings
		if n <= 0 {
			n = 1
		}
		m.Calories += info.Calories * n
		m.ProteinG += info.ProteinG * n
		m.CarbsG += info.CarbsG * n
		m.FatG += info.FatG * n
	}
	m.Calories = math.Round(m.Calories)
	m.ProteinG = round1(m.ProteinG)
	m.CarbsG = round1(m.CarbsG)
	m.FatG = round1(m.FatG)
	return m
}

// MedicationNotes returns the nutritional impact of each recognised medication.
func (a *Advisor) MedicationNotes(medications []string) []MedicationNote {
	out := []MedicationNote{}
	seen := make(map[string]struct{})
	for _, med := range medications {
		m := normalize(med)
		if m == "" {
			continue
		}
		best := -1
		bestLen := 0
		for i, info := range a.catalog.medications {
			for _, key := range []string{normalize(info.ID), normalize(info.Name)} {
				if matches(m, key) && len(key) > bestLen {
					best, bestLen = i, len(key)
				}
			}
		}
		if best < 0 {
			continue
		}
		info := a.catalog.medications[best]
		if _, dup := seen[info.ID]; dup {
			continue
		}
		seen[info.ID] = struct{}{}
		out = append(out, MedicationNote{Medication: strings.TrimSpace(med), MedicationInfo: info})
	}
	return out
}

// ParseDose reads the numeric part of strings like "500 mg", "5000UI" or "1,5 g".
func ParseDose(s string) (float64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for _, unit := range []string{"mcg", "µg", "mg", "ui", "iu", "g"} {
		s = strings.ReplaceAll(s, unit, "")
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func drugMatches(med string, d Drug) bool {
	if matches(med, normalize(d.ID)) {
		return true
	}
	for _, alias := range d.Aliases {
		if matches(med, normalize(alias)) {
			return true
		}
	}
	return false
}

// matches is a two-way substring check. The reverse direction needs at least three characters.
func matches(text, key string) bool {
	if key == "" {
		return false
	}
	if strings.Contains(text, key) {
		return true
	}
	return len(text) >= 3 && strings.Contains(key, text)
}

func supplementMatches(s profiles.SupplementDose, terms []string) bool {
	id := normalize(s.ID)
	name := normalize(s.Name)
	for _, t := range terms {
		if t == "" {
			continue
		}
		if strings.Contains(id, t) || (name != "" && strings.Contains(name, t)) {
			return true
		}
	}
	return false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func (w InteractionWarning) String() string {
	return fmt.Sprintf("%s + %s (%s): %s", w.Medication, w.Supplement, w.Severity, w.Recommendation)
}
