package interactions

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	//go:embed data/interactions.yaml
	interactionsYAML []byte
	//go:embed data/supplements.yaml
	supplementsYAML []byte
	//go:embed data/medications.yaml
	medicationsYAML []byte
)

var ErrInvalidCatalog = errors.New("invalid interaction catalog")

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
)

// Interaction describes how one supplement interferes with a drug.
type Interaction struct {
	Supplement                 string   `yaml:"supplement" json:"supplement"`
	Severity                   Severity `yaml:"severity" json:"severity"`
	Reason                     string   `yaml:"reason" json:"reason"`
	Recommendation             string   `yaml:"recommendation" json:"recommendation"`
	SeparationHours            float64  `yaml:"separation_hours" json:"separation_hours,omitempty"`
	MaxSingleDose              string   `yaml:"max_single_dose" json:"max_single_dose,omitempty"`
	Monitoring                 bool     `yaml:"monitoring" json:"monitoring,omitempty"`
	SupplementationRecommended bool     `yaml:"supplementation_recommended" json:"supplementation_recommended,omitempty"`
	Caution                    bool     `yaml:"caution" json:"caution,omitempty"`
}

type Drug struct {
	ID           string        `yaml:"id"`
	Aliases      []string      `yaml:"aliases"`
	Interactions []Interaction `yaml:"interactions"`
}

// MaxDose holds tolerable dose limits. Limits are compared in the catalog unit.
type MaxDose struct {
	Supplement          string   `yaml:"supplement"`
	MaxDose             *float64 `yaml:"max_dose"`
	MaxSingleDose       *float64 `yaml:"max_single_dose"`
	MaxDaily            *float64 `yaml:"max_daily"`
	MaxD3               *float64 `yaml:"max_d3"`
	MaxK2               *float64 `yaml:"max_k2"`
	Unit                string   `yaml:"unit"`
	SideEffect          string   `yaml:"side_effect"`
	RequiresSupervision bool     `yaml:"requires_supervision"`
}

// Limit returns max_dose, else max_single_dose, else max_d3.
func (m MaxDose) Limit() (float64, bool) {
	for _, v := range []*float64{m.MaxDose, m.MaxSingleDose, m.MaxD3} {
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

type Synergy struct {
	Supplement     string `yaml:"supplement" json:"supplement"`
	Partner        string `yaml:"partner" json:"partner"`
	Benefit        string `yaml:"benefit" json:"benefit"`
	Recommendation string `yaml:"recommendation" json:"recommendation,omitempty"`
}

// SupplementInfo is per-serving nutrition of a supplement.
type SupplementInfo struct {
	ID          string  `yaml:"id" json:"id"`
	Name        string  `yaml:"name" json:"name"`
	Category    string  `yaml:"category" json:"category"`
	ServingSize string  `yaml:"serving_size" json:"serving_size"`
	Calories    float64 `yaml:"calories" json:"calories"`
	ProteinG    float64 `yaml:"protein_g" json:"protein_g"`
	CarbsG      float64 `yaml:"carbs_g" json:"carbs_g"`
	FatG        float64 `yaml:"fat_g" json:"fat_g"`
	Notes       string  `yaml:"notes" json:"notes,omitempty"`
}

type MedicationInfo struct {
	ID                string `yaml:"id" json:"id"`
	Name              string `yaml:"name" json:"name"`
	Category          string `yaml:"category" json:"category"`
	NutritionalImpact string `yaml:"nutritional_impact" json:"nutritional_impact"`
	Considerations    string `yaml:"considerations" json:"considerations"`
}

type interactionsFile struct {
	SupplementAliases map[string][]string `yaml:"supplement_aliases"`
	Drugs             []Drug              `yaml:"drugs"`
	MaxDoses          []MaxDose           `yaml:"max_doses"`
	Synergies         []Synergy           `yaml:"synergies"`
}

// Catalog is read-only reference data for the advisor.
type Catalog struct {
	aliases     map[string][]string
	drugs       []Drug
	maxDoses    []MaxDose
	synergies   []Synergy
	supplements map[string]SupplementInfo
	suppOrder   []string
	medications []MedicationInfo
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(
			bytes.NewReader(interactionsYAML),
			bytes.NewReader(supplementsYAML),
			bytes.NewReader(medicationsYAML),
		)
	})
	return defaultCatalog, defaultErr
}

func Load(interactions, supplements, medications io.Reader) (*Catalog, error) {
	var inter interactionsFile
	if err := decode(interactions, &inter); err != nil {
		return nil, err
	}
	var supp struct {
		Supplements []SupplementInfo `yaml:"supplements"`
	}
	if err := decode(supplements, &supp); err != nil {
		return nil, err
	}
	var meds struct {
		Medications []MedicationInfo `yaml:"medications"`
	}
	if err := decode(medications, &meds); err != nil {
		return nil, err
	}

	c := &Catalog{
		aliases:     inter.SupplementAliases,
		drugs:       inter.Drugs,
		maxDoses:    inter.MaxDoses,
		synergies:   inter.Synergies,
		supplements: make(map[string]SupplementInfo, len(supp.Supplements)),
		medications: meds.Medications,
	}
	for _, d := range c.drugs {
		if d.ID == "" {
			return nil, fmt.Errorf("%w: drug with empty id", ErrInvalidCatalog)
		}
		for _, it := range d.Interactions {
			switch it.Severity {
			case SeverityLow, SeverityModerate, SeverityHigh:
			default:
				return nil, fmt.Errorf("%w: %s/%s: unknown severity %q", ErrInvalidCatalog, d.ID, it.Supplement, it.Severity)
			}
		}
	}
	for _, m := range c.maxDoses {
		if _, ok := m.Limit(); !ok {
			return nil, fmt.Errorf("%w: max dose for %s has no limit", ErrInvalidCatalog, m.Supplement)
		}
	}
	for _, s := range supp.Supplements {
		if s.ID == "" {
			return nil, fmt.Errorf("%w: supplement with empty id", ErrInvalidCatalog)
		}
		if s.Calories < 0 || s.ProteinG < 0 || s.CarbsG < 0 || s.FatG < 0 {
			return nil, fmt.Errorf("%w: supplement %s has negative values", ErrInvalidCatalog, s.ID)
		}
		if _, dup := c.supplements[s.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate supplement %s", ErrInvalidCatalog, s.ID)
		}
		c.supplements[s.ID] = s
		c.suppOrder = append(c.suppOrder, s.ID)
	}
	return c, nil
}

func decode(r io.Reader, v any) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	return nil
}

// Supplement returns per-serving data for a supplement id.
func (c *Catalog) Supplement(id string) (SupplementInfo, bool) {
	s, ok := c.supplements[strings.ToLower(strings.TrimSpace(id))]
	return s, ok
}

func (c *Catalog) Supplements() []SupplementInfo {
	out := make([]SupplementInfo, 0, len(c.suppOrder))
	for _, id := range c.suppOrder {
		out = append(out, c.supplements[id])
	}
	return out
}

func (c *Catalog) Medications() []MedicationInfo {
	return append([]MedicationInfo(nil), c.medications...)
}

// supplementTerms returns the normalized key and aliases of an interaction-side supplement.
func (c *Catalog) supplementTerms(key string) []string {
	terms := []string{normalize(key)}
	for _, a := range c.aliases[key] {
		terms = append(terms, normalize(a))
	}
	return terms
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(strings.ToLower(s), "_", " "))
}
