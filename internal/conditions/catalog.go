package conditions

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/conditions.yaml
var conditionsYAML []byte

var ErrInvalidCatalog = errors.New("invalid condition catalog")

const percentTolerance = 1.0

// Catalog is read-only after Load and safe for concurrent use.
type Catalog struct {
	byID  map[string]*Condition
	order []string
}

type catalogFile struct {
	Conditions []Condition `yaml:"conditions"`
}

var (
	defaultOnce    sync.Once
	defaultCatalog *Catalog
	defaultErr     error
)

// Default returns the embedded catalog, parsed once per process.
func Default() (*Catalog, error) {
	defaultOnce.Do(func() {
		defaultCatalog, defaultErr = Load(bytes.NewReader(conditionsYAML))
	})
	return defaultCatalog, defaultErr
}

// MustDefault panics if the embedded catalog is broken.
func MustDefault() *Catalog {
	c, err := Default()
	if err != nil {
		panic(err)
	}
	return c
}

func Load(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrInvalidCatalog, err)
	}
	return New(f.Conditions)
}

func New(list []Condition) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]*Condition, len(list))}
	for i := range list {
		cond := list[i]
		if err := validateCondition(&cond); err != nil {
			return nil, err
		}
		if _, dup := c.byID[cond.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %q", ErrInvalidCatalog, cond.ID)
		}
		c.byID[cond.ID] = &cond
		c.order = append(c.order, cond.ID)
	}
	return c, nil
}

func validateCondition(c *Condition) error {
	c.ID = strings.TrimSpace(c.ID)
	if c.ID == "" {
		return fmt.Errorf("%w: condition with empty id", ErrInvalidCatalog)
	}
	adj := c.Adjustment
	if m := adj.Macros; m != nil {
		if m.Protein < 0 || m.Carbs < 0 || m.Fat < 0 {
			return fmt.Errorf("%w: %s: negative macro percentage", ErrInvalidCatalog, c.ID)
		}
		if math.Abs(m.Sum()-100) > percentTolerance {
			return fmt.Errorf("%w: %s: macro percentages sum to %.1f", ErrInvalidCatalog, c.ID, m.Sum())
		}
	}
	for name, v := range map[string]*float64{
		"min_carbs_g":      adj.MinCarbsG,
		"sodium_max_mg":    adj.SodiumMaxMg,
		"fiber_min_g":      adj.FiberMinG,
		"fiber_max_g":      adj.FiberMaxG,
		"protein_g_per_kg": adj.ProteinGPerKg,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%w: %s: negative %s", ErrInvalidCatalog, c.ID, name)
		}
	}
	if len(c.MealDistribution) > 0 {
		var total float64
		for _, pct := range c.MealDistribution {
			total += pct
		}
		if math.Abs(total-100) > percentTolerance {
			return fmt.Errorf("%w: %s: meal distribution sums to %.1f", ErrInvalidCatalog, c.ID, total)
		}
	}
	if c.Pregnancy != nil && (c.Pregnancy.Trimester < 1 || c.Pregnancy.Trimester > 3) {
		return fmt.Errorf("%w: %s: trimester %d out of range", ErrInvalidCatalog, c.ID, c.Pregnancy.Trimester)
	}
	if c.Pregnancy != nil && c.Overlay != nil {
		return fmt.Errorf("%w: %s: condition cannot be both trimester and overlay", ErrInvalidCatalog, c.ID)
	}
	return nil
}

func (c *Catalog) Get(id string) (*Condition, bool) {
	cond, ok := c.byID[id]
	return cond, ok
}

func (c *Catalog) MustGet(id string) *Condition {
	cond, ok := c.byID[id]
	if !ok {
		panic(fmt.Sprintf("conditions: unknown id %q", id))
	}
	return cond
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// IDs returns ids in catalog file order.
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

func (c *Catalog) All() []*Condition {
	out := make([]*Condition, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

func (c *Catalog) Len() int {
	return len(c.order)
}

func (c *Catalog) IsPregnancy(id string) bool {
	cond, ok := c.byID[id]
	return ok && cond.IsPregnancy()
}

// TrimesterCondition returns the trimester condition for 1..3.
func (c *Catalog) TrimesterCondition(trimester int) (*Condition, bool) {
	for _, id := range c.order {
		cond := c.byID[id]
		if cond.Pregnancy != nil && cond.Pregnancy.Trimester == trimester {
			return cond, true
		}
	}
	return nil, false
}

func (c *Catalog) Restrictions(ids []string) []string {
	return c.collect(ids, func(cond *Condition) []string { return cond.Restrictions })
}

func (c *Catalog) AvoidTags(ids []string) []string {
	return c.collect(ids, func(cond *Condition) []string { return cond.AvoidTags })
}

func (c *Catalog) PreferTags(ids []string) []string {
	return c.collect(ids, func(cond *Condition) []string { return cond.PreferTags })
}

func (c *Catalog) collect(ids []string, pick func(*Condition) []string) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, id := range ids {
		cond, ok := c.byID[id]
		if !ok {
			continue
		}
		for _, v := range pick(cond) {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	sort.Strings(out)
	return out
}
