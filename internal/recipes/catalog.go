package recipes

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
)

//go:embed data/recipes.json
var seedJSON []byte

var (
	ErrInvalidRecipe = errors.New("invalid recipe")
	ErrNotFound      = errors.New("recipe not found")
)

// calorieTolerance bounds |stated - 4/4/9| relative to stated calories.
const calorieTolerance = 0.15

var idPattern = regexp.MustCompile(`^REC_\d{4}$`)

// Catalog is an immutable recipe set indexed by id and meal type.
type Catalog struct {
	byID   map[string]Recipe
	byMeal map[string][]Recipe
	order  []string
}

type catalogFile struct {
	Recipes []Recipe `json:"recipes"`
}

var (
	seedOnce    sync.Once
	seedCatalog *Catalog
	seedErr     error
)

// Default returns the embedded seed catalog.
func Default() (*Catalog, error) {
	seedOnce.Do(func() {
		seedCatalog, seedErr = LoadCatalog(bytes.NewReader(seedJSON))
	})
	return seedCatalog, seedErr
}

// LoadCatalog decodes {"recipes": [...]} and validates every entry.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRecipe, err)
	}
	return NewCatalog(f.Recipes)
}

// NewCatalog validates recipes and builds the lookup indexes.
func NewCatalog(recipes []Recipe) (*Catalog, error) {
	c := &Catalog{
		byID:   make(map[string]Recipe, len(recipes)),
		byMeal: make(map[string][]Recipe),
	}
	for _, r := range recipes {
		if err := ValidateRecipe(r); err != nil {
			return nil, err
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrInvalidRecipe, r.ID)
		}
		c.byID[r.ID] = r
		c.order = append(c.order, r.ID)
		for _, m := range r.MealTypes {
			c.byMeal[MealTypeFor(m)] = append(c.byMeal[MealTypeFor(m)], r)
		}
	}
	return c, nil
}

// ValidateRecipe checks id format, macro signs and 4/4/9 reconciliation.
func ValidateRecipe(r Recipe) error {
	if !idPattern.MatchString(r.ID) {
		return fmt.Errorf("%w: id %q does not match REC_####", ErrInvalidRecipe, r.ID)
	}
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: %s: empty name", ErrInvalidRecipe, r.ID)
	}
	if len(r.MealTypes) == 0 {
		return fmt.Errorf("%w: %s: no meal types", ErrInvalidRecipe, r.ID)
	}
	if r.Calories < 0 || r.ProteinG < 0 || r.CarbsG < 0 || r.FatG < 0 {
		return fmt.Errorf("%w: %s: negative nutrition value", ErrInvalidRecipe, r.ID)
	}
	computed := r.MacroCalories()
	if r.Calories == 0 {
		if computed != 0 {
			return fmt.Errorf("%w: %s: zero calories with non-zero macros", ErrInvalidRecipe, r.ID)
		}
		return nil
	}
	if diff := math.Abs(computed-r.Calories) / r.Calories; diff > calorieTolerance {
		return fmt.Errorf("%w: %s: %.0f kcal stated but macros give %.0f kcal", ErrInvalidRecipe, r.ID, r.Calories, computed)
	}
	return nil
}

func (c *Catalog) Get(id string) (Recipe, bool) {
	r, ok := c.byID[strings.ToUpper(strings.TrimSpace(id))]
	return r, ok
}

func (c *Catalog) Has(id string) bool {
	_, ok := c.byID[id]
	return ok
}

// ByMealType returns recipes for a catalog meal type or slot alias.
func (c *Catalog) ByMealType(mealType string) []Recipe {
	src := c.byMeal[MealTypeFor(mealType)]
	out := make([]Recipe, len(src))
	copy(out, src)
	return out
}

func (c *Catalog) All() []Recipe {
	out := make([]Recipe, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// IDs returns recipe ids sorted ascending.
func (c *Catalog) IDs() []string {
	ids := append([]string(nil), c.order...)
	sort.Strings(ids)
	return ids
}

func (c *Catalog) Len() int {
	return len(c.byID)
}
