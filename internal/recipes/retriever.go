package recipes

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/fdg312/nutriplan/internal/detect"
)

// Query is a retrieval request. Empty Text returns every recipe of the meal type.
type Query struct {
	Text     string `json:"text,omitempty"`
	MealType string `json:"meal_type,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

// Retriever finds recipes for a slot. Implementations may call remote services.
type Retriever interface {
	Search(ctx context.Context, q Query) ([]Recipe, error)
}

// IndexRetriever is an in-memory keyword index over a catalog.
type IndexRetriever struct {
	catalog *Catalog
	index   map[string][]string
}

func NewIndexRetriever(c *Catalog) *IndexRetriever {
	idx := &IndexRetriever{catalog: c, index: make(map[string][]string)}
	for _, r := range c.All() {
		seen := make(map[string]struct{})
		text := r.Name + " " + r.IngredientText() + " " + strings.Join(r.Tags, " ")
		for _, tok := range tokenize(text) {
			if _, dup := seen[tok]; dup {
				continue
			}
			seen[tok] = struct{}{}
			idx.index[tok] = append(idx.index[tok], r.ID)
		}
	}
	return idx
}

// Search ranks recipes by the number of query tokens they contain.
func (x *IndexRetriever) Search(ctx context.Context, q Query) ([]Recipe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var pool []Recipe
	if q.MealType != "" {
		pool = x.catalog.ByMealType(q.MealType)
	} else {
		pool = x.catalog.All()
	}

	tokens := tokenize(q.Text)
	if len(tokens) > 0 {
		hits := make(map[string]int)
		for _, tok := range tokens {
			for _, id := range x.index[tok] {
				hits[id]++
			}
		}
		matched := pool[:0:0]
		for _, r := range pool {
			if hits[r.ID] > 0 {
				matched = append(matched, r)
			}
		}
		sort.SliceStable(matched, func(i, j int) bool { return hits[matched[i].ID] > hits[matched[j].ID] })
		pool = matched
	}
	if q.Limit > 0 && len(pool) > q.Limit {
		pool = pool[:q.Limit]
	}
	return pool, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(detect.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) > 2 {
			out = append(out, f)
		}
	}
	return out
}
