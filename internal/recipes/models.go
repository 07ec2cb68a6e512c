package recipes

import (
	"math"
	"strings"
)

type Ingredient struct {
	Item     string `json:"item"`
	Quantity string `json:"quantity"`
}

// Recipe is one catalog entry. ID uses the REC_#### format.
type Recipe struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	MealTypes   []string     `json:"meal_types"`
	Ingredients []Ingredient `json:"ingredients"`
	Calories    float64      `json:"calories"`
	ProteinG    float64      `json:"protein_g"`
	CarbsG      float64      `json:"carbs_g"`
	FatG        float64      `json:"fat_g"`
	Preparation string       `json:"preparation,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	SuitableFor []string     `json:"suitable_for,omitempty"`
}

// IngredientText joins ingredient items, lowercased.
func (r Recipe) IngredientText() string {
	items := make([]string, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		items[i] = strings.ToLower(ing.Item)
	}
	return strings.Join(items, " ")
}

func (r Recipe) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func (r Recipe) ServesMeal(mealType string) bool {
	for _, m := range r.MealTypes {
		if m == mealType {
			return true
		}
	}
	return false
}

// Complete reports whether all three macros are non-zero.
func (r Recipe) Complete() bool {
	return r.ProteinG > 0 && r.CarbsG > 0 && r.FatG > 0
}

// MacroCalories is 4/4/9 energy from the stated grams.
func (r Recipe) MacroCalories() float64 {
	return r.ProteinG*4 + r.CarbsG*4 + r.FatG*9
}

// MacroTarget is a per-meal gram target used for similarity ranking.
type MacroTarget struct {
	ProteinG float64 `json:"protein_g"`
	CarbsG   float64 `json:"carbs_g"`
	FatG     float64 `json:"fat_g"`
}

// Similarity is 100 minus the mean relative macro deviation in percent,
// clamped at 0. Macros with a zero target are skipped.
func Similarity(r Recipe, t MacroTarget) float64 {
	pairs := [][2]float64{{r.ProteinG, t.ProteinG}, {r.CarbsG, t.CarbsG}, {r.FatG, t.FatG}}
	var sum float64
	var n int
	for _, p := range pairs {
		if p[1] <= 0 {
			continue
		}
		sum += math.Abs(p[0]-p[1]) / p[1]
		n++
	}
	if n == 0 {
		return 100
	}
	return math.Max(0, 100-sum/float64(n)*100)
}

// Canonical meal types of the catalog.
const (
	MealBreakfast = "breakfast"
	MealLunch     = "lunch"
	MealMerienda  = "merienda"
	MealDinner    = "dinner"
	MealSnack     = "snack"
)

var mealTypeAliases = map[string]string{
	"breakfast":       MealBreakfast,
	"desayuno":        MealBreakfast,
	"lunch":           MealLunch,
	"almuerzo":        MealLunch,
	"merienda":        MealMerienda,
	"afternoon_tea":   MealMerienda,
	"dinner":          MealDinner,
	"cena":            MealDinner,
	"snack":           MealSnack,
	"colacion":        MealSnack,
	"colación":        MealSnack,
	"mid_morning":     MealSnack,
	"afternoon_snack": MealSnack,
	"evening_snack":   MealSnack,
}

// MealTypeFor maps a slot name to the catalog meal type. Unknown slots are snacks.
func MealTypeFor(slot string) string {
	if m, ok := mealTypeAliases[strings.ToLower(strings.TrimSpace(slot))]; ok {
		return m
	}
	return MealSnack
}
