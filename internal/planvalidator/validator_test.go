package planvalidator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/profiles"
)

func opt(kcal, p, c, f float64) Option {
	return Option{Calories: kcal, ProteinG: p, CarbsG: c, FatG: f}
}

func TestValidateEquivalentOptions(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"lunch": {opt(500, 30, 60, 15), opt(520, 31, 62, 15), opt(480, 29, 58, 15)},
	}}

	res := Validate(c, Options{})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Violations)
	assert.NotNil(t, res.Violations)
}

func TestValidateFlagsOffendingOption(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"lunch": {opt(500, 30, 60, 15), opt(560, 30, 60, 15), opt(480, 30, 60, 15)},
	}}

	res := Validate(c, Options{})
	assert.False(t, res.Valid)
	require.Len(t, res.Violations, 1)

	v := res.Violations[0]
	assert.Equal(t, CheckEquivalence, v.Check)
	assert.Equal(t, "lunch", v.Slot)
	assert.Equal(t, 2, v.Option)
	assert.Equal(t, MacroCalories, v.Macro)
	assert.Equal(t, 500.0, v.Reference)
	assert.Equal(t, 560.0, v.Actual)
	assert.Equal(t, 12.0, v.DiffPct)
	assert.Equal(t, `slot "lunch" option 2: calories 560 differs 12.0% from option 1 (500)`, v.Message)
}

func TestValidateTenPercentOverReference(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"breakfast": {opt(400, 20, 50, 13), opt(440, 20, 50, 13)},
	}}

	res := Validate(c, Options{Tolerance: 0.05})
	require.False(t, res.Valid)
	msg := res.Messages()[0]
	assert.Contains(t, msg, "breakfast")
	assert.Contains(t, msg, "calories")
}

func TestValidateZeroReferenceRequiresZero(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"merienda": {opt(100, 0, 25, 0), opt(100, 0.5, 25, 0)},
	}}

	res := Validate(c, Options{})
	require.Len(t, res.Violations, 1)
	assert.Equal(t, MacroProtein, res.Violations[0].Macro)
	assert.Equal(t, 100.0, res.Violations[0].DiffPct)
}

func TestValidateEquitable(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"desayuno": {opt(500, 30, 60, 15)},
		"almuerzo": {opt(500, 30, 60, 15)},
		"cena":     {opt(500, 30, 70, 11)},
	}}

	res := Validate(c, Options{Strategy: profiles.StrategyTraditional})
	assert.True(t, res.Valid)

	res = Validate(c, Options{Strategy: profiles.StrategyEquitable})
	assert.False(t, res.Valid)
	for _, v := range res.Violations {
		assert.Equal(t, CheckEquitable, v.Check)
		assert.Equal(t, "cena", v.Slot)
		assert.Contains(t, []Macro{MacroCarbs, MacroFat}, v.Macro)
	}
	assert.Len(t, res.Violations, 4)
}

func TestValidateSnackLightness(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"breakfast": {opt(500, 30, 60, 15)},
		"lunch":     {opt(700, 40, 85, 22)},
		"snack":     {opt(200, 10, 25, 7), opt(210, 10, 25, 7)},
		"colacion":  {opt(500, 30, 60, 15)},
	}}

	res := Validate(c, Options{})
	require.False(t, res.Valid)
	require.Len(t, res.Violations, 1)
	v := res.Violations[0]
	assert.Equal(t, CheckLightness, v.Check)
	assert.Equal(t, "colacion", v.Slot)
	assert.Equal(t, 1, v.Option)
	assert.Equal(t, 600.0, v.Reference)
}

func TestValidateCarbFloorAndReconcile(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"breakfast": {opt(400, 20, 50, 13)},
		"lunch":     {opt(900, 20, 50, 13)},
	}}

	res := Validate(c, Options{MinDailyCarbsG: 175})
	require.False(t, res.Valid)

	var checks []Check
	for _, v := range res.Violations {
		checks = append(checks, v.Check)
	}
	assert.ElementsMatch(t, []Check{CheckCarbFloor, CheckReconcile}, checks)
	for _, v := range res.Violations {
		if v.Check == CheckCarbFloor {
			assert.Equal(t, 100.0, v.Actual)
			assert.Contains(t, v.Message, "175")
		}
		if v.Check == CheckReconcile {
			assert.Equal(t, "lunch", v.Slot)
		}
	}
}

func TestParseCandidate(t *testing.T) {
	c, err := ParseCandidate(strings.NewReader(`{"slots":{"breakfast":[{"calories":400,"protein_g":20,"carbs_g":50,"fat_g":13,"recipe_ids":["REC_0001"]}],"lunch":[{"calories":600,"protein_g":40,"carbs_g":70,"fat_g":18,"recipe_ids":["REC_0007","REC_0001"]}]}}`))
	require.NoError(t, err)
	assert.Len(t, c.Slots, 2)
	assert.Equal(t, []string{"REC_0001", "REC_0007"}, c.RecipeIDs())

	bad := []string{
		`{"slots":{"lunch":[{"calories":500,"sugar":3}]}}`,
		`{"slots":{}}`,
		`{"slots":{"lunch":[]}}`,
		`{"slots":{"lunch":[{"calories":-1}]}}`,
		`not json`,
	}
	for _, in := range bad {
		_, err := ParseCandidateBytes([]byte(in))
		assert.ErrorIs(t, err, ErrInvalidCandidate, in)
	}
}

func TestValidateRequiresEverySlotAndOptionCount(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"breakfast": {opt(400, 20, 50, 13)},
	}}

	// without expectations a lone option passes
	assert.True(t, Validate(c, Options{}).Valid)

	res := Validate(c, Options{Slots: []string{"breakfast", "lunch", "dinner"}, OptionsPerSlot: 3})
	require.False(t, res.Valid)

	byCheck := map[Check][]Violation{}
	for _, v := range res.Violations {
		byCheck[v.Check] = append(byCheck[v.Check], v)
	}
	require.Len(t, byCheck[CheckCoverage], 2)
	assert.Equal(t, "lunch", byCheck[CheckCoverage][0].Slot)
	assert.Equal(t, "dinner", byCheck[CheckCoverage][1].Slot)

	require.Len(t, byCheck[CheckOptionCount], 1)
	v := byCheck[CheckOptionCount][0]
	assert.Equal(t, "breakfast", v.Slot)
	assert.Equal(t, 3.0, v.Reference)
	assert.Equal(t, 1.0, v.Actual)
	assert.Equal(t, `slot "breakfast" has 1 options, exactly 3 required`, v.Message)
}

func TestValidateCompletePlanPassesCoverage(t *testing.T) {
	c := Candidate{Slots: map[string][]Option{
		"Breakfast": {opt(400, 20, 50, 13), opt(410, 20, 51, 13), opt(395, 20, 49, 13)},
		"lunch":     {opt(600, 35, 70, 20), opt(610, 35, 71, 20), opt(590, 35, 69, 20)},
	}}

	res := Validate(c, Options{Slots: []string{"breakfast", "lunch"}, OptionsPerSlot: 3})
	assert.True(t, res.Valid, res.Messages())
}
