package conditions

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func TestDefaultCatalogLoads(t *testing.T) {
	cat, err := Default()
	require.NoError(t, err)
	require.NotNil(t, cat)

	assert.GreaterOrEqual(t, cat.Len(), 30)
	for _, id := range []string{"diabetes_tipo_1", "hipertension", "celiaquia", "embarazo_primer_trimestre", "diabetes_gestacional", "preeclampsia"} {
		assert.True(t, cat.Has(id), id)
	}

	t1 := cat.MustGet("embarazo_primer_trimestre")
	require.NotNil(t, t1.Pregnancy)
	assert.Equal(t, 1, t1.Pregnancy.Trimester)
	assert.True(t, cat.IsPregnancy("diabetes_gestacional"))
	assert.False(t, cat.IsPregnancy("hipertension"))

	dg := cat.MustGet("diabetes_gestacional")
	require.NotNil(t, dg.Overlay)
	assert.Equal(t, 40.0, dg.Overlay.CarbsMaxPct)
	assert.Equal(t, 30.0, dg.Overlay.ProteinPct)
}

func TestLoadRejectsBrokenTriple(t *testing.T) {
	src := `
conditions:
- id: broken
  name: Broken
  adjustment:
    calories_delta: 0
    macros: {protein: 30, carbs: 30, fat: 30}
`
	_, err := Load(strings.NewReader(src))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidCatalog))
	assert.Contains(t, err.Error(), "broken")
}

func TestLoadRejectsUnknownFieldsAndDuplicates(t *testing.T) {
	_, err := Load(strings.NewReader("conditions:\n- id: a\n  nme: typo\n"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = New([]Condition{{ID: "a"}, {ID: "a"}})
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = New([]Condition{{ID: "t", Pregnancy: &PregnancyRule{Trimester: 4}}})
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = New([]Condition{{ID: "d", MealDistribution: map[string]float64{"lunch": 60, "dinner": 30}}})
	assert.ErrorIs(t, err, ErrInvalidCatalog)

	_, err = New([]Condition{{ID: "s", Adjustment: NutritionalAdjustment{SodiumMaxMg: f(-1)}}})
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}

func TestEveryEmbeddedTripleReconciles(t *testing.T) {
	cat := MustDefault()
	for _, cond := range cat.All() {
		if cond.Adjustment.Macros == nil {
			continue
		}
		assert.InDelta(t, 100, cond.Adjustment.Macros.Sum(), 1, cond.ID)
	}
}

func TestTagAccessorsAreSortedAndUnique(t *testing.T) {
	cat := MustDefault()
	avoid := cat.AvoidTags([]string{"diabetes_tipo_1", "diabetes_tipo_2", "missing"})
	require.NotEmpty(t, avoid)
	for i := 1; i < len(avoid); i++ {
		assert.Less(t, avoid[i-1], avoid[i])
	}
	assert.Contains(t, avoid, "alto_ig")

	restr := cat.Restrictions([]string{"celiaquia"})
	assert.Contains(t, restr, "trigo")
}
