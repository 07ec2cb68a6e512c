package recipes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRefs(t *testing.T) {
	text := `Desayuno: [REC_0001] o REC_0002. Repetir [REC_0001]. Ignorar REC_12345 y XREC_0003.`
	assert.Equal(t, []string{"REC_0001", "REC_0002"}, ExtractRefs(text))
	assert.Empty(t, ExtractRefs("sin referencias"))
}

func TestRepairRefs(t *testing.T) {
	c := seed(t)

	fixed, report := RepairRefs(`{"id":"REC_0030"} [REC_0007] [REC_0500] [REC_0000]`, c)
	assert.Equal(t, `{"id":"REC_0026"} [REC_0007] [REC_0500] [REC_0001]`, fixed)
	assert.Equal(t, map[string]string{"REC_0030": "REC_0026", "REC_0000": "REC_0001"}, report.Replaced)
	assert.Equal(t, []string{"REC_0500"}, report.Unresolved)
	assert.False(t, report.Clean())

	same, report := RepairRefs("[REC_0007]", c)
	assert.Equal(t, "[REC_0007]", same)
	assert.True(t, report.Clean())
}

func TestRepairRefsTiePrefersLowerID(t *testing.T) {
	c, err := NewCatalog([]Recipe{recipe("REC_0014", 10, 10, 10), recipe("REC_0010", 10, 10, 10)})
	require.NoError(t, err)

	fixed, _ := RepairRefs("REC_0012", c)
	assert.Equal(t, "REC_0010", fixed)
}

func TestAppendix(t *testing.T) {
	c := seed(t)

	out := Appendix([]string{"REC_0008", "REC_9999"}, c)
	assert.Contains(t, out, "[REC_0008] Merluza al horno con puré de calabaza")
	assert.Contains(t, out, "filet de merluza: 180 g")
	assert.Contains(t, out, "303 kcal")
	assert.NotContains(t, out, "REC_9999")

	r, _ := c.Get("REC_0008")
	assert.Equal(t, "[REC_0008] Merluza al horno con puré de calabaza | 303 kcal | P 34 g | C 26 g | G 7 g", Summary(r))
}

func TestIndexRetriever(t *testing.T) {
	ret := NewIndexRetriever(seed(t))
	ctx := context.Background()

	got, err := ret.Search(ctx, Query{Text: "pollo", MealType: "almuerzo"})
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.ElementsMatch(t, []string{"REC_0007", "REC_0015"}, ids)

	got, err = ret.Search(ctx, Query{Text: "merluza calabaza horno", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "REC_0008", got[0].ID)

	all, err := ret.Search(ctx, Query{MealType: MealDinner})
	require.NoError(t, err)
	assert.Len(t, all, len(seed(t).ByMealType(MealDinner)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = ret.Search(cancelled, Query{Text: "pollo"})
	assert.ErrorIs(t, err, context.Canceled)
}
