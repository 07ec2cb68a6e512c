package profiles

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProfile() PatientProfile {
	return PatientProfile{Sex: "masculino", AgeYears: 30, HeightCm: 175, WeightKg: 80, Goal: "Maintain"}
}

func TestNormalize(t *testing.T) {
	p := validProfile()
	p.MealSlots = []string{" Desayuno ", "", "CENA"}
	p.Supplements = []SupplementDose{{ID: "whey_protein"}}
	p.GoalRateKgPerWeek = 0.5

	n := p.Normalize()
	assert.Equal(t, SexMale, n.Sex)
	assert.Equal(t, GoalMaintain, n.Goal)
	assert.Zero(t, n.GoalRateKgPerWeek)
	assert.Equal(t, StrategyTraditional, n.Strategy)
	assert.Equal(t, []string{"desayuno", "cena"}, n.MealSlots)
	assert.Equal(t, 1.0, n.Supplements[0].Servings)
	assert.Equal(t, "masculino", string(p.Sex), "Normalize must not mutate the receiver")
}

func TestValidate(t *testing.T) {
	require.NoError(t, validProfile().Normalize().Validate())

	tests := map[string]struct {
		mutate func(*PatientProfile)
		field  string
	}{
		"bad goal rate": {func(p *PatientProfile) { p.Goal = GoalLose; p.GoalRateKgPerWeek = 0.3 }, "goal_rate_kg_per_week"},
		"missing rate":  {func(p *PatientProfile) { p.Goal = GoalGain }, "goal_rate_kg_per_week"},
		"too heavy":     {func(p *PatientProfile) { p.WeightKg = 500 }, "weight_kg"},
		"bad strategy":  {func(p *PatientProfile) { p.Strategy = "random" }, "strategy"},
		"activity key":  {func(p *PatientProfile) { p.Activities = []Activity{{MinutesPerSession: 30}} }, "activities[0].key"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			p := validProfile().Normalize()
			tt.mutate(&p)
			err := p.Validate()

			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			var fields []string
			for _, f := range verr.Fields {
				fields = append(fields, f.Field)
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}
