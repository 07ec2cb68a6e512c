package nutrition

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/interactions"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/requirements"
)

func newService(t *testing.T) *Service {
	t.Helper()
	s, err := NewDefaultService(zerolog.Nop())
	require.NoError(t, err)
	return s
}

func baseMale() profiles.PatientProfile {
	return profiles.PatientProfile{
		Sex:          profiles.SexMale,
		AgeYears:     30,
		WeightKg:     80,
		HeightCm:     180,
		ActivityType: "sedentario",
		Goal:         profiles.GoalMaintain,
	}
}

func TestRequirementsDefaultPath(t *testing.T) {
	s := newService(t)

	rep, err := s.Requirements(context.Background(), baseMale())
	require.NoError(t, err)

	assert.Empty(t, rep.DetectedConditions)
	assert.Equal(t, requirements.PathDefault, rep.Targets.Path)
	assert.Equal(t, 2136.0, rep.Targets.DailyCalories)
	require.Len(t, rep.Distribution.Slots, 4)

	var sum float64
	for _, slot := range rep.Distribution.Slots {
		sum += slot.Calories
	}
	assert.Equal(t, 2136.0, sum)
	assert.True(t, rep.Interactions.Empty())
}

func TestRequirementsDetectsConditions(t *testing.T) {
	s := newService(t)
	p := baseMale()
	p.Pathologies = "Hipertensión arterial diagnosticada en 2020"
	p.Medications = []string{"Levotiroxina 75mcg"}
	p.Supplements = []profiles.SupplementDose{{ID: "fiber"}}

	rep, err := s.Requirements(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, []string{"hipertension"}, rep.DetectedConditions)
	assert.Contains(t, rep.Targets.Conditions, "hipertension")
	assert.Contains(t, rep.Profile.ConditionIDs, "hipertension")
	require.NotNil(t, rep.Targets.SodiumMaxMg)
	require.NotEmpty(t, rep.Interactions.Interactions)
	assert.Equal(t, interactions.SeverityHigh, rep.Interactions.Interactions[0].Severity)
}

func TestRequirementsRejectsInvalidProfile(t *testing.T) {
	s := newService(t)
	p := baseMale()
	p.AgeYears = 0

	_, err := s.Requirements(context.Background(), p)
	var verr *profiles.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestMergeIDs(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, mergeIDs([]string{"a", "b"}, []string{"b", "c"}))
	assert.Empty(t, mergeIDs(nil, nil))
}

func TestListConditionsSorted(t *testing.T) {
	list := newService(t).ListConditions()
	require.NotEmpty(t, list)
	for i := 1; i < len(list); i++ {
		assert.Less(t, list[i-1].ID, list[i].ID)
	}
}
