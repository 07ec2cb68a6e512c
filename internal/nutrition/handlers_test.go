package nutrition

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/profiles"
)

type stubResolver map[uuid.UUID]profiles.PatientProfile

func (s stubResolver) Resolve(ctx context.Context, owner string, id uuid.UUID) (profiles.PatientProfile, error) {
	p, ok := s[id]
	if !ok {
		return profiles.PatientProfile{}, profiles.ErrNotFound
	}
	return p, nil
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rec
}

func TestHandleRequirements(t *testing.T) {
	stored := uuid.New()
	h := NewHandler(newService(t), stubResolver{stored: baseMale()})

	rec := post(h.HandleRequirements, `{"profile":{"sex":"male","age":30,"height_cm":180,"weight_kg":80,"goal":"maintain","activity_type":"sedentario"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var rep RequirementsReport
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&rep))
	assert.Equal(t, 2136.0, rep.Targets.DailyCalories)

	rec = post(h.HandleRequirements, `{"profile_id":"`+stored.String()+`"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = post(h.HandleRequirements, `{"profile_id":"`+uuid.NewString()+`"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(h.HandleRequirements, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(h.HandleRequirements, `{"profile":{"sex":"male","age":30,"height_cm":180,"weight_kg":80,"goal":"gain"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "goal_rate_kg_per_week")
}

func TestHandleDistribution(t *testing.T) {
	h := NewHandler(newService(t), nil)

	rec := post(h.HandleDistribution, `{"daily_calories":2000,"macro_percentages":{"protein_pct":25,"carbs_pct":45,"fat_pct":30},"slots":["desayuno","almuerzo","cena"],"strategy":"traditional"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"calories":800`)

	rec = post(h.HandleDistribution, `{"daily_calories":2000,"slots":[],"strategy":"traditional"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCheckInteractions(t *testing.T) {
	h := NewHandler(newService(t), nil)

	rec := post(h.HandleCheckInteractions, `{"medications":["warfarina"],"supplements":[{"id":"omega_3"}]}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp InteractionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Report.Interactions)
}

func TestHandleDetectAndList(t *testing.T) {
	h := NewHandler(newService(t), nil)

	rec := post(h.HandleDetect, `{"text":"embarazada, tercer trimestre"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp ConditionsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Conditions, 1)
	assert.Equal(t, "embarazo_tercer_trimestre", resp.Conditions[0].ID)
	assert.True(t, resp.Conditions[0].Pregnancy)

	rec = post(h.HandleDetect, `{"text":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.HandleListConditions(rec, httptest.NewRequest(http.MethodGet, "/v1/conditions", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"celiaquia"`)
}
