package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/planvalidator"
)

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestDetectCommand(t *testing.T) {
	out, err := run(t, "", "detect", "paciente", "con", "hipertensión")
	require.NoError(t, err)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Contains(t, resp["condition_ids"], "hipertension")
}

func TestDetectCommandNothingFound(t *testing.T) {
	out, err := run(t, "", "detect", "sin antecedentes")
	require.NoError(t, err)
	assert.JSONEq(t, `{"condition_ids":[]}`, out)
}

func TestTargetsCommandFromStdin(t *testing.T) {
	profile := `{"sex":"M","age":45,"height_cm":178,"weight_kg":90,"goal":"maintain","pathologies":"presión alta"}`
	out, err := run(t, profile, "targets", "--targets-only")
	require.NoError(t, err)

	var targets struct {
		DailyCalories float64  `json:"daily_calories"`
		Conditions    []string `json:"conditions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &targets))
	assert.Greater(t, targets.DailyCalories, 1500.0)
	assert.Contains(t, targets.Conditions, "hipertension")
}

func TestTargetsCommandRejectsInvalidProfile(t *testing.T) {
	_, err := run(t, `{"sex":"M","age":-3}`, "targets")
	assert.Error(t, err)

	_, err = run(t, `not json`, "targets")
	assert.Error(t, err)
}

func TestInteractionsCommand(t *testing.T) {
	_, err := run(t, "", "interactions")
	assert.Error(t, err)

	out, err := run(t, "", "interactions", "--med", "levotiroxina")
	require.NoError(t, err)
	assert.Contains(t, out, `"report"`)
}

func TestParseSupplement(t *testing.T) {
	s := parseSupplement(" vitamina_d3 : 2000 UI")
	assert.Equal(t, "vitamina_d3", s.ID)
	assert.Equal(t, "2000 UI", s.Dose)
	assert.Empty(t, parseSupplement("omega3").Dose)
}

func TestValidateCommand(t *testing.T) {
	valid := `{"slots":{"lunch":[{"calories":500,"protein_g":30,"carbs_g":60,"fat_g":15},{"calories":520,"protein_g":31,"carbs_g":62,"fat_g":15}]}}`
	out, err := run(t, valid, "validate")
	require.NoError(t, err)
	var res planvalidator.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.Valid)

	invalid := `{"slots":{"lunch":[{"calories":500,"protein_g":30,"carbs_g":60,"fat_g":15},{"calories":700,"protein_g":30,"carbs_g":60,"fat_g":15}]}}`
	out, err = run(t, invalid, "validate", "-")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Violations)

	_, err = run(t, valid, "validate", "--tolerance", "1.5")
	assert.Error(t, err)

	_, err = run(t, `{"slots":{}}`, "validate")
	assert.Error(t, err)

	out, err = run(t, valid, "validate", "--options-per-slot", "3", "--slots", "lunch,dinner")
	require.Error(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Len(t, res.Violations, 2)
	assert.Equal(t, planvalidator.CheckCoverage, res.Violations[0].Check)
	assert.Equal(t, "dinner", res.Violations[0].Slot)
	assert.Equal(t, planvalidator.CheckOptionCount, res.Violations[1].Check)
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("AUTH_MODE", "jwt")
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, "", "token", "nutri-7", "--ttl", "5m")
	require.NoError(t, err)

	var resp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
		Subject     string `json:"subject"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(300), resp.ExpiresIn)
	assert.Equal(t, "nutri-7", resp.Subject)
}
