package mealplans

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/userctx"
)

const profileJSON = `{"sex":"male","age":30,"height_cm":180,"weight_kg":80,"goal":"maintain","activity_type":"sedentario"}`

func newMux(t *testing.T) *http.ServeMux {
	h := NewHandler(newFixture(t, &scriptedProvider{}).svc)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/meal-plans/generate", h.HandleGenerate)
	mux.HandleFunc("POST /v1/meal-plans/validate", h.HandleValidate)
	mux.HandleFunc("POST /v1/meal-plans/control", h.HandleControl)
	mux.HandleFunc("POST /v1/meal-plans/replace-meal", h.HandleReplaceMeal)
	mux.HandleFunc("GET /v1/meal-plans", h.HandleList)
	mux.HandleFunc("GET /v1/meal-plans/{id}", h.HandleGet)
	return mux
}

func do(mux http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req = req.WithContext(userctx.WithUserID(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleGenerateAndGet(t *testing.T) {
	mux := newMux(t)

	rec := do(mux, http.MethodPost, "/v1/meal-plans/generate", `{"profile":`+profileJSON+`,"options_per_slot":2}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "valid", created.Status)
	require.NotNil(t, created.Plan)
	for slot, opts := range created.Plan.Slots {
		assert.Len(t, opts, 2, slot)
	}

	rec = do(mux, http.MethodGet, "/v1/meal-plans/"+created.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"requirements"`)

	rec = do(mux, http.MethodGet, "/v1/meal-plans/"+created.ID.String(), "", "someone-else")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(mux, http.MethodGet, "/v1/meal-plans/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleList(t *testing.T) {
	mux := newMux(t)

	for i := 0; i < 2; i++ {
		rec := do(mux, http.MethodPost, "/v1/meal-plans/generate", `{"profile":`+profileJSON+`}`, "user-1")
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := do(mux, http.MethodGet, "/v1/meal-plans?limit=1", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp MealPlansResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Len(t, resp.Plans, 1)

	rec = do(mux, http.MethodGet, "/v1/meal-plans?profile_id="+uuid.NewString(), "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"plans":[]}`, rec.Body.String())

	for _, q := range []string{"?profile_id=abc", "?limit=0", "?limit=500"} {
		rec = do(mux, http.MethodGet, "/v1/meal-plans"+q, "", "user-1")
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
	}
}

func TestHandleGenerateErrors(t *testing.T) {
	mux := newMux(t)

	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"no profile", `{}`, http.StatusBadRequest},
		{"unknown profile", `{"profile_id":"` + uuid.NewString() + `"}`, http.StatusNotFound},
		{"invalid profile", `{"profile":{"sex":"male","age":30}}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, "/v1/meal-plans/generate", tt.body, "")
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestHandleValidate(t *testing.T) {
	mux := newMux(t)

	body := `{"plan":{"slots":{"lunch":[
		{"calories":500,"protein_g":30,"carbs_g":60,"fat_g":15.6},
		{"calories":600,"protein_g":36,"carbs_g":72,"fat_g":18.7}]}}}`
	rec := do(mux, http.MethodPost, "/v1/meal-plans/validate", body, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Valid      bool `json:"valid"`
		Violations []struct {
			Check string `json:"check"`
			Slot  string `json:"slot"`
		} `json:"violations"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&res))
	assert.False(t, res.Valid)
	assert.Len(t, res.Violations, 4)
	assert.Equal(t, "lunch", res.Violations[0].Slot)

	rec = do(mux, http.MethodPost, "/v1/meal-plans/validate", `{"plan":{"slots":{"lunch":[{"calories":1,"sodium":3}]}}}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(mux, http.MethodPost, "/v1/meal-plans/validate", `{}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleControlAndReplaceMeal(t *testing.T) {
	mux := newMux(t)

	rec := do(mux, http.MethodPost, "/v1/meal-plans/generate", `{"profile":`+profileJSON+`}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var first GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&first))

	rec = do(mux, http.MethodPost, "/v1/meal-plans/control",
		`{"previous_plan_id":"`+first.ID.String()+`","current_weight_kg":79,"keep":"desayuno"}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var follow ControlResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&follow))
	assert.Equal(t, first.ID, follow.PreviousPlanID)
	assert.Equal(t, -1.0, follow.WeightChangeKg)
	assert.Equal(t, "valid", follow.Status)

	rec = do(mux, http.MethodPost, "/v1/meal-plans/replace-meal",
		`{"plan_id":"`+follow.ID.String()+`","slot":"breakfast","option":3}`, "user-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var repl ReplaceMealResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&repl))
	assert.Equal(t, follow.ID, repl.PreviousPlanID)
	assert.Equal(t, "breakfast", repl.Slot)
	assert.Equal(t, 3, repl.Option)
	require.NotNil(t, repl.Replacement)

	tests := []struct {
		name string
		path string
		body string
		user string
		want int
	}{
		{"control bad json", "/v1/meal-plans/control", `{`, "user-1", http.StatusBadRequest},
		{"control missing weight", "/v1/meal-plans/control", `{"previous_plan_id":"` + first.ID.String() + `"}`, "user-1", http.StatusBadRequest},
		{"control foreign plan", "/v1/meal-plans/control", `{"previous_plan_id":"` + first.ID.String() + `","current_weight_kg":79}`, "user-2", http.StatusNotFound},
		{"replace unknown slot", "/v1/meal-plans/replace-meal", `{"plan_id":"` + first.ID.String() + `","slot":"brunch"}`, "user-1", http.StatusBadRequest},
		{"replace unknown plan", "/v1/meal-plans/replace-meal", `{"plan_id":"` + uuid.NewString() + `","slot":"lunch"}`, "user-1", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, http.MethodPost, tt.path, tt.body, tt.user)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}
