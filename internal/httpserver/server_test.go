package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/auth"
	"github.com/fdg312/nutriplan/internal/blob"
	"github.com/fdg312/nutriplan/internal/config"
	"github.com/fdg312/nutriplan/internal/mealplans"
	"github.com/fdg312/nutriplan/internal/profiles"
	"github.com/fdg312/nutriplan/internal/storage/memory"
)

const patientJSON = `{"name":"Lucía","sex":"F","age":41,"height_cm":162,"weight_kg":74,"goal":"lose","goal_rate_kg_per_week":0.5,"pathologies":"hipertensión arterial"}`

func testConfig() *config.Config {
	return &config.Config{
		Env:           "local",
		Port:          8080,
		AuthMode:      config.AuthModeNone,
		AIMode:        config.AIModeMock,
		JWTSecret:     "test-secret",
		JWTTTLMinutes: 60,
		Plan:          config.PlanConfig{Tolerance: 0.05, MaxAttempts: 3, RecipesPerSlot: 4},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	srv, err := NewWithStorage(context.Background(), cfg, zerolog.Nop(), memory.New(), store)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func call(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := call(t, srv.Handler(), http.MethodGet, "/healthz", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "memory", resp["storage"])
	assert.Equal(t, "mock", resp["ai"])
}

func TestHealthzMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, testConfig())

	rec := call(t, srv.Handler(), http.MethodPost, "/healthz", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestNewRejectsUnknownAIMode(t *testing.T) {
	cfg := testConfig()
	cfg.AIMode = "claude"
	_, err := NewWithStorage(context.Background(), cfg, zerolog.Nop(), memory.New(), nil)
	assert.Error(t, err)
}

func TestNewRejectsMissingRecipesFile(t *testing.T) {
	cfg := testConfig()
	cfg.RecipesFile = t.TempDir() + "/missing.yaml"
	_, err := NewWithStorage(context.Background(), cfg, zerolog.Nop(), memory.New(), nil)
	assert.Error(t, err)
}

func TestPlanFlowEndToEnd(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rec := call(t, h, http.MethodPost, "/v1/profiles", patientJSON, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var profile profiles.ProfileDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))

	body := `{"profile_id":"` + profile.ID.String() + `"}`
	rec = call(t, h, http.MethodPost, "/v1/nutrition/requirements", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "hipertension")

	rec = call(t, h, http.MethodPost, "/v1/meal-plans/generate", body, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var plan mealplans.GenerateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&plan))
	assert.Equal(t, "valid", plan.Status)
	require.NotNil(t, plan.ProfileID)
	assert.Equal(t, profile.ID, *plan.ProfileID)

	rec = call(t, h, http.MethodGet, "/v1/meal-plans/"+plan.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodGet, "/v1/meal-plans?profile_id="+profile.ID.String(), "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list mealplans.MealPlansResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	assert.Len(t, list.Plans, 1)

	// local blob store cannot presign, so the report comes back inline
	rec = call(t, h, http.MethodGet, "/v1/meal-plans/"+plan.ID.String()+"/report", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))

	rec = call(t, h, http.MethodGet, "/v1/meal-plans/"+plan.ID.String()+"/report?format=csv", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "slot,option,name"))
}

func TestRecipeRoutes(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rec := call(t, h, http.MethodGet, "/v1/recipes/REC_0007", "", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = call(t, h, http.MethodGet, "/v1/recipes/REC_9999", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, h, http.MethodPost, "/v1/recipes/select", `{"meal_type":"almuerzo","query":"pollo"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "REC_0007")

	rec = call(t, h, http.MethodGet, "/v1/conditions", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestJWTRequiredFlow(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = config.AuthModeJWT
	cfg.AuthRequired = true
	h := newTestServer(t, cfg).Handler()

	rec := call(t, h, http.MethodGet, "/v1/profiles", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(t, h, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, h, http.MethodPost, "/v1/auth/token", `{"subject":"nutri-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var token auth.TokenResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&token))

	rec = call(t, h, http.MethodPost, "/v1/profiles", patientJSON, token.AccessToken)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created profiles.ProfileDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "nutri-1", created.OwnerUserID)

	rec = call(t, h, http.MethodGet, "/v1/profiles", "", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTokenEndpointDisabledWithoutJWT(t *testing.T) {
	h := newTestServer(t, testConfig()).Handler()

	rec := call(t, h, http.MethodPost, "/v1/auth/token", `{"subject":"x"}`, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareChainOrder(t *testing.T) {
	cfg := testConfig()
	cfg.CORSAllowedOrigins = []string{"https://app.example.com"}
	cfg.RateLimitRPS = 1
	cfg.RateLimitBurst = 1
	h := newTestServer(t, cfg).Handler()

	req := httptest.NewRequest(http.MethodGet, "/v1/conditions", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.RemoteAddr = "9.9.9.9:1"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	// CORS runs before the limiter, so the browser can read the 429
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
