package profiles

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/storage/memory"
	"github.com/fdg312/nutriplan/internal/userctx"
)

const anaJSON = `{"name":"Ana","sex":"F","age":34,"height_cm":165,"weight_kg":68,"goal":"lose","goal_rate_kg_per_week":0.5,"pathologies":"hipotiroidismo"}`

func newMux() *http.ServeMux {
	h := NewHandler(NewService(memory.New()))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/profiles", h.HandleList)
	mux.HandleFunc("POST /v1/profiles", h.HandleCreate)
	mux.HandleFunc("GET /v1/profiles/{id}", h.HandleGet)
	mux.HandleFunc("PUT /v1/profiles/{id}", h.HandleUpdate)
	mux.HandleFunc("DELETE /v1/profiles/{id}", h.HandleDelete)
	return mux
}

func do(t *testing.T, mux http.Handler, method, path, body, user string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		req = req.WithContext(userctx.WithUserID(req.Context(), user))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestProfileLifecycle(t *testing.T) {
	mux := newMux()

	rec := do(t, mux, http.MethodPost, "/v1/profiles", anaJSON, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created ProfileDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))
	assert.Equal(t, "Ana", created.Name)
	assert.Equal(t, userctx.DefaultUserID, created.OwnerUserID)
	assert.Equal(t, SexFemale, created.Profile.Sex)
	assert.Equal(t, DefaultMealSlots, created.Profile.MealSlots)

	rec = do(t, mux, http.MethodGet, "/v1/profiles", "", "")
	var list ProfilesResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&list))
	require.Len(t, list.Profiles, 1)

	updated := strings.Replace(anaJSON, `"weight_kg":68`, `"weight_kg":66`, 1)
	rec = do(t, mux, http.MethodPut, "/v1/profiles/"+created.ID.String(), updated, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(t, mux, http.MethodGet, "/v1/profiles/"+created.ID.String(), "", "")
	var got ProfileDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, 66.0, got.Profile.WeightKg)

	rec = do(t, mux, http.MethodDelete, "/v1/profiles/"+created.ID.String(), "", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, mux, http.MethodGet, "/v1/profiles/"+created.ID.String(), "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileOwnership(t *testing.T) {
	mux := newMux()

	rec := do(t, mux, http.MethodPost, "/v1/profiles", anaJSON, "alice")
	require.Equal(t, http.StatusCreated, rec.Code)
	var created ProfileDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	rec = do(t, mux, http.MethodGet, "/v1/profiles/"+created.ID.String(), "", "bob")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodDelete, "/v1/profiles/"+created.ID.String(), "", "bob")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/v1/profiles", "", "bob")
	assert.JSONEq(t, `{"profiles":[]}`, rec.Body.String())
}

func TestProfileValidationErrors(t *testing.T) {
	mux := newMux()

	rec := do(t, mux, http.MethodPost, "/v1/profiles", `{"sex":"x","age":0,"height_cm":170,"weight_kg":70,"goal":"lose"}`, "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_error", resp.Error.Code)

	var fields []string
	for _, f := range resp.Error.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "sex")
	assert.Contains(t, fields, "age")

	rec = do(t, mux, http.MethodPost, "/v1/profiles", `{`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodGet, "/v1/profiles/not-a-uuid", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, mux, http.MethodPut, "/v1/profiles/"+uuid.NewString(), anaJSON, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
