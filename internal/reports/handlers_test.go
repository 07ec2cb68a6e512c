package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/blob"
	"github.com/fdg312/nutriplan/internal/mealplans"
	"github.com/fdg312/nutriplan/internal/planvalidator"
	"github.com/fdg312/nutriplan/internal/recipes"
	"github.com/fdg312/nutriplan/internal/userctx"
)

type stubPlans map[uuid.UUID]*mealplans.MealPlanDTO

func (s stubPlans) Get(ctx context.Context, owner string, id uuid.UUID) (*mealplans.MealPlanDTO, error) {
	p, ok := s[id]
	if !ok || owner != "user-1" {
		return nil, mealplans.ErrNotFound
	}
	return p, nil
}

// presignStore keeps objects in memory and issues fake presigned URLs.
type presignStore struct {
	objects map[string][]byte
}

func (s *presignStore) PutObject(ctx context.Context, key string, data []byte, contentType string) (int64, error) {
	s.objects[key] = data
	return int64(len(data)), nil
}

func (s *presignStore) GetObject(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func (s *presignStore) PresignGet(ctx context.Context, key string, ttlSeconds int) (string, error) {
	return "https://storage.example/" + key + "?sig=1", nil
}

func (s *presignStore) DeleteObject(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func samplePlan() *mealplans.MealPlanDTO {
	return &mealplans.MealPlanDTO{
		ID:        uuid.New(),
		Status:    "valid",
		Attempts:  1,
		CreatedAt: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Plan: &planvalidator.Candidate{Slots: map[string][]planvalidator.Option{
			"merienda": {{Name: "Manzana asada", RecipeIDs: []string{"REC_0019"}, Calories: 100, CarbsG: 25}},
			"almuerzo": {
				{Name: "Pollo grillado con arroz", RecipeIDs: []string{"REC_0007"}, Calories: 449, ProteinG: 42, CarbsG: 50, FatG: 9},
				{Name: "Pollo al horno", RecipeIDs: []string{"REC_0015"}, Calories: 420, ProteinG: 36, CarbsG: 42, FatG: 12},
			},
		}},
		Violations: []planvalidator.Violation{},
		Recipes: []recipes.Recipe{{
			ID: "REC_0019", Name: "Manzana asada con canela", Calories: 100, CarbsG: 25,
			Ingredients: []recipes.Ingredient{{Item: "manzana", Quantity: "1 unidad"}},
			Preparation: "Hornear 25 minutos.",
		}},
		Requirements: json.RawMessage(`{"targets":{"daily_calories":2000,"protein_g":100,"carbs_g":250,"fat_g":67,"conditions":["hipertension"]},"distribution":{"slots":[{"name":"almuerzo"},{"name":"merienda"}]}}`),
	}
}

func TestGeneratorCSV(t *testing.T) {
	data, err := NewGenerator().Render(samplePlan(), FormatCSV)
	require.NoError(t, err)

	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "slot", rows[0][0])
	assert.Equal(t, []string{"almuerzo", "1", "Pollo grillado con arroz", "REC_0007", "449", "42", "50", "9", ""}, rows[1])
	assert.Equal(t, "almuerzo", rows[2][0])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "merienda", rows[3][0])
}

func TestGeneratorPDF(t *testing.T) {
	data, err := NewGenerator().Render(samplePlan(), FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	invalid := samplePlan()
	invalid.Plan = nil
	invalid.Requirements = nil
	invalid.Violations = []planvalidator.Violation{{Check: planvalidator.CheckFormat, Message: "sin bloque <plan>"}}
	data, err = NewGenerator().Render(invalid, FormatPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))

	_, err = NewGenerator().Render(samplePlan(), "xlsx")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func request(h http.HandlerFunc, path, id string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/meal-plans/{id}/report", h)
	req := httptest.NewRequest(http.MethodGet, "/v1/meal-plans/"+id+"/report"+path, nil)
	req = req.WithContext(userctx.WithUserID(req.Context(), "user-1"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandleReportPresigned(t *testing.T) {
	plan := samplePlan()
	store := &presignStore{objects: map[string][]byte{}}
	h := NewHandlers(NewService(stubPlans{plan.ID: plan}, store, Options{PresignTTLSeconds: 60}, zerolog.Nop()))

	rec := request(h.HandleReport, "?format=csv", plan.ID.String())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dto ReportDTO
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&dto))
	assert.Equal(t, FormatCSV, dto.Format)
	assert.Equal(t, 60, dto.ExpiresIn)
	assert.Contains(t, dto.DownloadURL, "https://storage.example/reports/"+plan.ID.String())
	assert.Len(t, store.objects, 1)

	rec = request(h.HandleReport, "?redirect=1", plan.ID.String())
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), ".pdf?sig=1")
}

func TestHandleReportPublicURL(t *testing.T) {
	plan := samplePlan()
	store := &presignStore{objects: map[string][]byte{}}
	svc := NewService(stubPlans{plan.ID: plan}, store, Options{PublicBaseURL: "https://cdn.example/", PreferPublicURL: true}, zerolog.Nop())

	report, err := svc.Create(context.Background(), "user-1", plan.ID, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/"+report.ObjectKey, report.DownloadURL)
	assert.Nil(t, report.Data)
}

func TestHandleReportInlineFromLocalStore(t *testing.T) {
	plan := samplePlan()
	store, err := blob.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	h := NewHandlers(NewService(stubPlans{plan.ID: plan}, store, Options{}, zerolog.Nop()))

	rec := request(h.HandleReport, "", plan.ID.String())
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "plan_"+plan.ID.String()+".pdf")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestHandleReportErrors(t *testing.T) {
	plan := samplePlan()
	h := NewHandlers(NewService(stubPlans{plan.ID: plan}, nil, Options{}, zerolog.Nop()))

	rec := request(h.HandleReport, "?format=docx", plan.ID.String())
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(h.HandleReport, "", uuid.NewString())
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = request(h.HandleReport, "", "nope")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(h.HandleReport, "?format=csv", plan.ID.String())
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
}
