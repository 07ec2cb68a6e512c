package ai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fdg312/nutriplan/internal/config"
)

func TestMockProviderBuildsPlanFromHint(t *testing.T) {
	hint := &PlanHint{
		OptionsPerSlot: 2,
		Slots: []SlotHint{
			{Name: "breakfast", Calories: 500, ProteinG: 30, CarbsG: 60, FatG: 15, Recipes: []RecipeHint{
				{ID: "REC_0001", Name: "Avena"}, {ID: "REC_0002", Name: "Tostadas"}, {ID: "REC_0003", Name: "Yogur"},
			}},
			{Name: "dinner", Calories: 600, ProteinG: 40, CarbsG: 60, FatG: 22},
		},
	}

	resp, err := NewMockProvider().Complete(context.Background(), CompletionRequest{Hint: hint})
	require.NoError(t, err)

	start := strings.Index(resp.Text, "<plan>")
	end := strings.Index(resp.Text, "</plan>")
	require.True(t, start >= 0 && end > start)

	var plan struct {
		Slots map[string][]mockOption `json:"slots"`
	}
	require.NoError(t, json.Unmarshal([]byte(resp.Text[start+len("<plan>"):end]), &plan))
	require.Len(t, plan.Slots["breakfast"], 2)
	assert.Equal(t, []string{"REC_0001"}, plan.Slots["breakfast"][0].RecipeIDs)
	assert.Equal(t, 500.0, plan.Slots["breakfast"][1].Calories)
	require.Len(t, plan.Slots["dinner"], 2)
	for _, o := range plan.Slots["dinner"] {
		assert.Empty(t, o.RecipeIDs)
		assert.Equal(t, 600.0, o.Calories)
	}
}

func TestMockProviderWithoutHint(t *testing.T) {
	resp, err := NewMockProvider().Complete(context.Background(), CompletionRequest{})
	require.NoError(t, err)
	assert.NotContains(t, resp.Text, "<plan>")
}

func TestOpenAIProviderComplete(t *testing.T) {
	var got chatCompletionsRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		_, _ = w.Write([]byte(`{"model":"gpt-test","choices":[{"message":{"role":"assistant","content":" hola "}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&config.Config{OpenAIAPIKey: "sk-test", OpenAIModel: "gpt-test", OpenAIBaseURL: srv.URL + "/v1/", AIMaxOutputTokens: 100})
	resp, err := p.Complete(context.Background(), CompletionRequest{
		System:   "sistema",
		Messages: []Message{{Role: RoleUser, Content: "plan"}, {Role: "", Content: "skip"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "hola", resp.Text)
	assert.Equal(t, 12, resp.PromptTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, RoleSystem, got.Messages[0].Role)
	assert.Equal(t, 100, got.MaxTokens)
}

func TestOpenAIProviderErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(&config.Config{OpenAIAPIKey: "k", OpenAIModel: "m", OpenAIBaseURL: srv.URL})
	_, err := p.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "x"}}})
	assert.ErrorIs(t, err, ErrUpstream)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(&config.Config{AIMode: config.AIModeMock})
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = NewProvider(&config.Config{AIMode: config.AIModeOpenAI})
	assert.Error(t, err)

	p, err = NewProvider(&config.Config{AIMode: config.AIModeOpenAI, OpenAIAPIKey: "k", OpenAIModel: "gpt"})
	require.NoError(t, err)
	assert.Equal(t, "openai:gpt", p.Name())

	_, err = NewProvider(&config.Config{AIMode: "magic"})
	assert.Error(t, err)
}
