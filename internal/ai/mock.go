package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// MockProvider answers deterministically from the request hint: every option
// of a slot is a recipe portion scaled to the slot target. Slots short of
// recipes are padded with free options so each slot has exactly OptionsPerSlot.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (p *MockProvider) Name() string { return "mock" }

type mockOption struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	RecipeIDs   []string `json:"recipe_ids"`
	Calories    float64  `json:"calories"`
	ProteinG    float64  `json:"protein_g"`
	CarbsG      float64  `json:"carbs_g"`
	FatG        float64  `json:"fat_g"`
}

func (p *MockProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return CompletionResponse{}, err
	}
	if req.Hint == nil || len(req.Hint.Slots) == 0 {
		return CompletionResponse{Text: "No hay datos suficientes para armar un plan.", Model: p.Name()}, nil
	}

	perSlot := req.Hint.OptionsPerSlot
	if perSlot <= 0 {
		perSlot = 3
	}

	slots := make(map[string][]mockOption, len(req.Hint.Slots))
	var lines []string
	for _, s := range req.Hint.Slots {
		opts := make([]mockOption, 0, perSlot)
		for i := 0; i < perSlot; i++ {
			if i >= len(s.Recipes) {
				opts = append(opts, mockOption{
					Name:     fmt.Sprintf("Opción libre %d", i+1),
					Calories: s.Calories,
					ProteinG: s.ProteinG,
					CarbsG:   s.CarbsG,
					FatG:     s.FatG,
				})
				continue
			}
			r := s.Recipes[i]
			opts = append(opts, mockOption{
				Name:        r.Name,
				Description: fmt.Sprintf("Porción ajustada a %.0f kcal [%s]", s.Calories, r.ID),
				RecipeIDs:   []string{r.ID},
				Calories:    s.Calories,
				ProteinG:    s.ProteinG,
				CarbsG:      s.CarbsG,
				FatG:        s.FatG,
			})
		}
		slots[s.Name] = opts
		lines = append(lines, fmt.Sprintf("- %s: %d opciones de %.0f kcal", s.Name, len(opts), s.Calories))
	}

	body, err := json.Marshal(map[string]any{"slots": slots})
	if err != nil {
		return CompletionResponse{}, err
	}

	text := "Plan semanal con opciones equivalentes por comida:\n" + strings.Join(lines, "\n") +
		"\n<plan>" + string(body) + "</plan>"
	return CompletionResponse{Text: text, Model: p.Name()}, nil
}
