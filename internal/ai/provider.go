package ai

import (
	"context"
	"errors"
)

var (
	ErrEmptyResponse = errors.New("ai response does not contain text")
	ErrUpstream      = errors.New("ai provider request failed")
)

// Provider — языковая модель, которая пишет план питания по промпту
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is one chat turn. Hint carries the structured planning
// context so offline providers can answer without a model.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	Hint        *PlanHint
}

type CompletionResponse struct {
	Text         string
	Model        string
	PromptTokens int
	OutputTokens int
}

// PlanHint — целевые значения по приёмам пищи и кандидаты рецептов
type PlanHint struct {
	OptionsPerSlot int
	Slots          []SlotHint
}

type SlotHint struct {
	Name     string
	Calories float64
	ProteinG float64
	CarbsG   float64
	FatG     float64
	Recipes  []RecipeHint
}

type RecipeHint struct {
	ID       string
	Name     string
	Calories float64
}
