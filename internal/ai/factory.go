package ai

import (
	"fmt"

	"github.com/fdg312/nutriplan/internal/config"
)

func NewProvider(cfg *config.Config) (Provider, error) {
	switch cfg.AIMode {
	case config.AIModeOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("AI_MODE=openai requires OPENAI_API_KEY")
		}
		return NewOpenAIProvider(cfg), nil
	case config.AIModeMock, "":
		return NewMockProvider(), nil
	default:
		return nil, fmt.Errorf("unsupported AI_MODE: %s", cfg.AIMode)
	}
}
