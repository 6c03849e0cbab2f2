package llm

import (
	"fmt"

	"github.com/querydesk/querydesk/internal/config"
)

// SupportedProviders lists available provider names for display.
var SupportedProviders = []string{"openai", "anthropic"}

// NewClient creates a completion client from the AI config.
func NewClient(cfg config.AIConfig) (Client, error) {
	switch cfg.Provider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("openai API key not set, set QUERYDESK_AI_API_KEY")
		}
		return NewOpenAI(cfg), nil

	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("anthropic API key not set, set QUERYDESK_AI_API_KEY")
		}
		return NewAnthropic(cfg), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q, supported: openai, anthropic", cfg.Provider)
	}
}
