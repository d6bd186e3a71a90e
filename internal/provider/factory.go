package provider

import (
	"fmt"

	"github.com/hexborne/vulndetective/api/schemas"
	"github.com/hexborne/vulndetective/internal/config"
)

// New builds the configured ModelProvider backend. The API key falls back
// to the environment when the config leaves it blank.
func New(cfg config.LLMConfig) (schemas.ModelProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = apiKeyFromEnv()
	}

	switch cfg.Provider {
	case "", "gemini":
		return NewGeminiProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}
