package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/atina-inc/atina-engine/pkg/config"
)

// Provider bundles the two model-backed capabilities. Both are implemented
// by the same underlying client.
type Provider struct {
	Extractor DocumentExtractor
	Dialogue  DialogueGenerator
}

// NewProvider creates the configured AI provider.
func NewProvider(cfg *config.AIConfig, logger *zap.Logger) (*Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY is required for the anthropic provider")
		}
		client := NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.MaxTokens, logger)
		return &Provider{Extractor: client, Dialogue: client}, nil

	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		client := NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.MaxTokens, logger)
		return &Provider{Extractor: client, Dialogue: client}, nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
