package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/docquery/internal/common"
	"github.com/ternarybob/docquery/internal/interfaces"
)

// NewGenerationService creates the generation service implementation
// selected by llm.provider. Embeddings always come from Gemini, so callers
// that need both should create the Gemini service separately.
func NewGenerationService(cfg *common.Config, logger arbor.ILogger) (interfaces.GenerationService, error) {
	provider := cfg.LLM.Provider
	if provider == "" {
		provider = common.LLMProviderGemini
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing generation service")

	switch provider {
	case common.LLMProviderGemini:
		return NewGeminiService(&cfg.Gemini, logger)

	case common.LLMProviderClaude:
		return NewClaudeService(&cfg.Claude, logger)

	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'gemini' or 'claude'", provider)
	}
}
