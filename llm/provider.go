package llm

import (
	"fmt"

	"github.com/aimeeyu8/Tastebuddy/config"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// NewModel builds the model named modelName on the configured provider.
func NewModel(cfg config.LLM, modelName string) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOllama, "":
		model, err := ollama.New(
			ollama.WithServerURL(cfg.Address()),
			ollama.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama model %s: %w", modelName, err)
		}
		return model, nil
	case ProviderOpenAI:
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("llm provider %q needs OPENAI_API_KEY", cfg.Provider)
		}
		model, err := openai.New(
			openai.WithToken(cfg.OpenAIKey),
			openai.WithModel(modelName),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai model %s: %w", modelName, err)
		}
		return model, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
