package llm

import (
	"context"

	"github.com/go-kratos/blades"
	"github.com/go-kratos/blades/contrib/anthropic"

	"github.com/medtriage/config"
)

type anthropicBuilder struct {
	baseURL string
	apiKey  string
	model   string
}

func newAnthropicBuilder() ModelBuilder {
	return &anthropicBuilder{
		model:   "claude-3-5-haiku-latest",
		apiKey:  "ANTHROPIC_API_KEY",
		baseURL: "https://api.anthropic.com",
	}
}

func (b *anthropicBuilder) GetModel(cfg *config.LLMConfig) string {
	return resolveModel(cfg, b.model)
}

func (b *anthropicBuilder) GetBaseURL(cfg *config.LLMConfig) string {
	return resolveBaseURL(cfg, b.baseURL)
}

func (b *anthropicBuilder) Build(ctx context.Context, cfg *config.LLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, b.apiKey)
	if err != nil {
		return nil, err
	}
	return anthropic.NewModel(b.GetModel(cfg), anthropic.Config{
		APIKey:          apiKey,
		BaseURL:         b.GetBaseURL(cfg),
		MaxOutputTokens: int64(*cfg.MaxTokens),
		Temperature:     *cfg.Temperature,
	}), nil
}
