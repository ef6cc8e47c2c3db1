package llm

import (
	"context"

	"github.com/go-kratos/blades"
	"github.com/go-kratos/blades/contrib/openai"

	"github.com/medtriage/config"
)

// openaiBuilder 同时服务 OpenAI 与兼容 OpenAI 协议的 Groq
type openaiBuilder struct {
	baseURL string
	model   string
	apiKey  string
}

func newOpenAIBuilder() ModelBuilder {
	return &openaiBuilder{
		model:   "gpt-4o-mini",
		baseURL: "https://api.openai.com/v1",
		apiKey:  "OPENAI_API_KEY",
	}
}

func newGroqBuilder() ModelBuilder {
	return &openaiBuilder{
		model:   "llama-3.3-70b-versatile",
		baseURL: "https://api.groq.com/openai/v1",
		apiKey:  "GROQ_API_KEY",
	}
}

func (b *openaiBuilder) GetModel(cfg *config.LLMConfig) string {
	return resolveModel(cfg, b.model)
}

func (b *openaiBuilder) GetBaseURL(cfg *config.LLMConfig) string {
	return resolveBaseURL(cfg, b.baseURL)
}

func (b *openaiBuilder) Build(ctx context.Context, cfg *config.LLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, b.apiKey)
	if err != nil {
		return nil, err
	}
	return openai.NewModel(b.GetModel(cfg), openai.Config{
		APIKey:          apiKey,
		BaseURL:         b.GetBaseURL(cfg),
		MaxOutputTokens: int64(*cfg.MaxTokens),
		Temperature:     *cfg.Temperature,
	}), nil
}
