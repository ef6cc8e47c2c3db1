package llm

import (
	"context"

	"github.com/go-kratos/blades"
	"github.com/go-kratos/blades/contrib/gemini"
	"google.golang.org/genai"

	"github.com/medtriage/config"
)

type geminiBuilder struct {
	model  string
	apiKey string
}

func newGeminiBuilder() ModelBuilder {
	return &geminiBuilder{
		model:  "gemini-2.5-flash",
		apiKey: "GEMINI_API_KEY,GOOGLE_API_KEY",
	}
}

func (b *geminiBuilder) GetModel(cfg *config.LLMConfig) string {
	return resolveModel(cfg, b.model)
}

// GetBaseURL genai 客户端自行决定 endpoint，这里只透传显式配置
func (b *geminiBuilder) GetBaseURL(cfg *config.LLMConfig) string {
	return cfg.BaseURL
}

func (b *geminiBuilder) Build(ctx context.Context, cfg *config.LLMConfig) (blades.ModelProvider, error) {
	apiKey, err := resolveAPIKey(cfg, b.apiKey)
	if err != nil {
		return nil, err
	}
	var opts gemini.Config
	opts.ClientConfig = genai.ClientConfig{APIKey: apiKey}
	if u := b.GetBaseURL(cfg); u != "" {
		opts.ClientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: u}
	}
	opts.MaxOutputTokens = int32(*cfg.MaxTokens)
	opts.Temperature = float32(*cfg.Temperature)
	return gemini.NewModel(ctx, b.GetModel(cfg), opts)
}
