package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-kratos/blades"
	"github.com/go-playground/validator/v10"

	"github.com/medtriage/config"
)

// Factory builds a blades.ModelProvider from a per-agent LLM config.
//
// It validates required fields, applies defaults for optional ones, and
// dispatches to provider-specific builders.
type Factory struct {
	validate *validator.Validate
	builders map[string]ModelBuilder
}

// builderRegistry 存储所有 provider 的 builder
var builderRegistry = map[string]ModelBuilder{
	"openai":    newOpenAIBuilder(),
	"groq":      newGroqBuilder(),
	"anthropic": newAnthropicBuilder(),
	"gemini":    newGeminiBuilder(),
}

func NewFactory() *Factory {
	return &Factory{validate: validator.New(), builders: builderRegistry}
}

// Build 构建 blades 模型
func (f *Factory) Build(ctx context.Context, cfg config.LLMConfig) (blades.ModelProvider, error) {
	cfg.Provider = normalizeProvider(cfg.Provider)

	if err := f.validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate llm config: %w", err)
	}

	applyDefaults(&cfg)

	builder, ok := f.builders[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
	return builder.Build(ctx, &cfg)
}

// NewInvoker 构建模型并包装为带超时的 Invoker
func (f *Factory) NewInvoker(ctx context.Context, cfg config.LLMConfig) (Invoker, error) {
	timeout, err := parseTimeout(cfg.Timeout)
	if err != nil {
		return nil, err
	}
	provider, err := f.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return WithTimeout(FromProvider(provider), timeout), nil
}

func normalizeProvider(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}

func parseTimeout(s string) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		s = defaultTimeout
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse llm timeout %q: %w", s, err)
	}
	return d, nil
}

const (
	defaultTimeout     = "60s"
	defaultMaxTokens   = 2048
	defaultTemperature = 0.3
)

func applyDefaults(cfg *config.LLMConfig) {
	if cfg.Timeout == "" {
		cfg.Timeout = defaultTimeout
	}
	// 为可选字段设置默认值，避免各 builder 中重复的 nil 检查
	if cfg.MaxTokens == nil {
		v := defaultMaxTokens
		cfg.MaxTokens = &v
	}
	if cfg.Temperature == nil {
		v := defaultTemperature
		cfg.Temperature = &v
	}
}
