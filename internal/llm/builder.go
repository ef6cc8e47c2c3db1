package llm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/go-kratos/blades"

	"github.com/medtriage/config"
)

// ModelBuilder 定义模型构建器接口
type ModelBuilder interface {
	GetModel(cfg *config.LLMConfig) string
	GetBaseURL(cfg *config.LLMConfig) string
	Build(ctx context.Context, cfg *config.LLMConfig) (blades.ModelProvider, error)
}

// resolveModel 配置优先，未配置时使用 provider 默认模型
func resolveModel(cfg *config.LLMConfig, model string) string {
	if m := strings.TrimSpace(cfg.Model); m != "" {
		return m
	}
	return model
}

// resolveAPIKey 配置优先，其次按顺序查找逗号分隔的环境变量
func resolveAPIKey(cfg *config.LLMConfig, envKeys string) (string, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		for _, k := range strings.Split(envKeys, ",") {
			k = strings.TrimSpace(k)
			if k == "" {
				continue
			}
			if key = strings.TrimSpace(os.Getenv(k)); key != "" {
				break
			}
		}
	}
	if key == "" {
		return "", fmt.Errorf("%s api key not configured (api_key or %s)", cfg.Provider, envKeys)
	}
	return key, nil
}

func resolveBaseURL(cfg *config.LLMConfig, defaultURL string) string {
	if u := strings.TrimSpace(cfg.BaseURL); u != "" {
		return u
	}
	return defaultURL
}
