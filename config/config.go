package config

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/medtriage/utils"
)

// DefaultAgentName 没有单独配置 LLM 的 agent 使用该条目
const DefaultAgentName = "default"

// Config 根配置结构
type Config struct {
	Log          LogConfig                `toml:"log"`
	Store        StoreConfig              `toml:"store" validate:"required"`
	Metrics      MetricsConfig            `toml:"metrics"`
	Triage       TriageConfig             `toml:"triage"`
	Orchestrator OrchestratorConfig       `toml:"orchestrator"`
	Generator    GeneratorConfig          `toml:"generator"`
	Agents       map[string]AgentConfig   `toml:"agents" validate:"required,dive"`
	Services     map[string]ServiceConfig `toml:"services" validate:"dive"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `toml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `toml:"format" validate:"omitempty,oneof=text json"`
	Output string `toml:"output"`
}

// StoreConfig 报告存储配置
type StoreConfig struct {
	Path string `toml:"path" validate:"required"`
}

// MetricsConfig Prometheus 指标暴露配置，addr 为空时不启动 HTTP 服务
type MetricsConfig struct {
	Addr string `toml:"addr" validate:"omitempty,hostname_port"`
}

// TriageConfig 分诊路由配置
type TriageConfig struct {
	MaxRoles     int      `toml:"max_roles" validate:"omitempty,min=1,max=8"`
	DefaultRoles []string `toml:"default_roles"`
	// Catalog 可选的 YAML 角色目录，为空时使用内置目录
	Catalog string `toml:"catalog"`
}

// OrchestratorConfig 并发执行配置
type OrchestratorConfig struct {
	Workers      int            `toml:"workers" validate:"omitempty,min=1,max=32"`
	AgentTimeout utils.Duration `toml:"agent_timeout"`
	Deadline     utils.Duration `toml:"deadline"`
}

// GeneratorConfig 治疗建议等下游生成器配置
type GeneratorConfig struct {
	// DrugSafety 为每个推荐药品查询 FDA 标签并做安全评估
	DrugSafety bool   `toml:"drug_safety"`
	OpenFDAURL string `toml:"openfda_url" validate:"omitempty,url"`
}

// AgentConfig 单个 agent 的配置
type AgentConfig struct {
	Enabled bool      `toml:"enabled"`
	LLM     LLMConfig `toml:"llm"`
}

// LLMConfig 模型提供方配置
type LLMConfig struct {
	Provider    string   `toml:"provider" validate:"required,oneof=openai groq anthropic gemini"`
	Model       string   `toml:"model" validate:"required"`
	APIKey      string   `toml:"api_key"`
	BaseURL     string   `toml:"base_url" validate:"omitempty,url"`
	MaxTokens   *int     `toml:"max_tokens" validate:"omitempty,min=1"`
	Temperature *float64 `toml:"temperature" validate:"omitempty,min=0,max=2"`
	Timeout     string   `toml:"timeout"`
}

// ServiceConfig 外部集成配置，options 延迟解析
type ServiceConfig struct {
	Type        string         `toml:"type" validate:"required,oneof=opensearch pagerduty"`
	Enabled     bool           `toml:"enabled"`
	Description string         `toml:"description"`
	Options     toml.Primitive `toml:"options"`
}

// GetAgentConfig 返回指定 agent 的配置
func (c *Config) GetAgentConfig(name string) (*AgentConfig, error) {
	acfg, ok := c.Agents[name]
	if !ok {
		return nil, fmt.Errorf("agent config %s not found", name)
	}
	return &acfg, nil
}

// EnabledAgents 返回所有 enabled 的 agent 配置，每个条目独立拷贝
func (c *Config) EnabledAgents() map[string]*AgentConfig {
	out := make(map[string]*AgentConfig, len(c.Agents))
	for name, acfg := range c.Agents {
		if acfg.Enabled {
			out[name] = &acfg
		}
	}
	return out
}

func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Triage.MaxRoles == 0 {
		c.Triage.MaxRoles = 4
	}
	if len(c.Triage.DefaultRoles) == 0 {
		c.Triage.DefaultRoles = []string{"general_practitioner", "pharmacologist"}
	}
	if c.Orchestrator.Workers == 0 {
		c.Orchestrator.Workers = 5
	}
	if c.Orchestrator.AgentTimeout.Duration == 0 {
		c.Orchestrator.AgentTimeout = utils.Seconds(60)
	}
	if c.Orchestrator.Deadline.Duration == 0 {
		c.Orchestrator.Deadline = utils.Seconds(180)
	}
}
