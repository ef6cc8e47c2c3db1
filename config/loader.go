package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// envPattern 匹配 ${VAR} 或 ${VAR:default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// Loader 配置加载器
type Loader struct {
	configPath string
	mu         sync.RWMutex
	config     *Config
	meta       *toml.MetaData
	validator  *validator.Validate
}

// NewLoader 创建配置加载器
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		validator:  validator.New(),
	}
}

// Load 加载、展开环境变量、解析并校验配置
func (l *Loader) Load() (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	// 配置目录下的 .env 只补充未设置的环境变量
	envPath := filepath.Join(filepath.Dir(l.configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("load .env file %s: %w", envPath, err)
		}
	}

	content, err := os.ReadFile(l.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config file %s: %w", l.configPath, err)
	}

	var cfg Config
	meta, err := toml.Decode(expandEnv(string(content)), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", l.configPath, err)
	}

	cfg.applyDefaults()
	if err := l.validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	l.config = &cfg
	l.meta = &meta
	return &cfg, nil
}

func (l *Loader) validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		return err
	}
	def, ok := cfg.Agents[DefaultAgentName]
	if !ok {
		return fmt.Errorf("agent %q is required", DefaultAgentName)
	}
	if !def.Enabled {
		return fmt.Errorf("agent %q must be enabled", DefaultAgentName)
	}
	if cfg.Orchestrator.AgentTimeout.Duration > cfg.Orchestrator.Deadline.Duration {
		return errors.New("orchestrator.agent_timeout must not exceed orchestrator.deadline")
	}
	return nil
}

// expandEnv 展开 ${VAR} 和 ${VAR:default}
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if val := os.Getenv(groups[1]); val != "" {
			return val
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

// Get 线程安全地获取当前配置
func (l *Loader) Get() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// ConfigPath 返回配置文件路径
func (l *Loader) ConfigPath() string {
	return l.configPath
}

// ServiceOptions 返回 service 的原始 options 及元数据，供各集成自行解析
func (l *Loader) ServiceOptions(name string) (toml.Primitive, *toml.MetaData, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if l.config == nil || l.meta == nil {
		return toml.Primitive{}, nil, errors.New("config not loaded")
	}
	svc, ok := l.config.Services[name]
	if !ok {
		return toml.Primitive{}, nil, fmt.Errorf("service %s not found", name)
	}
	return svc.Options, l.meta, nil
}
