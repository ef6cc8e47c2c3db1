package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/medtriage/config"
)

// ErrModelNotFound 既没有同名模型也没有 default 模型
var ErrModelNotFound = errors.New("llm: model not found")

// ModelRegistry 按 agent 名称管理 Invoker，未单独配置的 agent 回退到 default
type ModelRegistry struct {
	mu     sync.RWMutex
	models map[string]Invoker
}

func NewModelRegistry() *ModelRegistry {
	return &ModelRegistry{models: make(map[string]Invoker)}
}

// Register registers an invoker under name, replacing any previous one.
func (r *ModelRegistry) Register(name string, model Invoker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[name] = model
}

// Get 精确查找
func (r *ModelRegistry) Get(name string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	model, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("model for agent %s: %w", name, ErrModelNotFound)
	}
	return model, nil
}

// Resolve 查找 name，不存在时回退到 default
func (r *ModelRegistry) Resolve(name string) (Invoker, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if model, ok := r.models[name]; ok {
		return model, nil
	}
	if model, ok := r.models[config.DefaultAgentName]; ok {
		return model, nil
	}
	return nil, fmt.Errorf("model for agent %s: %w", name, ErrModelNotFound)
}

// Names 返回已注册名称，按字典序
func (r *ModelRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all registered models that implement the Closer interface
func (r *ModelRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, m := range r.models {
		if closer, ok := m.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close model %s: %w", name, err))
			}
		}
	}
	return errors.Join(errs...)
}
