package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/medtriage/internal/llm"
)

var errModelDown = errors.New("model unavailable")

func reply(text string) llm.Invoker {
	return llm.InvokerFunc(func(context.Context, string) (string, error) { return text, nil })
}

func failing() llm.Invoker {
	return llm.InvokerFunc(func(context.Context, string) (string, error) { return "", errModelDown })
}

// recorder 记录收到的 prompt
type recorder struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
}

func (r *recorder) Invoke(_ context.Context, prompt string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, prompt)
	return r.reply, r.err
}

func (r *recorder) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.prompts)
}

// resolver 按角色返回固定模型，fallback 处理其余角色
type resolver struct {
	models   map[string]llm.Invoker
	fallback llm.Invoker
}

func (r resolver) Resolve(name string) (llm.Invoker, error) {
	if m, ok := r.models[name]; ok {
		return m, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("model for agent %s: %w", name, llm.ErrModelNotFound)
}

type countingObserver struct {
	mu       sync.Mutex
	started  int
	finished map[string]bool
	stage    string
	routed   []string
}

func (o *countingObserver) AgentStarted() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
}

func (o *countingObserver) AgentFinished(role string, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.finished == nil {
		o.finished = make(map[string]bool)
	}
	o.finished[role] = failed
}

func (o *countingObserver) ObserveRouted(stage string, roles []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stage, o.routed = stage, roles
}
