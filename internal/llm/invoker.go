package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-kratos/blades"
)

// ErrEmptyResponse 模型返回了空消息
var ErrEmptyResponse = errors.New("llm: empty response")

// Invoker 是 agent 依赖的最小模型契约：输入 prompt，返回文本
type Invoker interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// InvokerFunc 允许普通函数作为 Invoker 使用
type InvokerFunc func(ctx context.Context, prompt string) (string, error)

// Invoke implements Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Generator 是 blades.ModelProvider 中 Invoker 实际用到的部分
type Generator interface {
	Generate(ctx context.Context, req *blades.ModelRequest) (*blades.ModelResponse, error)
}

type generatorInvoker struct {
	gen Generator
}

// FromProvider 将 blades 模型适配为 Invoker，每次调用只发送一条 user 消息
func FromProvider(gen Generator) Invoker {
	return &generatorInvoker{gen: gen}
}

func (g *generatorInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	resp, err := g.gen.Generate(ctx, &blades.ModelRequest{
		Messages: []*blades.Message{blades.UserMessage(prompt)},
	})
	if err != nil {
		return "", err
	}
	if resp == nil || resp.Message == nil {
		return "", ErrEmptyResponse
	}
	return strings.TrimSpace(resp.Message.Text()), nil
}

// Close 透传底层 provider 的 Close（如果有）
func (g *generatorInvoker) Close() error {
	if closer, ok := g.gen.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// WithTimeout 为每次调用加上超时，d <= 0 时原样返回
func WithTimeout(next Invoker, d time.Duration) Invoker {
	if d <= 0 {
		return next
	}
	return &timeoutInvoker{next: next, timeout: d}
}

type timeoutInvoker struct {
	next    Invoker
	timeout time.Duration
}

func (t *timeoutInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Invoke(ctx, prompt)
}

func (t *timeoutInvoker) Close() error {
	if closer, ok := t.next.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
