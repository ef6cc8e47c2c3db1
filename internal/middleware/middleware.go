// Package middleware 为 llm.Invoker 提供可组合的装饰器
package middleware

import (
	"context"
	"io"

	"github.com/medtriage/internal/llm"
)

// Middleware 包装一个 Invoker
type Middleware func(next llm.Invoker) llm.Invoker

// Chain 按顺序应用中间件，第一个在最外层
func Chain(inv llm.Invoker, mws ...Middleware) llm.Invoker {
	for i := len(mws) - 1; i >= 0; i-- {
		inv = mws[i](inv)
	}
	return inv
}

// wrapped 保留被包装 Invoker 的 Close
type wrapped struct {
	next   llm.Invoker
	invoke func(ctx context.Context, prompt string) (string, error)
}

func (w *wrapped) Invoke(ctx context.Context, prompt string) (string, error) {
	return w.invoke(ctx, prompt)
}

func (w *wrapped) Close() error {
	if c, ok := w.next.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
