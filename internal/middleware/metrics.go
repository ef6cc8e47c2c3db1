package middleware

import (
	"context"
	"time"

	"github.com/medtriage/internal/llm"
	"github.com/medtriage/internal/metrics"
)

// Metrics 记录调用次数与延迟，recorder 为 nil 时不做任何包装
func Metrics(name string, recorder *metrics.Recorder) Middleware {
	return func(next llm.Invoker) llm.Invoker {
		if recorder == nil {
			return next
		}
		return &wrapped{next: next, invoke: func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			out, err := next.Invoke(ctx, prompt)
			recorder.ObserveLLMCall(name, time.Since(start), err)
			return out, err
		}}
	}
}
