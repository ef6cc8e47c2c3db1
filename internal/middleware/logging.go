package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/medtriage/internal/llm"
)

// Logging 记录每次模型调用的耗时与结果，prompt 与回复只记录长度，避免日志中出现患者信息
func Logging(name string, logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next llm.Invoker) llm.Invoker {
		return &wrapped{next: next, invoke: func(ctx context.Context, prompt string) (string, error) {
			start := time.Now()
			logger.DebugContext(ctx, "llm.invoke.start", "caller", name, "prompt_len", len(prompt))

			out, err := next.Invoke(ctx, prompt)
			elapsed := time.Since(start)
			if err != nil {
				logger.WarnContext(ctx, "llm.invoke.error", "caller", name, "elapsed", elapsed, "error", err)
				return out, err
			}
			logger.DebugContext(ctx, "llm.invoke.done", "caller", name, "elapsed", elapsed, "reply_len", len(out))
			return out, nil
		}}
	}
}
