package logger

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/medtriage/config"
)

// ParseLevel 将配置中的级别字符串转换为 slog.Level，未知值按 info 处理
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler 根据配置构建 handler
func NewHandler(w io.Writer, cfg config.LogConfig) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// Initialize 初始化全局日志配置，返回的 closer 用于关闭日志文件
func Initialize(cfg config.LogConfig) io.Closer {
	var (
		writer io.Writer = os.Stdout
		closer io.Closer = nopCloser{}
	)
	if cfg.Output != "" && cfg.Output != "stdout" {
		f, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v\n", cfg.Output, err)
		} else {
			writer = f
			closer = f
		}
	}

	handler := NewHandler(writer, cfg)
	slog.SetDefault(slog.New(handler))

	// 标准库 log 也输出到 slog
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(handler, ParseLevel(cfg.Level)).Writer())
	return closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
