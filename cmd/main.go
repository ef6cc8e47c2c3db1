package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medtriage/internal/app"
	"github.com/medtriage/internal/persistence"
	"github.com/medtriage/internal/repl"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "./config.toml", "配置文件路径")
	symptoms := flag.String("symptoms", "", "单次分析的症状描述，为空时进入交互模式")
	file := flag.String("file", "", "随症状一起分析的文本文件")
	export := flag.String("export", "", "单次分析后将报告导出为 Markdown 的路径")
	transcriptDir := flag.String("transcript-dir", "", "交互模式会话记录目录，默认 ~/.medtriage/sessions")
	flag.Parse()

	// 使用 signal.NotifyContext 创建可被信号取消的 context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApplication(*configPath)
	if err != nil {
		log.Fatalf("failed to create application: %v", err)
	}
	if err := application.Initialize(ctx); err != nil {
		log.Fatalf("failed to initialize application: %v", err)
	}
	defer func() {
		if err := application.ShutdownWithTimeout(5 * time.Second); err != nil {
			slog.Error("main.shutdown.failed", "error", err)
		}
	}()

	if addr := application.Config().Metrics.Addr; addr != "" {
		srv := serveMetrics(addr, application.Metrics().Handler())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if *symptoms == "" && *file == "" {
		if err := runREPL(ctx, application, *transcriptDir); err != nil {
			slog.Error("main.repl.failed", "error", err)
		}
		return
	}

	if err := runOnce(ctx, application, app.Input{Symptoms: *symptoms, FilePath: *file}, *export); err != nil {
		if ctx.Err() != nil {
			slog.Warn("main.analysis.interrupted", "error", ctx.Err())
			return
		}
		slog.Error("main.analysis.failed", "error", err)
		// defer 不会在 os.Exit 后执行
		_ = application.ShutdownWithTimeout(5 * time.Second)
		os.Exit(1)
	}
}

func runOnce(ctx context.Context, application *app.Application, in app.Input, exportPath string) error {
	report, err := application.Analyze(ctx, in)
	if report != nil {
		fmt.Println(repl.FormatReport(report))
	}
	if err != nil {
		return err
	}
	if exportPath != "" {
		written, err := persistence.ExportReport(report, exportPath)
		if err != nil {
			return fmt.Errorf("export report: %w", err)
		}
		fmt.Printf("\nExported to %s\n", written)
	}
	return nil
}

func runREPL(ctx context.Context, application *app.Application, transcriptDir string) error {
	r, err := repl.NewREPL(ctx,
		repl.WithBackend(application),
		repl.WithTranscriptDir(transcriptDir),
	)
	if err != nil {
		return err
	}
	defer r.Close()
	return r.Run()
}

func serveMetrics(addr string, handler http.Handler) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		slog.Info("main.metrics.listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("main.metrics.failed", "error", err)
		}
	}()
	return srv
}
