package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/sweeper/internal/config"
	"github.com/JonMunkholm/sweeper/internal/core"
	"github.com/JonMunkholm/sweeper/internal/logging"
	"github.com/JonMunkholm/sweeper/internal/metrics"
	"github.com/JonMunkholm/sweeper/internal/publish"
	"github.com/JonMunkholm/sweeper/internal/web"
)

func main() {
	// Load .env file if it exists; real environment variables take precedence.
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"upload_max_files", cfg.Upload.MaxFiles,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"publish_enabled", cfg.Publish.Enabled(),
	)
	slog.Debug("effective configuration", "config", cfg.String())

	rec := metrics.New()
	pipeOpts := []core.PipelineOption{
		core.WithObserver(rec),
		core.WithPreviewRows(cfg.Pipeline.PreviewRows),
		core.WithHistogramBins(cfg.Pipeline.HistogramBins),
	}

	// Optional publish sink
	ctx := context.Background()
	if cfg.Publish.Enabled() {
		sink, err := publish.Connect(ctx, cfg.Publish.DatabaseURL, cfg.Publish.MaxConns)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer sink.Close()
		slog.Info("connected to database", "max_conns", cfg.Publish.MaxConns)
		pipeOpts = append(pipeOpts, core.WithPublisher(sink))
	}

	pipeline := core.NewPipeline(pipeOpts...)
	limiter := core.NewBatchLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)
	server := web.NewServer(cfg, pipeline, limiter, rec)

	// Sweep idle rate-limit buckets until shutdown
	done := make(chan struct{})
	if rl := server.RateLimiter(); rl != nil {
		go rl.Run(done, time.Minute)
	}

	// Graceful shutdown
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		close(done)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for batches to complete", "active", status.Active)
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-stopped
	slog.Info("server stopped")
}
