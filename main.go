package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"ragbase/internal/app"
	"ragbase/internal/config"
	"ragbase/internal/logger"
)

func main() {
	handler := logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := app.Bootstrap(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer deps.DB.Close()

	application, err := app.New(ctx, cfg, deps.DB, deps.VectorStore, deps.NSQProducer)
	if err != nil {
		slog.Error("failed to build application", "error", err)
		os.Exit(1)
	}

	if cfg.EnableIngestWorker {
		consumer, err := app.StartIngestConsumer(cfg, application.IngestConsumer)
		if err != nil {
			slog.Error("failed to start ingest consumer", "error", err)
			os.Exit(1)
		}
		defer consumer.Stop()
		slog.Info("ingest consumer connected", "lookupd", cfg.NSQLookupd)
	}

	if err := application.Run(ctx); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
