package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/magabrotheeeer/student-portal/internal/app/audit"
	"github.com/magabrotheeeer/student-portal/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting audit service", slog.String("env", cfg.Env))

	if cfg.RabbitMQ.URL == "" {
		logger.Error("rabbitmq url is not set")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := audit.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize audit app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("audit app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("audit app stopped gracefully")
}
