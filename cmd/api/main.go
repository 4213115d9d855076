package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/novelshelf/backend/internal/config"
	"github.com/novelshelf/backend/internal/database"
	apihttp "github.com/novelshelf/backend/internal/http"
	"github.com/novelshelf/backend/internal/notifications"
	"github.com/novelshelf/backend/internal/repository"
	"github.com/novelshelf/backend/internal/scheduler"
	"github.com/novelshelf/backend/internal/sources/defaults"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel})
	logger := slog.New(handler)
	slog.SetDefault(logger)

	db, err := database.Open(cfg.SQLitePath)
	if err != nil {
		slog.Error("failed to open sqlite", "path", cfg.SQLitePath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.ApplyMigrations(db); err != nil {
		slog.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	registry, registryErr := defaults.NewRegistry(cfg.YAMLSourcesPath)
	if registryErr != nil {
		slog.Warn("source registry loaded with warnings", "error", registryErr)
	}

	app := apihttp.NewServerWithRegistry(cfg, db, registry)

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if cfg.WebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.WebhookURL)
		if err != nil {
			slog.Error("failed to build webhook notifier", "error", err)
			os.Exit(1)
		}
		notifier = webhook
	}

	pollerCtx, pollerCancel := context.WithCancel(context.Background())
	poller := scheduler.NewPoller(
		repository.NewShelfRepository(db),
		registry,
		notifier,
		scheduler.PollerConfig{
			Interval: time.Duration(cfg.PollingMinutes) * time.Minute,
		},
		slog.Default(),
	)
	if cfg.PollingEnabled {
		poller.Start(pollerCtx)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server stopped", "error", err)
		}
	}()

	slog.Info("api started", "port", cfg.Port, "env", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	slog.Info("shutting down server")
	pollerCancel()
	poller.StopWait(2 * time.Second)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}
