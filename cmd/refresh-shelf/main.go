package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/novelshelf/backend/internal/config"
	"github.com/novelshelf/backend/internal/database"
	"github.com/novelshelf/backend/internal/notifications"
	"github.com/novelshelf/backend/internal/repository"
	"github.com/novelshelf/backend/internal/scheduler"
	"github.com/novelshelf/backend/internal/sources/defaults"
)

// One-shot shelf refresh: runs a single polling cycle and exits. Useful from
// cron on hosts where the API server does not run with polling enabled.
func main() {
	var (
		timeout = flag.Duration("timeout", 5*time.Minute, "Overall refresh timeout")
		notify  = flag.Bool("notify", false, "Send webhook notifications for new chapters")
	)
	flag.Parse()

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

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

	var notifier notifications.Notifier = notifications.NoopNotifier{}
	if *notify && cfg.WebhookURL != "" {
		webhook, err := notifications.NewWebhookNotifier(cfg.WebhookURL)
		if err != nil {
			slog.Error("failed to build webhook notifier", "error", err)
			os.Exit(1)
		}
		notifier = webhook
	}

	poller := scheduler.NewPoller(
		repository.NewShelfRepository(db),
		registry,
		notifier,
		scheduler.PollerConfig{Interval: time.Minute},
		slog.Default(),
	)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := poller.RunOnce(ctx); err != nil {
		slog.Error("refresh failed", "error", err)
		os.Exit(1)
	}

	slog.Info("shelf refresh complete")
}
