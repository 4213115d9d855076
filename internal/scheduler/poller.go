package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/novelshelf/backend/internal/notifications"
	"github.com/novelshelf/backend/internal/repository"
	"github.com/novelshelf/backend/internal/sources"
)

type pollRepository interface {
	ListForPolling() ([]repository.PollingItem, error)
	UpdatePollingState(id int64, knownChapters int, latestChapter *string, latestReleaseAt *time.Time, checkedAt time.Time) error
}

type Poller struct {
	repo     pollRepository
	registry *sources.Registry
	notifier notifications.Notifier
	interval time.Duration
	logger   *slog.Logger
	started  bool
	stopCh   chan struct{}
}

type PollerConfig struct {
	Interval time.Duration
}

func NewPoller(repo pollRepository, registry *sources.Registry, notifier notifications.Notifier, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Minute
	}
	if notifier == nil {
		notifier = notifications.NoopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Poller{
		repo:     repo,
		registry: registry,
		notifier: notifier,
		interval: cfg.Interval,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.started = true
	p.logger.Info("poller started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		if err := p.RunOnce(ctx); err != nil {
			p.logger.Warn("poller initial run failed", "error", err)
		}
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("poller stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				if err := p.RunOnce(ctx); err != nil {
					p.logger.Warn("poller cycle failed", "error", err)
				}
			}
		}
	}()
}

// StopWait blocks until the polling loop exits or the timeout passes. A
// poller that was never started has no loop to wait for.
func (p *Poller) StopWait(timeout time.Duration) {
	if !p.started {
		return
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

func (p *Poller) RunOnce(ctx context.Context) error {
	items, err := p.repo.ListForPolling()
	if err != nil {
		return fmt.Errorf("load shelf items for polling: %w", err)
	}

	for _, item := range items {
		source, ok := p.registry.Get(item.SourceKey)
		if !ok {
			p.logger.Debug("source missing for shelf item", "itemId", item.ID, "sourceKey", item.SourceKey)
			continue
		}

		requestCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		chapters, pollErr := source.ChapterPage(requestCtx, item.NovelPath, 1)
		cancel()

		if pollErr != nil {
			p.logger.Warn("poll chapters failed", "itemId", item.ID, "sourceKey", item.SourceKey, "error", pollErr)
			continue
		}
		if len(chapters) == 0 {
			continue
		}

		latest := latestChapter(chapters)
		now := time.Now().UTC()

		// Skip the notification on the first observation so adding a
		// novel with a long backlog does not fire immediately.
		if item.KnownChapters > 0 && len(chapters) > item.KnownChapters {
			message := notifications.NewChapterMessage(item.Title, item.SourceKey, latest.Name, len(chapters)-item.KnownChapters)
			if err := p.notifier.Notify(ctx, message); err != nil {
				p.logger.Warn("poll notify failed", "itemId", item.ID, "error", err)
			}
		}

		latestName := latest.Name
		if err := p.repo.UpdatePollingState(item.ID, len(chapters), &latestName, latest.ReleaseAt, now); err != nil {
			p.logger.Warn("poll update state failed", "itemId", item.ID, "error", err)
			continue
		}
	}

	return nil
}

func latestChapter(chapters []sources.Chapter) sources.Chapter {
	latest := chapters[len(chapters)-1]
	for _, chapter := range chapters {
		if chapter.ReleaseAt == nil {
			continue
		}
		if latest.ReleaseAt == nil || chapter.ReleaseAt.After(*latest.ReleaseAt) {
			latest = chapter
		}
	}
	return latest
}
