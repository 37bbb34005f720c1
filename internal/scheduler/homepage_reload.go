package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/MrSnakeDoc/linkshelf/internal/dashboard"
	"github.com/MrSnakeDoc/linkshelf/internal/domain"
	"github.com/MrSnakeDoc/linkshelf/internal/logger"
)

// Importer writes parsed bookmarks for a user
type Importer interface {
	ImportFor(ctx context.Context, userID string, nbs []domain.NewBookmark) (dashboard.ImportResult, error)
}

// Source yields the bookmarks to import
type Source interface {
	Path() string
	Load() ([]domain.NewBookmark, error)
}

// HomepageReloader periodically imports a Homepage file into one user's shelf
type HomepageReloader struct {
	source        Source
	importer      Importer
	userID        string
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger <-chan struct{}
}

// NewHomepageReloader creates a new homepage reloader
func NewHomepageReloader(
	source Source,
	importer Importer,
	userID string,
	log logger.Logger,
	interval time.Duration,
	manualTrigger <-chan struct{},
) *HomepageReloader {
	return &HomepageReloader{
		source:        source,
		importer:      importer,
		userID:        userID,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then on every tick or manual trigger
func (hr *HomepageReloader) Start(ctx context.Context) error {
	if _, err := hr.Reload(ctx); err != nil {
		return fmt.Errorf("initial import failed: %w", err)
	}

	ticker := time.NewTicker(hr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage file",
						logger.Error(err))
				}
			case <-hr.manualTrigger:
				hr.logger.Info("manual import triggered")
				if _, err := hr.Reload(ctx); err != nil {
					hr.logger.Error("failed to import homepage file",
						logger.Error(err))
				}
			case <-hr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader
func (hr *HomepageReloader) Stop() {
	close(hr.stopCh)
}

// Reload reads the file and inserts the entries the user does not have yet
func (hr *HomepageReloader) Reload(ctx context.Context) (dashboard.ImportResult, error) {
	hr.logger.Debug("importing homepage file",
		logger.String("path", hr.source.Path()))

	nbs, err := hr.source.Load()
	if err != nil {
		return dashboard.ImportResult{}, fmt.Errorf("failed to load %s: %w", hr.source.Path(), err)
	}

	res, err := hr.importer.ImportFor(ctx, hr.userID, nbs)
	if err != nil {
		return res, fmt.Errorf("failed to import bookmarks: %w", err)
	}

	if res.Imported > 0 {
		hr.logger.Info("homepage bookmarks imported",
			logger.String("path", hr.source.Path()),
			logger.Int("imported", res.Imported),
			logger.Int("skipped", res.Skipped))
	}
	return res, nil
}
