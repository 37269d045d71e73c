package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/sources/watchlist"
)

// Importer merges a watchlist file into the bookmark collection.
type Importer struct {
	loader        *watchlist.Loader
	store         *bookmark.Store
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}
}

// NewImporter creates an importer. A zero interval disables periodic
// imports; the manual trigger still works.
func NewImporter(
	loader *watchlist.Loader,
	store *bookmark.Store,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Importer {
	return &Importer{
		loader:        loader,
		store:         store,
		logger:        log.With(logger.String("component", "importer")),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start imports once, then listens for ticks and manual triggers. A failing
// first import is logged, not fatal.
func (im *Importer) Start(ctx context.Context) error {
	if _, err := im.Import(ctx); err != nil {
		im.logger.Warn("initial import failed", logger.Error(err))
	}

	var tick <-chan time.Time
	var ticker *time.Ticker
	if im.interval > 0 {
		ticker = time.NewTicker(im.interval)
		tick = ticker.C
	}

	go func() {
		if ticker != nil {
			defer ticker.Stop()
		}
		for {
			select {
			case <-tick:
				if _, err := im.Import(ctx); err != nil {
					im.logger.Error("failed to import watchlist", logger.Error(err))
				}
			case <-im.manualTrigger:
				im.logger.Info("manual import triggered")
				if _, err := im.Import(ctx); err != nil {
					im.logger.Error("failed to import watchlist", logger.Error(err))
				}
			case <-im.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the importer. It is safe to call more than once.
func (im *Importer) Stop() {
	im.stopOnce.Do(func() { close(im.stopCh) })
}

// Import loads the file and upserts every valid entry.
func (im *Importer) Import(ctx context.Context) (bookmark.ImportResult, error) {
	im.logger.Info("importing watchlist", logger.String("file", im.loader.Path()))

	file, err := im.loader.Load()
	if err != nil {
		return bookmark.ImportResult{}, fmt.Errorf("failed to load watchlist: %w", err)
	}

	records, mapErrs := watchlist.Map(file)
	for _, e := range mapErrs {
		im.logger.Warn("skipping watchlist entry", logger.Error(e))
	}

	res := im.store.Import(ctx, records)
	res.Rejected += len(mapErrs)

	im.logger.Info("watchlist imported",
		logger.Int("added", res.Added),
		logger.Int("merged", res.Merged),
		logger.Int("unchanged", res.Unchanged),
		logger.Int("rejected", res.Rejected))

	return res, nil
}
