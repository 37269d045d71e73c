package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// DefaultDedupInterval is used when no interval is configured.
const DefaultDedupInterval = 24 * time.Hour

// DedupRun summarizes one deduplication pass.
type DedupRun struct {
	At      time.Time     `json:"at"`
	Before  int           `json:"before"`
	After   int           `json:"after"`
	Dropped int           `json:"dropped"`
	Took    time.Duration `json:"-"`
}

// Deduplicator heals the bookmark collection: once at start-up, then on every
// tick or manual trigger.
type Deduplicator struct {
	store         *bookmark.Store
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	manualTrigger chan struct{}

	mu   sync.RWMutex
	last DedupRun
}

// NewDeduplicator creates a deduplicator. manualTrigger may be nil.
func NewDeduplicator(
	store *bookmark.Store,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *Deduplicator {
	if interval <= 0 {
		interval = DefaultDedupInterval
	}

	return &Deduplicator{
		store:         store,
		logger:        log.With(logger.String("component", "dedup")),
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start runs a pass immediately, then periodically in the background.
func (d *Deduplicator) Start(ctx context.Context) error {
	d.Run(ctx)

	ticker := time.NewTicker(d.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				d.Run(ctx)
			case <-d.manualTrigger:
				d.logger.Info("manual deduplication triggered")
				d.Run(ctx)
			case <-d.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the background loop. It is safe to call more than once.
func (d *Deduplicator) Stop() {
	d.stopOnce.Do(func() { close(d.stopCh) })
}

// Run performs one deduplication pass.
func (d *Deduplicator) Run(ctx context.Context) DedupRun {
	start := time.Now()

	before := len(d.store.ListAll(ctx))
	after := len(d.store.Deduplicate(ctx))

	run := DedupRun{
		At:      start,
		Before:  before,
		After:   after,
		Dropped: before - after,
		Took:    time.Since(start),
	}
	if run.Dropped < 0 {
		// a concurrent add landed between the two reads
		run.Dropped = 0
	}

	if run.Dropped > 0 {
		d.logger.Info("deduplication completed",
			logger.Int("before", run.Before),
			logger.Int("after", run.After),
			logger.Int("dropped", run.Dropped),
			logger.Duration("took", run.Took))
	} else {
		d.logger.Debug("no duplicate bookmarks")
	}

	d.mu.Lock()
	d.last = run
	d.mu.Unlock()
	return run
}

// LastRun returns the most recent pass, zero before the first one.
func (d *Deduplicator) LastRun() DedupRun {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.last
}
