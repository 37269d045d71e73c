package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/store"
)

// ChangeFeed keeps one storage subscription open and fans its changes out to
// any number of listeners (the SSE clients).
type ChangeFeed struct {
	watcher store.Watcher
	origin  string
	key     string
	logger  logger.Logger
	backoff time.Duration

	local  atomic.Uint64
	remote atomic.Uint64

	mu     sync.Mutex
	subs   map[uint64]chan store.Change
	nextID uint64
	cancel context.CancelFunc
	done   bool
}

// NewChangeFeed creates a feed over watcher. A nil watcher yields a feed
// that never emits.
func NewChangeFeed(watcher store.Watcher, key string, log logger.Logger) *ChangeFeed {
	var origin string
	if t, ok := watcher.(store.Tagged); ok {
		origin = t.Origin()
	}
	return &ChangeFeed{
		watcher: watcher,
		origin:  origin,
		key:     key,
		logger:  log.With(logger.String("component", "change_feed")),
		backoff: 2 * time.Second,
		subs:    make(map[uint64]chan store.Change),
	}
}

// Enabled reports whether the backend can notify changes.
func (f *ChangeFeed) Enabled() bool { return f.watcher != nil }

// Start subscribes in the background, resubscribing when the backend drops
// the subscription.
func (f *ChangeFeed) Start(ctx context.Context) error {
	if f.watcher == nil {
		f.logger.Info("storage backend has no change notifications, feed disabled")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	go func() {
		for {
			ch, err := f.watcher.Watch(ctx, f.key)
			if err != nil {
				f.logger.Warn("failed to watch bookmark changes", logger.Error(err))
			} else {
				for change := range ch {
					f.broadcast(change)
				}
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(f.backoff):
			}
		}
	}()
	return nil
}

// Stop ends the subscription and closes every listener.
func (f *ChangeFeed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.done {
		return
	}
	f.done = true
	if f.cancel != nil {
		f.cancel()
	}
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
}

// Subscribe registers a listener. The returned func unregisters it. Slow
// listeners miss changes rather than block the feed.
func (f *ChangeFeed) Subscribe() (<-chan store.Change, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan store.Change, 4)
	if f.done {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if c, ok := f.subs[id]; ok {
			close(c)
			delete(f.subs, id)
		}
	}
}

// Listeners returns the number of active subscribers.
func (f *ChangeFeed) Listeners() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

// Counts returns how many changes this instance wrote and how many came
// from other instances sharing the key.
func (f *ChangeFeed) Counts() (local, remote uint64) {
	return f.local.Load(), f.remote.Load()
}

func (f *ChangeFeed) broadcast(change store.Change) {
	change.Local = f.origin != "" && change.Origin == f.origin
	if change.Local {
		f.local.Add(1)
	} else {
		f.remote.Add(1)
		f.logger.Debug("bookmarks changed by another instance", logger.String("origin", change.Origin))
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, ch := range f.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
