// Package memory is an in-process store.Blob. It backs STORAGE=memory and
// doubles as the fake used by tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/store"
)

// Store keeps blobs in a map guarded by a RWMutex.
type Store struct {
	mu       sync.RWMutex
	values   map[string]string // key -> blob
	watchers map[string][]chan store.Change
	lastSet  time.Time
	closed   bool

	// FailGet and FailSet make the next operations fail (tests only).
	FailGet error
	FailSet error
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		values:   make(map[string]string),
		watchers: make(map[string][]chan store.Change),
	}
}

// Name implements store.Blob
func (s *Store) Name() string { return "memory" }

// Origin implements store.Tagged. Every watcher lives in this process.
func (s *Store) Origin() string { return "memory" }

// Get retrieves the blob under key
func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", false, store.ErrClosed
	}
	if s.FailGet != nil {
		return "", false, s.FailGet
	}
	v, ok := s.values[key]
	return v, ok, nil
}

// Set replaces the blob and fans the change out to watchers
func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return store.ErrClosed
	}
	if s.FailSet != nil {
		return s.FailSet
	}
	s.values[key] = value
	s.lastSet = time.Now()

	change := store.Change{Key: key, Origin: s.Origin(), At: s.lastSet}
	for _, ch := range s.watchers[key] {
		select {
		case ch <- change:
		default:
		}
	}
	return nil
}

// Ping reports ErrClosed after Close
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close drops all watchers
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	for key, list := range s.watchers {
		for _, ch := range list {
			close(ch)
		}
		delete(s.watchers, key)
	}
	return nil
}

// Watch returns a channel fed on every Set of key until ctx is done.
func (s *Store) Watch(ctx context.Context, key string) (<-chan store.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, store.ErrClosed
	}

	ch := make(chan store.Change, 8)
	s.watchers[key] = append(s.watchers[key], ch)

	go func() {
		<-ctx.Done()
		s.unwatch(key, ch)
	}()

	return ch, nil
}

func (s *Store) unwatch(key string, ch chan store.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.watchers[key]
	for i, c := range list {
		if c == ch {
			s.watchers[key] = append(list[:i], list[i+1:]...)
			close(ch)
			return
		}
	}
}

// Raw seeds a value without notifying watchers (tests only).
func (s *Store) Raw(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = value
}

// LastSet returns the time of the last successful Set
func (s *Store) LastSet() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastSet
}
