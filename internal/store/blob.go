// Package store defines the key-value blob port the bookmark collection is
// persisted through. Backends live in the sub-packages.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrClosed is returned by backends after Close.
var ErrClosed = errors.New("store closed")

// Blob is a get-string/set-string key-value primitive.
type Blob interface {
	// Get returns the value under key. found is false when the key is absent.
	Get(ctx context.Context, key string) (value string, found bool, err error)
	// Set replaces the value under key.
	Set(ctx context.Context, key, value string) error
	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
	// Name identifies the backend ("redis", "sqlite", "memory").
	Name() string
}

// Change is emitted after a successful Set. Local is filled by the
// receiving side, true when Origin is the receiver's own.
type Change struct {
	Key    string    `json:"key"`
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
	Local  bool      `json:"local"`
}

// Tagged is implemented by backends that stamp their changes with an
// instance id.
type Tagged interface {
	Origin() string
}

// Watcher is implemented by backends able to notify other writers.
// The channel is closed when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, key string) (<-chan Change, error)
}
