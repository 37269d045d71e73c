package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tonton/internal/store"
)

// Store is a store.Blob over a single redis client. Every Set is followed by
// a PUBLISH so other instances sharing the key can reconcile.
type Store struct {
	client *redis.Client
	origin string
	ttl    time.Duration
}

// NewStore creates a new Redis blob store. ttl 0 keeps keys forever.
func NewStore(client *redis.Client, ttl time.Duration) *Store {
	return &Store{
		client: client,
		origin: uuid.NewString(),
		ttl:    ttl,
	}
}

// Name implements store.Blob
func (s *Store) Name() string { return "redis" }

// Origin identifies this instance in published changes
func (s *Store) Origin() string { return s.origin }

// Get retrieves the blob under key
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, BlobKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores the blob and announces the change
func (s *Store) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, BlobKey(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	payload, err := json.Marshal(store.Change{Key: key, Origin: s.origin, At: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}

	// Publishing is best effort: the write itself already succeeded.
	_ = s.client.Publish(ctx, EventsChannel(key), payload).Err()
	return nil
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client
func (s *Store) Close() error {
	return s.client.Close()
}

// Watch subscribes to changes of key published by any instance.
func (s *Store) Watch(ctx context.Context, key string) (<-chan store.Change, error) {
	sub := s.client.Subscribe(ctx, EventsChannel(key))

	// Wait for the subscription confirmation so errors surface here.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", key, err)
	}

	out := make(chan store.Change, 8)
	go func() {
		defer close(out)
		defer func() { _ = sub.Close() }()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var change store.Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
					continue
				}
				select {
				case out <- change:
				default:
					// slow consumer; a later change supersedes this one
				}
			}
		}
	}()

	return out, nil
}
