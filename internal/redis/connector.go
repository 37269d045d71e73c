// Package redis opens the go-redis client used by the redis blob backend.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// ConnectOptions holds the client settings and the start-up retry policy.
type ConnectOptions struct {
	Addr         string
	User         string
	Password     string
	RedisDB      int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int

	ConnectTimeout time.Duration // budget for all ping attempts
	RetryInterval  time.Duration // first backoff step, doubled after each failure
	MaxWait        time.Duration // backoff cap
	PingTimeout    time.Duration // per attempt
	WarnThreshold  int           // failures logged at warn before switching to error
}

func (o ConnectOptions) validate() error {
	var errs []error
	for name, d := range map[string]time.Duration{
		"ConnectTimeout": o.ConnectTimeout,
		"RetryInterval":  o.RetryInterval,
		"MaxWait":        o.MaxWait,
		"PingTimeout":    o.PingTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be > 0, got %v", name, d))
		}
	}
	if o.WarnThreshold < 0 {
		errs = append(errs, fmt.Errorf("WarnThreshold must be >= 0, got %d", o.WarnThreshold))
	}
	return errors.Join(errs...)
}

// Connect pings addr until it answers, backing off between attempts, and
// gives up after ConnectTimeout or when ctx ends. The client is closed when
// no attempt succeeded.
func Connect(ctx context.Context, opts ConnectOptions, log logger.Logger) (*redis.Client, error) {
	log = log.With(logger.String("component", "redis"), logger.String("addr", opts.Addr))
	if err := opts.validate(); err != nil {
		log.Error("invalid redis connect options", logger.Error(err))
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.User,
		Password:     opts.Password,
		DB:           opts.RedisDB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})

	if err := waitForPing(ctx, client, opts, log); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func waitForPing(parent context.Context, client *redis.Client, opts ConnectOptions, log logger.Logger) error {
	ctx, cancel := context.WithTimeout(parent, opts.ConnectTimeout)
	defer cancel()

	log.Info("connecting to redis", logger.Duration("timeout", opts.ConnectTimeout))
	start := time.Now()

	var (
		attempts int
		lastErr  error
	)
	err := retry.Do(
		func() error {
			attempts++
			pingCtx, pingCancel := context.WithTimeout(ctx, opts.PingTimeout)
			defer pingCancel()
			lastErr = client.Ping(pingCtx).Err()
			return lastErr
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(opts.RetryInterval),
		retry.MaxDelay(opts.MaxWait),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			fields := []logger.Field{logger.Int("attempt", int(n)+1), logger.Error(err)}
			if int(n) < opts.WarnThreshold {
				log.Warn("redis connection failed, retrying", fields...)
				return
			}
			log.Error("redis still unavailable", fields...)
		}),
	)

	switch {
	case err == nil:
		if attempts > 1 {
			log.Warn("connected to redis after retry",
				logger.Int("attempts", attempts),
				logger.Duration("elapsed", time.Since(start)))
		} else {
			log.Info("connected to redis")
		}
		return nil
	case parent.Err() != nil:
		return fmt.Errorf("redis connect to %s cancelled: %w", opts.Addr, parent.Err())
	default:
		if lastErr == nil {
			lastErr = err
		}
		log.Error("redis unavailable, bookmarks cannot be stored",
			logger.Int("attempts", attempts),
			logger.Duration("timeout", opts.ConnectTimeout),
			logger.Error(lastErr))
		return fmt.Errorf("redis unavailable at %s after %d attempts (timeout: %v): %w",
			opts.Addr, attempts, opts.ConnectTimeout, lastErr)
	}
}
