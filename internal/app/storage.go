package app

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/tonton/internal/config"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/redis"
	"github.com/MrSnakeDoc/tonton/internal/store"
	"github.com/MrSnakeDoc/tonton/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/tonton/internal/store/redis"
	"github.com/MrSnakeDoc/tonton/internal/store/sqlite"
)

// NewLogger builds the process logger from cfg.
func NewLogger(cfg *config.Config) logger.Logger {
	return logger.NewWithOptions(logger.Options{
		Level:      cfg.LogLevel,
		Pretty:     cfg.PrettyLog,
		File:       cfg.LogFile,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
}

// OpenStorage opens the configured bookmark backend. Redis is retried with
// backoff until cfg.RedisConnectTimeout.
func OpenStorage(ctx context.Context, cfg *config.Config, log logger.Logger) (store.Blob, error) {
	switch cfg.Storage {
	case config.StorageRedis:
		client, err := redis.Connect(ctx, redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			RedisDB:        cfg.RedisDB,
			DialTimeout:    cfg.RedisDT,
			ReadTimeout:    cfg.RedisRT,
			WriteTimeout:   cfg.RedisWT,
			PoolSize:       cfg.RedisPoolSize,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
			MaxWait:        cfg.RedisMaxWait,
			PingTimeout:    cfg.RedisPingTimeout,
			WarnThreshold:  cfg.RedisWarnThreshold,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		return redisstore.NewStore(client, 0), nil

	case config.StorageSQLite:
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		log.Info("sqlite storage opened", logger.String("path", s.Path()))
		return s, nil

	case config.StorageMemory:
		log.Warn("memory storage selected, bookmarks are lost on restart")
		return memory.New(), nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage)
	}
}

// watcherOf returns the change notifier of blob, nil when it has none.
func watcherOf(blob store.Blob) store.Watcher {
	if w, ok := blob.(store.Watcher); ok {
		return w
	}
	return nil
}
