package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/player"
)

// SessionSweeper closes player sessions nobody touched for ttl.
type SessionSweeper struct {
	manager  *player.Manager
	logger   logger.Logger
	ttl      time.Duration
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func NewSessionSweeper(manager *player.Manager, log logger.Logger, ttl, interval time.Duration) *SessionSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &SessionSweeper{
		manager:  manager,
		logger:   log.With(logger.String("component", "session_sweeper")),
		ttl:      ttl,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (s *SessionSweeper) Start(ctx context.Context) error {
	if s.ttl <= 0 {
		s.logger.Info("session sweeping disabled")
		return nil
	}

	ticker := time.NewTicker(s.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *SessionSweeper) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Sweep closes idle sessions now and returns how many were closed.
func (s *SessionSweeper) Sweep() int {
	n := s.manager.SweepIdle(s.ttl)
	if n > 0 {
		s.logger.Info("closed idle player sessions",
			logger.Int("count", n),
			logger.Duration("ttl", s.ttl))
	}
	return n
}
