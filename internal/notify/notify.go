// Package notify carries user-facing notices (toasts) out of the cores.
// Notifiers are fire-and-forget: nothing they return is consumed.
package notify

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// Level of a notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one message meant for the viewer.
type Notice struct {
	Level   Level  `json:"level"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Notifier receives notices.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// Log writes notices to the logger.
type Log struct {
	log logger.Logger
}

// NewLog returns a logging notifier
func NewLog(log logger.Logger) *Log {
	return &Log{log: log}
}

func (l *Log) Notify(_ context.Context, n Notice) {
	fields := []any{n.Code, n.Message}
	switch n.Level {
	case LevelError:
		l.log.Errorf("notice [%s] %s", fields...)
	case LevelWarning:
		l.log.Warnf("notice [%s] %s", fields...)
	default:
		l.log.Debugf("notice [%s] %s", fields...)
	}
}

// Recorder keeps notices in memory (one per request, or in tests).
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(_ context.Context, n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns a copy of everything recorded so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notice, len(r.notices))
	copy(out, r.notices)
	return out
}

// Has reports whether a notice with code was recorded.
func (r *Recorder) Has(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.notices {
		if n.Code == code {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// WithRecorder attaches a recorder to ctx. Notifiers built with Fanout
// forward to it in addition to their base notifier.
func WithRecorder(ctx context.Context, r *Recorder) context.Context {
	return context.WithValue(ctx, ctxKey{}, r)
}

// FromContext returns the recorder attached to ctx, if any.
func FromContext(ctx context.Context) *Recorder {
	r, _ := ctx.Value(ctxKey{}).(*Recorder)
	return r
}

// Fanout sends to base and to the request-scoped recorder.
type Fanout struct {
	Base Notifier
}

func (f Fanout) Notify(ctx context.Context, n Notice) {
	if f.Base != nil {
		f.Base.Notify(ctx, n)
	}
	if r := FromContext(ctx); r != nil {
		r.Notify(ctx, n)
	}
}
