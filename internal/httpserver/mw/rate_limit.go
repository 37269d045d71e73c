package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/utils"
)

type RateLimitConfig struct {
	Burst             int // bucket size per client
	RefillPerIPPerMin int
	MaxEntries        int // idle buckets are swept early past this many clients
	SweepInterval     time.Duration
	IdleTTL           time.Duration
	TrustProxy        bool

	now func() time.Time
}

// bucket is a token bucket. tokens is refilled lazily on each take.
type bucket struct {
	tokens float64
	at     time.Time
}

type limiter struct {
	cfg      RateLimitConfig
	perSec   float64
	capacity float64

	mu        sync.Mutex
	clients   map[string]*bucket
	nextSweep time.Time
}

func newLimiter(cfg RateLimitConfig) *limiter {
	cfg.Burst = max(cfg.Burst, 1)
	cfg.RefillPerIPPerMin = max(cfg.RefillPerIPPerMin, 1)
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.now == nil {
		cfg.now = time.Now
	}
	return &limiter{
		cfg:       cfg,
		perSec:    float64(cfg.RefillPerIPPerMin) / 60,
		capacity:  float64(cfg.Burst),
		clients:   make(map[string]*bucket),
		nextSweep: cfg.now().Add(cfg.SweepInterval),
	}
}

// take consumes one token for key. When the bucket is empty it returns the
// number of seconds until the next token.
func (l *limiter) take(key string) (remaining int, wait int, ok bool) {
	now := l.cfg.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.After(l.nextSweep) || (l.cfg.MaxEntries > 0 && len(l.clients) >= l.cfg.MaxEntries) {
		l.sweep(now)
	}

	b, found := l.clients[key]
	if !found {
		b = &bucket{tokens: l.capacity, at: now}
		l.clients[key] = b
	}
	if dt := now.Sub(b.at).Seconds(); dt > 0 {
		b.tokens = math.Min(l.capacity, b.tokens+dt*l.perSec)
	}
	b.at = now

	if b.tokens < 1 {
		return 0, max(1, int(math.Ceil((1-b.tokens)/l.perSec))), false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// sweep drops buckets idle for longer than IdleTTL. Caller holds l.mu.
func (l *limiter) sweep(now time.Time) {
	for k, b := range l.clients {
		if now.Sub(b.at) > l.cfg.IdleTTL {
			delete(l.clients, k)
		}
	}
	l.nextSweep = now.Add(l.cfg.SweepInterval)
}

// RateLimit throttles each client address with its own token bucket and
// answers 429 with Retry-After once the bucket is empty.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	l := newLimiter(cfg)
	limit := strconv.Itoa(l.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, wait, ok := l.take(utils.ClientIP(r, l.cfg.TrustProxy))

			h := w.Header()
			h.Set("X-RateLimit-Limit", limit)
			h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			if !ok {
				h.Set("Retry-After", strconv.Itoa(wait))
				deny(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
