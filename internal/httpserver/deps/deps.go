package deps

import (
	"time"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/player"
	"github.com/MrSnakeDoc/tonton/internal/scheduler"
	"github.com/MrSnakeDoc/tonton/internal/sources/scraper"
	"github.com/MrSnakeDoc/tonton/internal/store"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

type Deps struct {
	Logger    logger.Logger
	StartTime time.Time
	Version   string
	Commit    string
	BuildDate string
	GoVersion string
	TimeNow   func() time.Time // for testing, defaults to time.Now

	AllowedHosts    []string // Host headers allowed on ops endpoints
	AllowedCIDRS    []string // IPs allowed on ops endpoints
	TrustProxy      bool     // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins     []string // browser origins allowed on /api
	RateLimitBurst  int
	RateLimitPerMin int
	RequestTimeout  time.Duration

	Storage   store.Blob              // bookmark storage backend
	Bookmarks *bookmark.Store         // bookmark collection
	Changes   *scheduler.ChangeFeed   // storage change feed for SSE
	Dedup     *scheduler.Deduplicator // last run reported on /infra
	Players   *player.Manager         // stream resolver sessions
	Scraper   *scraper.Client         // optional, nil or unconfigured disables slug lookups
	Probe     stream.ProbeOptions

	DedupTrigger  chan struct{} // Channel to trigger a manual deduplication pass
	ImportTrigger chan struct{} // Channel to trigger a manual import (nil if import disabled)
}

// Now returns TimeNow() or time.Now().
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
