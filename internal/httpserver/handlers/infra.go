package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/scheduler"
)

type componentStatus struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend,omitempty"`
	Mode    string `json:"mode,omitempty"`
	Impact  string `json:"impact,omitempty"`
	Error   string `json:"error,omitempty"`
}

type policySummary struct {
	Primary    []string `json:"primary"`
	Secondary  []string `json:"secondary"`
	Unreliable []string `json:"unreliable"`
	Rewrites   int      `json:"rewrites"`
}

type infraResponse struct {
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
	Bookmarks  *bookmark.Stats            `json:"bookmarks,omitempty"`
	LastDedup  *scheduler.DedupRun        `json:"last_dedup,omitempty"`
	Policy     *policySummary             `json:"policy,omitempty"`
	Sessions   int                        `json:"sessions"`
	Listeners  int                        `json:"listeners"`
	Changes    *changeCounts              `json:"changes,omitempty"`
}

type changeCounts struct {
	Local  uint64 `json:"local"`
	Remote uint64 `json:"remote"`
}

// Infra summarizes the running components.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storage := checkStorage(r.Context(), d)

		components := map[string]componentStatus{
			"storage":     storage,
			"change_feed": changeFeedStatus(d),
			"scraper":     scraperStatus(d),
		}

		resp := infraResponse{
			Mode:       determineMode(components),
			Components: components,
		}

		if storage.OK && d.Bookmarks != nil {
			st := d.Bookmarks.Stats(r.Context())
			resp.Bookmarks = &st
		}
		if d.Dedup != nil {
			if last := d.Dedup.LastRun(); !last.At.IsZero() {
				resp.LastDedup = &last
			}
		}
		if d.Players != nil {
			p := d.Players.Policy()
			resp.Policy = &policySummary{
				Primary:    p.Primary,
				Secondary:  p.Secondary,
				Unreliable: p.Unreliable,
				Rewrites:   len(p.Rewrites),
			}
			resp.Sessions = d.Players.Len()
		}
		if d.Changes != nil && d.Changes.Enabled() {
			resp.Listeners = d.Changes.Listeners()
			local, remote := d.Changes.Counts()
			resp.Changes = &changeCounts{Local: local, Remote: remote}
		}

		writeJSON(w, http.StatusOK, resp)
	}
}

// determineMode: storage down is critical, missing optional parts degrade.
func determineMode(components map[string]componentStatus) string {
	if s, ok := components["storage"]; ok && !s.OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "operational"
}

func checkStorage(ctx context.Context, d deps.Deps) componentStatus {
	if d.Storage == nil {
		return componentStatus{OK: false, Error: "storage not initialized"}
	}

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := d.Storage.Ping(ctx); err != nil {
		return componentStatus{
			OK:      false,
			Backend: d.Storage.Name(),
			Impact:  "bookmarks-unavailable",
			Error:   err.Error(),
		}
	}
	return componentStatus{OK: true, Backend: d.Storage.Name()}
}

func changeFeedStatus(d deps.Deps) componentStatus {
	if d.Changes == nil || !d.Changes.Enabled() {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "no-live-refresh",
		}
	}
	return componentStatus{OK: true, Mode: "live"}
}

func scraperStatus(d deps.Deps) componentStatus {
	if d.Scraper == nil || !d.Scraper.Configured() {
		return componentStatus{
			OK:     false,
			Mode:   "disabled",
			Impact: "explicit-candidates-only",
		}
	}
	return componentStatus{OK: true, Mode: "enabled"}
}
