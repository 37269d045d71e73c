package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// heartbeat keeps idle proxies from closing the stream.
var heartbeat = 25 * time.Second

// BookmarkEvents streams storage changes as server-sent events so open tabs
// can refetch after another tab or instance wrote.
func BookmarkEvents(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Changes == nil || !d.Changes.Enabled() {
			writeError(w, http.StatusServiceUnavailable, "change feed unavailable for this storage backend")
			return
		}

		rc := http.NewResponseController(w)
		// The server write timeout would cut the stream.
		if err := rc.SetWriteDeadline(time.Time{}); err != nil {
			d.Logger.Debug("sse: cannot clear write deadline", logger.Error(err))
		}

		changes, unsubscribe := d.Changes.Subscribe()
		defer unsubscribe()

		h := w.Header()
		h.Set("Content-Type", "text/event-stream")
		h.Set("Cache-Control", "no-cache")
		h.Set("Connection", "keep-alive")
		h.Set("X-Accel-Buffering", "no")
		w.WriteHeader(http.StatusOK)

		if _, err := fmt.Fprint(w, ": connected\n\n"); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			d.Logger.Warn("sse: streaming unsupported", logger.Error(err))
			return
		}

		ticker := time.NewTicker(heartbeat)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
					return
				}
			case change, ok := <-changes:
				if !ok {
					// feed stopped (shutdown)
					return
				}
				data, err := json.Marshal(change)
				if err != nil {
					d.Logger.Error("sse: failed to encode change", logger.Error(err))
					continue
				}
				if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", data); err != nil {
					return
				}
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}
