package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
)

type buildInfo struct {
	Version   string `json:"version,omitempty"`
	Commit    string `json:"commit,omitempty"`
	BuildDate string `json:"build_date,omitempty"`
	GoVersion string `json:"go_version,omitempty"`
}

type healthzResponse struct {
	Status  string    `json:"status"`
	Since   time.Time `json:"since"`
	Uptime  string    `json:"uptime"`
	Players int       `json:"players"`
	Build   buildInfo `json:"build"`
}

// Healthz is the liveness probe. Storage is left to /readyz.
func Healthz(d deps.Deps) http.HandlerFunc {
	build := buildInfo{Version: d.Version, Commit: d.Commit, BuildDate: d.BuildDate, GoVersion: d.GoVersion}

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthzResponse{
			Status: "ok",
			Since:  d.StartTime.UTC(),
			Uptime: d.Now().Sub(d.StartTime).Round(time.Second).String(),
			Build:  build,
		}
		if d.Players != nil {
			resp.Players = d.Players.Len()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
