package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

type probeResponse struct {
	Results []stream.ProbeResult `json:"results"`
}

// Probe checks the reachability of an episode's mirrors, from explicit
// candidates or a scraper slug.
func Probe(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req episodeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		_, candidates, status, err := resolveEpisode(r, d, req)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}
		if len(candidates) == 0 {
			writeError(w, http.StatusBadRequest, "no candidates to probe")
			return
		}

		results := d.Players.Policy().Probe(r.Context(), candidates, d.Probe)
		writeJSON(w, http.StatusOK, probeResponse{Results: results})
	}
}
