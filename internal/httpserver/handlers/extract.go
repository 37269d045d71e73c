package handlers

import (
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
)

type extractResponse struct {
	Kind   string `json:"kind"`
	Title  string `json:"title"`
	Number int    `json:"number"`
}

// Extract pulls the episode or chapter number out of a title.
func Extract(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		title := q.Get("title")
		kind := strings.ToLower(strings.TrimSpace(q.Get("kind")))
		if kind == "" {
			kind = "episode"
		}

		var n int
		switch kind {
		case "episode":
			n = d.Bookmarks.ExtractEpisodeNumber(title)
		case "chapter":
			n = d.Bookmarks.ExtractChapterNumber(title)
		default:
			writeError(w, http.StatusBadRequest, `kind must be "episode" or "chapter"`)
			return
		}

		writeJSON(w, http.StatusOK, extractResponse{Kind: kind, Title: title, Number: n})
	}
}
