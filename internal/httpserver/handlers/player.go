package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/player"
	"github.com/MrSnakeDoc/tonton/internal/sources/scraper"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

// episodeRequest opens or switches a session. Candidates win over slug;
// slug asks the scraper for the mirrors.
type episodeRequest struct {
	Episode    string             `json:"episode"`
	Slug       string             `json:"slug"`
	Candidates []stream.Candidate `json:"candidates"`
}

type generationRequest struct {
	Generation uint64 `json:"generation"`
}

type selectRequest struct {
	Generation uint64           `json:"generation"`
	Candidate  stream.Candidate `json:"candidate"`
}

type sessionError struct {
	Error   string      `json:"error"`
	Session player.View `json:"session"`
}

func ListSessions(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": d.Players.List()})
	}
}

// OpenSession starts a player session for an episode.
func OpenSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req episodeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		episode, candidates, status, err := resolveEpisode(r, d, req)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}

		v, err := d.Players.Open(episode, candidates)
		if err != nil {
			writePlayerError(w, d, v, err)
			return
		}
		writeJSON(w, http.StatusCreated, v)
	}
}

func GetSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := d.Players.Get(chi.URLParam(r, "id"))
		if err != nil {
			writePlayerError(w, d, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func CloseSession(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := d.Players.Close(chi.URLParam(r, "id")); err != nil {
			writePlayerError(w, d, player.View{}, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ReportPlaybackError is called by the player when the current source fails.
func ReportPlaybackError(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generationRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		v, err := d.Players.ReportError(chi.URLParam(r, "id"), req.Generation)
		if err != nil {
			writePlayerError(w, d, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// SelectSource is a manual mirror pick.
func SelectSource(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		v, err := d.Players.Select(chi.URLParam(r, "id"), req.Generation, req.Candidate)
		if err != nil {
			writePlayerError(w, d, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// SwitchEpisode moves a session to the next (or any other) episode.
func SwitchEpisode(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req episodeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		episode, candidates, status, err := resolveEpisode(r, d, req)
		if err != nil {
			writeError(w, status, err.Error())
			return
		}

		v, err := d.Players.Switch(chi.URLParam(r, "id"), episode, candidates)
		if err != nil {
			writePlayerError(w, d, v, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// resolveEpisode returns the episode key and its mirrors, calling the
// scraper when only a slug was given.
func resolveEpisode(r *http.Request, d deps.Deps, req episodeRequest) (string, []stream.Candidate, int, error) {
	episode := strings.TrimSpace(req.Episode)
	slug := strings.TrimSpace(req.Slug)
	if episode == "" {
		episode = slug
	}
	if len(req.Candidates) > 0 || slug == "" {
		return episode, req.Candidates, 0, nil
	}

	if d.Scraper == nil || !d.Scraper.Configured() {
		return "", nil, http.StatusNotImplemented, scraper.ErrNotConfigured
	}
	ep, err := d.Scraper.Episode(r.Context(), slug)
	switch {
	case errors.Is(err, scraper.ErrNotFound):
		return "", nil, http.StatusNotFound, err
	case err != nil:
		d.Logger.Warn("scraper lookup failed", logger.String("slug", slug), logger.Error(err))
		return "", nil, http.StatusBadGateway, err
	}
	return episode, ep.Candidates(), 0, nil
}

func writePlayerError(w http.ResponseWriter, d deps.Deps, v player.View, err error) {
	switch {
	case errors.Is(err, player.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, player.ErrEpisodeRequired):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, player.ErrStaleGeneration):
		writeJSON(w, http.StatusConflict, sessionError{Error: err.Error(), Session: v})
	case errors.Is(err, stream.ErrUnplayable):
		writeJSON(w, http.StatusUnprocessableEntity, sessionError{Error: err.Error(), Session: v})
	case errors.Is(err, player.ErrManagerClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		d.Logger.Error("player request failed", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
