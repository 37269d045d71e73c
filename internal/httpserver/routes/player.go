package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerPlayer) }

func registerPlayer(r chi.Router, d deps.Deps) {
	r.Route("/player/sessions", func(r chi.Router) {
		r.Get("/", handlers.ListSessions(d))
		r.Post("/", handlers.OpenSession(d))
		r.Get("/{id}", handlers.GetSession(d))
		r.Delete("/{id}", handlers.CloseSession(d))
		r.Post("/{id}/error", handlers.ReportPlaybackError(d))
		r.Post("/{id}/select", handlers.SelectSource(d))
		r.Post("/{id}/switch", handlers.SwitchEpisode(d))
	})
	r.Post("/streams/probe", handlers.Probe(d))
}
