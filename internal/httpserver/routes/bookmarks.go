package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/handlers"
)

func init() { RegisterAPI(registerBookmarks) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r.Route("/bookmarks", func(r chi.Router) {
		r.Get("/", handlers.ListBookmarks(d))
		r.Post("/", handlers.AddBookmark(d))
		r.Post("/dedup", handlers.DeduplicateBookmarks(d))
		r.Get("/events", handlers.BookmarkEvents(d))

		r.Get("/{id}", handlers.GetBookmark(d))
		r.Head("/{id}", handlers.HeadBookmark(d))
		r.Delete("/{id}", handlers.RemoveBookmark(d))
		r.Put("/{id}/progress", handlers.UpdateProgress(d))
		r.Put("/{id}/category", handlers.UpdateCategory(d))
	})
	r.Get("/extract", handlers.Extract(d))
}
