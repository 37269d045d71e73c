package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/domain"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/notify"
)

type bookmarksResponse struct {
	Bookmarks []domain.Bookmark `json:"bookmarks"`
	Notices   []notify.Notice   `json:"notices"`
}

type progressRequest struct {
	Progress *int `json:"progress"`
}

type categoryRequest struct {
	Category domain.Category `json:"category"`
}

// mutation runs op with a request-scoped notice recorder and answers with
// the resulting list and whatever the store reported.
func mutation(w http.ResponseWriter, r *http.Request, op func(ctx context.Context) []domain.Bookmark) {
	rec := &notify.Recorder{}
	list := op(notify.WithRecorder(r.Context(), rec))
	writeBookmarks(w, statusFromNotices(rec, http.StatusOK), list, rec.Notices())
}

func writeBookmarks(w http.ResponseWriter, status int, list []domain.Bookmark, notices []notify.Notice) {
	if list == nil {
		list = []domain.Bookmark{}
	}
	if notices == nil {
		notices = []notify.Notice{}
	}
	writeJSON(w, status, bookmarksResponse{Bookmarks: list, Notices: notices})
}

// statusFromNotices maps store notices to an HTTP status. The store itself
// never returns errors.
func statusFromNotices(rec *notify.Recorder, ok int) int {
	switch {
	case rec.Has(bookmark.CodeInvalid):
		return http.StatusBadRequest
	case rec.Has(bookmark.CodeNotFound):
		return http.StatusNotFound
	case rec.Has(bookmark.CodeStorage):
		return http.StatusServiceUnavailable
	case rec.Has(bookmark.CodeAdded):
		return http.StatusCreated
	default:
		return ok
	}
}

// ListBookmarks lists the collection, optionally filtered by type and/or category.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		var (
			typ      domain.Type
			category domain.Category
			err      error
		)
		if v := strings.TrimSpace(q.Get("type")); v != "" {
			if typ, err = domain.ParseType(v); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}
		if v := strings.TrimSpace(q.Get("category")); v != "" {
			if category, err = domain.ParseCategory(v); err != nil {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
		}

		rec := &notify.Recorder{}
		ctx := notify.WithRecorder(r.Context(), rec)

		var list []domain.Bookmark
		switch {
		case typ != "":
			list = d.Bookmarks.ListByType(ctx, typ)
		case category != "":
			list = d.Bookmarks.ListByCategory(ctx, category)
		default:
			list = d.Bookmarks.ListAll(ctx)
		}
		if typ != "" && category != "" {
			kept := list[:0]
			for _, b := range list {
				if b.Category == category {
					kept = append(kept, b)
				}
			}
			list = kept
		}

		writeBookmarks(w, statusFromNotices(rec, http.StatusOK), list, rec.Notices())
	}
}

// GetBookmark returns one record.
func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, ok := d.Bookmarks.Get(r.Context(), chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, "bookmark not found")
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// HeadBookmark answers 200 when the id is bookmarked, 404 otherwise.
func HeadBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Bookmarks.IsBookmarked(r.Context(), chi.URLParam(r, "id")) {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}
}

// AddBookmark inserts or merges a record.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var b domain.Bookmark
		if err := decodeJSON(w, r, &b); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mutation(w, r, func(ctx context.Context) []domain.Bookmark {
			return d.Bookmarks.Add(ctx, b)
		})
	}
}

func RemoveBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		mutation(w, r, func(ctx context.Context) []domain.Bookmark {
			return d.Bookmarks.Remove(ctx, id)
		})
	}
}

// UpdateProgress expects {"progress": n}.
func UpdateProgress(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req progressRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Progress == nil {
			writeError(w, http.StatusBadRequest, "progress is required")
			return
		}
		id := chi.URLParam(r, "id")
		mutation(w, r, func(ctx context.Context) []domain.Bookmark {
			return d.Bookmarks.UpdateProgress(ctx, id, *req.Progress)
		})
	}
}

// UpdateCategory expects {"category": "..."}.
func UpdateCategory(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req categoryRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		id := chi.URLParam(r, "id")
		mutation(w, r, func(ctx context.Context) []domain.Bookmark {
			return d.Bookmarks.UpdateCategory(ctx, id, req.Category)
		})
	}
}

// DeduplicateBookmarks runs a deduplication pass synchronously.
func DeduplicateBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Dedup != nil {
			rec := &notify.Recorder{}
			ctx := notify.WithRecorder(r.Context(), rec)
			d.Dedup.Run(ctx)
			writeBookmarks(w, statusFromNotices(rec, http.StatusOK), d.Bookmarks.ListAll(ctx), rec.Notices())
			return
		}
		mutation(w, r, d.Bookmarks.Deduplicate)
	}
}
