package watchlist

import (
	"fmt"
	"strings"

	"github.com/MrSnakeDoc/tonton/internal/domain"
)

// Map converts import entries to bookmarks. Entries with an unusable type
// or category are skipped and reported in the returned error list; the
// store validates the rest.
func Map(f File) ([]domain.Bookmark, []error) {
	out := make([]domain.Bookmark, 0, len(f))
	var errs []error

	for i, e := range f {
		t, err := domain.ParseType(e.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, e.ID, err))
			continue
		}

		var category domain.Category
		if strings.TrimSpace(e.Category) != "" {
			category, err = domain.ParseCategory(e.Category)
			if err != nil {
				errs = append(errs, fmt.Errorf("entry %d (%s): %w", i, e.ID, err))
				continue
			}
		}

		out = append(out, domain.Bookmark{
			ID:           domain.NormalizeID(e.ID),
			Title:        strings.TrimSpace(e.Title),
			Type:         t,
			LastProgress: e.Progress,
			Category:     category,
			ImageURL:     strings.TrimSpace(e.Image),
		})
	}

	return out, errs
}
