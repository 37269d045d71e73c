package domain

import (
	"strings"
	"time"
)

// DefaultCompletionThreshold is the progress at which a bookmark is
// considered finished.
const DefaultCompletionThreshold = 100

// Merge folds incoming over old. Incoming values win, except that zero
// values never erase what old already knows and the UnknownTitle sentinel
// never replaces a real title.
func Merge(old, incoming Bookmark, now time.Time) Bookmark {
	merged := old

	merged.ID = NormalizeID(old.ID)

	if t := strings.TrimSpace(incoming.Title); t != "" && (t != UnknownTitle || !old.HasKnownTitle()) {
		merged.Title = t
	}
	if incoming.Type != "" {
		merged.Type = incoming.Type
	}
	if incoming.LastProgress > 0 {
		merged.LastProgress = incoming.LastProgress
	}
	if incoming.Category != "" {
		merged.Category = incoming.Category
	}
	if incoming.ImageURL != "" {
		merged.ImageURL = incoming.ImageURL
	}
	if merged.Category == "" {
		merged.Category = DefaultCategory(merged.Type)
	}

	merged.UpdatedAt = now
	return merged
}

// FillMissing completes old with what it lacks from incoming: a real title
// over the sentinel, a missing type, category or cover. Progress and
// UpdatedAt are never touched. It reports whether anything changed.
func FillMissing(old, incoming Bookmark) (Bookmark, bool) {
	out := old
	if !old.HasKnownTitle() && incoming.HasKnownTitle() {
		out.Title = strings.TrimSpace(incoming.Title)
	}
	if out.Type == "" && incoming.Type != "" {
		out.Type = incoming.Type
	}
	if out.Category == "" {
		out.Category = incoming.Category
		if out.Category == "" {
			out.Category = DefaultCategory(out.Type)
		}
	}
	if out.ImageURL == "" && incoming.ImageURL != "" {
		out.ImageURL = incoming.ImageURL
	}
	return out, out != old
}

// Prepare shapes a validated record for first insertion.
func Prepare(b Bookmark, now time.Time) Bookmark {
	b.ID = NormalizeID(b.ID)
	b.Title = strings.TrimSpace(b.Title)
	if b.Category == "" {
		b.Category = DefaultCategory(b.Type)
	}
	b.UpdatedAt = now
	return b
}

// ApplyCompletion forces the completed shelf once progress reaches threshold.
// A threshold <= 0 disables the rule.
func ApplyCompletion(b Bookmark, threshold int) Bookmark {
	if threshold > 0 && b.LastProgress >= threshold {
		b.Category = CategoryCompleted
	}
	return b
}

// ApplyProgress records a new position. Reaching threshold completes the
// bookmark; otherwise a placeholder shelf is promoted to the active one.
func ApplyProgress(b Bookmark, progress, threshold int, now time.Time) Bookmark {
	b.LastProgress = progress
	b.UpdatedAt = now

	switch {
	case threshold > 0 && progress >= threshold:
		b.Category = CategoryCompleted
	case b.Category.IsWant():
		b.Category = DefaultCategory(b.Type)
	}
	return b
}
