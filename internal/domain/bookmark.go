package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// UnknownTitle is the provisional title given to a bookmark created before
// the detail page resolved the real name. It is never allowed to overwrite
// a known title.
const UnknownTitle = "Unknown Anime"

// Type is the kind of content a bookmark tracks.
type Type string

const (
	TypeAnime Type = "anime"
	TypeKomik Type = "komik"
)

// Category is the shelf a bookmark sits on.
type Category string

const (
	CategoryReading   Category = "Sedang Dibaca"
	CategoryWatching  Category = "Sedang Ditonton"
	CategoryFavorite  Category = "Favorit"
	CategoryCompleted Category = "Selesai"
	CategoryWantWatch Category = "Ingin Ditonton"
	CategoryWantRead  Category = "Ingin Dibaca"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryReading,
	CategoryWatching,
	CategoryFavorite,
	CategoryCompleted,
	CategoryWantWatch,
	CategoryWantRead,
}

var (
	ErrIDRequired       = errors.New("bookmark id is required")
	ErrTitleRequired    = errors.New("bookmark title is required")
	ErrTypeRequired     = errors.New("bookmark type is required")
	ErrInvalidType      = errors.New("invalid bookmark type")
	ErrInvalidCategory  = errors.New("invalid bookmark category")
	ErrNegativeProgress = errors.New("progress must not be negative")
)

// Bookmark is a tracked anime or komik with the viewer's last position.
type Bookmark struct {
	// ─────────────────────────────
	// Identity
	// ─────────────────────────────

	// ID is the normalized content slug (trimmed, lower-cased).
	ID string `json:"id"`

	// Title is the human-readable name.
	// May be UnknownTitle until the detail page upgrades it.
	Title string `json:"title"`

	// Type decides the default category and the progress unit.
	Type Type `json:"type"`

	// ─────────────────────────────
	// Progress
	// ─────────────────────────────

	// LastProgress is the last episode or chapter number seen.
	LastProgress int `json:"lastProgress"`

	// Category is the shelf (watching, completed, ...).
	Category Category `json:"category"`

	// ─────────────────────────────
	// Metadata
	// ─────────────────────────────

	// UpdatedAt is refreshed on every mutation.
	UpdatedAt time.Time `json:"updatedAt"`

	// ImageURL is the optional cover art.
	ImageURL string `json:"imageUrl,omitempty"`
}

// NormalizeID trims and lower-cases a slug. It is idempotent.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// ParseType accepts "anime" or "komik" in any case.
func ParseType(s string) (Type, error) {
	switch Type(strings.ToLower(strings.TrimSpace(s))) {
	case TypeAnime:
		return TypeAnime, nil
	case TypeKomik:
		return TypeKomik, nil
	case "":
		return "", ErrTypeRequired
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
	}
}

// ParseCategory matches a category label case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.TrimSpace(s)
	for _, c := range Categories {
		if strings.EqualFold(string(c), s) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
}

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	return t == TypeAnime || t == TypeKomik
}

// Unit is the progress unit shown to the user.
func (t Type) Unit() string {
	if t == TypeKomik {
		return "chapter"
	}
	return "episode"
}

// DefaultCategory is the "active" shelf for a type.
func DefaultCategory(t Type) Category {
	if t == TypeKomik {
		return CategoryReading
	}
	return CategoryWatching
}

// WantCategory is the "plan to" placeholder shelf for a type.
func WantCategory(t Type) Category {
	if t == TypeKomik {
		return CategoryWantRead
	}
	return CategoryWantWatch
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// IsWant reports whether c is one of the placeholder shelves.
func (c Category) IsWant() bool {
	return c == CategoryWantWatch || c == CategoryWantRead
}

// Validate checks the fields a caller must supply before an upsert.
// Category may be empty (the type default applies).
func Validate(b Bookmark) error {
	if NormalizeID(b.ID) == "" {
		return ErrIDRequired
	}
	if strings.TrimSpace(b.Title) == "" {
		return ErrTitleRequired
	}
	if b.Type == "" {
		return ErrTypeRequired
	}
	if !b.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidType, b.Type)
	}
	if b.Category != "" && !b.Category.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, b.Category)
	}
	if b.LastProgress < 0 {
		return ErrNegativeProgress
	}
	return nil
}

// HasKnownTitle reports whether the title is real (not empty, not the sentinel).
func (b Bookmark) HasKnownTitle() bool {
	t := strings.TrimSpace(b.Title)
	return t != "" && t != UnknownTitle
}
