package watchlist

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/tonton/internal/domain"
)

const sample = `---
- id: " One-Piece "
  title: One Piece
  type: anime
  category: favorit
  progress: 1100
  image: https://img.example.com/op.jpg
- id: solo-leveling
  title: Solo Leveling
  type: KOMIK
  progress: 179
- id: broken
  title: Broken
  type: manga
- id: bad-shelf
  title: Bad Shelf
  type: anime
  category: archived
`

func TestLoadAndMap(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/import.yaml", []byte(sample), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	f, err := NewLoader(fs, "/import.yaml").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(f) != 4 {
		t.Fatalf("Load() returned %d entries, want 4", len(f))
	}

	records, errs := Map(f)
	if len(records) != 2 {
		t.Fatalf("Map() returned %d records, want 2", len(records))
	}
	if len(errs) != 2 {
		t.Errorf("Map() returned %d errors, want 2", len(errs))
	}

	op := records[0]
	if op.ID != "one-piece" {
		t.Errorf("ID = %q, want one-piece", op.ID)
	}
	if op.Category != domain.CategoryFavorite {
		t.Errorf("Category = %q, want %q", op.Category, domain.CategoryFavorite)
	}
	if op.LastProgress != 1100 || op.ImageURL == "" {
		t.Errorf("unexpected record: %+v", op)
	}

	solo := records[1]
	if solo.Type != domain.TypeKomik {
		t.Errorf("Type = %q, want komik", solo.Type)
	}
	if solo.Category != "" {
		t.Errorf("Category = %q, want empty so the store applies the default", solo.Category)
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := NewLoader(afero.NewMemMapFs(), "/nonexistent/import.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}
