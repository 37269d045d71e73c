package cli

import (
	"context"
	"encoding/json"
	"os"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/domain"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	store, closeFn, err := openBookmarks(c.globals)
	if err != nil {
		return err
	}
	defer closeFn()

	return c.executeWithStore(store)
}

// executeWithStore runs list against a provided store (for testing).
func (c *ListCommand) executeWithStore(store *bookmark.Store) error {
	ctx := context.Background()

	var (
		typ      domain.Type
		category domain.Category
		err      error
	)
	if c.Type != "" {
		if typ, err = domain.ParseType(c.Type); err != nil {
			return err
		}
	}
	if c.Category != "" {
		if category, err = domain.ParseCategory(c.Category); err != nil {
			return err
		}
	}

	list := store.ListAll(ctx)
	out := make([]domain.Bookmark, 0, len(list))
	for _, b := range list {
		if typ != "" && b.Type != typ {
			continue
		}
		if category != "" && b.Category != category {
			continue
		}
		out = append(out, b)
	}

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printBookmarksHuman(out)
	return nil
}
