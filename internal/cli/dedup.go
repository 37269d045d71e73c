package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
)

type dedupJSON struct {
	Before  int `json:"before"`
	After   int `json:"after"`
	Dropped int `json:"dropped"`
}

// Execute implements the go-flags Commander interface for DedupCommand.
func (c *DedupCommand) Execute(args []string) error {
	store, closeFn, err := openBookmarks(c.globals)
	if err != nil {
		return err
	}
	defer closeFn()

	return c.executeWithStore(store)
}

// executeWithStore runs dedup against a provided store (for testing).
func (c *DedupCommand) executeWithStore(store *bookmark.Store) error {
	ctx := context.Background()

	before := len(store.ListAll(ctx))
	after := len(store.Deduplicate(ctx))
	res := dedupJSON{Before: before, After: after, Dropped: max(before-after, 0)}

	if c.globals != nil && c.globals.JSON {
		return json.NewEncoder(os.Stdout).Encode(res)
	}
	if res.Dropped == 0 {
		fmt.Printf("No duplicates among %d bookmark(s).\n", before)
		return nil
	}
	fmt.Printf("Removed %d duplicate(s): %d -> %d bookmark(s).\n", res.Dropped, before, after)
	return nil
}
