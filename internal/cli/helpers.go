package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrSnakeDoc/tonton/internal/app"
	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/config"
	"github.com/MrSnakeDoc/tonton/internal/domain"
	"github.com/MrSnakeDoc/tonton/internal/logger"
)

// openTimeout bounds storage connection for one-shot commands.
const openTimeout = 45 * time.Second

// loadConfig turns config.Load's fatal panics into an error.
func loadConfig(globals *GlobalFlags) (cfg *config.Config, err error) {
	if globals != nil && globals.EnvFile != "" {
		if err := os.Setenv("TONTON_ENV_FILE", globals.EnvFile); err != nil {
			return nil, fmt.Errorf("set env file: %w", err)
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	cfg = config.Load()

	if globals != nil && globals.Verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// cliLogger keeps one-shot commands quiet unless --verbose.
func cliLogger(globals *GlobalFlags, cfg *config.Config) logger.Logger {
	if globals != nil && globals.Verbose {
		return app.NewLogger(cfg)
	}
	return logger.New("warn", cfg.PrettyLog)
}

// openBookmarks opens the configured storage and returns the collection
// with a func closing the storage.
func openBookmarks(globals *GlobalFlags) (*bookmark.Store, func(), error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, nil, err
	}
	log := cliLogger(globals, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	blob, err := app.OpenStorage(ctx, cfg, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := blob.Close(); err != nil {
			log.Warn("failed to close storage", logger.Error(err))
		}
	}
	return app.NewBookmarkStore(cfg, blob, log), closeFn, nil
}

func printBookmarksHuman(list []domain.Bookmark) {
	if len(list) == 0 {
		fmt.Println("No bookmarks.")
		return
	}
	for _, b := range list {
		fmt.Printf("%-32s %-6s %-16s %s %-5d %s\n",
			truncate(b.ID, 32),
			b.Type,
			b.Category,
			b.Type.Unit(),
			b.LastProgress,
			b.Title,
		)
	}
	fmt.Printf("\n%d bookmark(s)\n", len(list))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

// labelAt returns list[i] or "" when the flag was repeated fewer times.
func labelAt(list []string, i int) string {
	if i < len(list) {
		return strings.TrimSpace(list[i])
	}
	return ""
}
