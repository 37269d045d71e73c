package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/tonton/internal/bookmark"
	"github.com/MrSnakeDoc/tonton/internal/config"
	"github.com/MrSnakeDoc/tonton/internal/httpserver"
	"github.com/MrSnakeDoc/tonton/internal/httpserver/deps"
	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/notify"
	"github.com/MrSnakeDoc/tonton/internal/player"
	"github.com/MrSnakeDoc/tonton/internal/scheduler"
	"github.com/MrSnakeDoc/tonton/internal/sources/hostpolicy"
	"github.com/MrSnakeDoc/tonton/internal/sources/scraper"
	"github.com/MrSnakeDoc/tonton/internal/sources/watchlist"
	"github.com/MrSnakeDoc/tonton/internal/store"
	"github.com/MrSnakeDoc/tonton/internal/stream"
	"github.com/MrSnakeDoc/tonton/internal/utils"
	"github.com/MrSnakeDoc/tonton/internal/version"
)

type App struct {
	cfg     *config.Config
	logger  logger.Logger
	server  *httpserver.Server
	storage store.Blob
	players *player.Manager

	dedup    *scheduler.Deduplicator
	importer *scheduler.Importer
	sweeper  *scheduler.SessionSweeper
	changes  *scheduler.ChangeFeed
}

// New wires every component. Storage is opened (and redis retried) here, so
// a dead backend fails fast.
func New(cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RedisConnectTimeout+5*time.Second)
	defer cancel()

	storage, err := OpenStorage(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	loggerClient.Info("storage initialized", logger.String("backend", storage.Name()))

	bookmarks := NewBookmarkStore(cfg, storage, loggerClient)

	fsys := afero.NewOsFs()
	policy, err := hostpolicy.NewLoader(fsys, cfg.HostPolicyFile).Load()
	if err != nil {
		utils.Close(storage)
		return nil, fmt.Errorf("failed to load host policy: %w", err)
	}

	players := player.NewManager(policy, stream.Config{
		MaxRetries:           cfg.StreamMaxRetries,
		LastResortMaxRetries: cfg.StreamLastResortRetries,
		RetryDelay:           cfg.StreamRetryDelay,
	}, loggerClient)

	sc, err := scraper.New(scraper.Options{
		BaseURL:  cfg.ScraperBaseURL,
		Timeout:  cfg.ScraperTimeout,
		Attempts: uint(max(cfg.ScraperAttempts, 1)),
	}, loggerClient)
	if err != nil {
		utils.Close(storage)
		return nil, err
	}
	if !sc.Configured() {
		loggerClient.Info("scraper not configured, player sessions need explicit candidates")
	}

	// Manual triggers
	dedupTrigger := make(chan struct{}, 1)
	dedup := scheduler.NewDeduplicator(bookmarks, loggerClient, cfg.DedupInterval, dedupTrigger)

	var (
		importer      *scheduler.Importer
		importTrigger chan struct{}
	)
	if cfg.ImportFile != "" {
		loggerClient.Info("watchlist import configured", logger.String("file", cfg.ImportFile))
		importTrigger = make(chan struct{}, 1)
		importer = scheduler.NewImporter(
			watchlist.NewLoader(fsys, cfg.ImportFile),
			bookmarks,
			loggerClient,
			cfg.ImportInterval,
			importTrigger,
		)
	}

	sweeper := scheduler.NewSessionSweeper(players, loggerClient, cfg.SessionTTL, cfg.SessionSweepInterval)
	changes := scheduler.NewChangeFeed(watcherOf(storage), bookmarks.Key(), loggerClient)

	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedHosts:    cfg.AllowedHosts,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitBurst:  cfg.RateLimitBurst,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RequestTimeout:  cfg.RequestTimeout,
		Storage:         storage,
		Bookmarks:       bookmarks,
		Changes:         changes,
		Dedup:           dedup,
		Players:         players,
		Scraper:         sc,
		Probe: stream.ProbeOptions{
			Timeout:     cfg.ProbeTimeout,
			Concurrency: cfg.ProbeConcurrency,
		},
		DedupTrigger:  dedupTrigger,
		ImportTrigger: importTrigger,
	}

	return &App{
		cfg:      cfg,
		logger:   loggerClient,
		server:   httpserver.New(cfg, loggerClient, d),
		storage:  storage,
		players:  players,
		dedup:    dedup,
		importer: importer,
		sweeper:  sweeper,
		changes:  changes,
	}, nil
}

// NewBookmarkStore builds the collection over storage. Notices go to the
// log and to the per-request recorder when one is attached.
func NewBookmarkStore(cfg *config.Config, storage store.Blob, log logger.Logger) *bookmark.Store {
	return bookmark.New(storage, log, notify.Fanout{Base: notify.NewLog(log)}, bookmark.Options{
		Key:                 cfg.BookmarkKey,
		CompletionThreshold: cfg.CompletionThreshold,
	})
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting tonton v%s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Info(version.Info())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Import first so the start-up dedup pass sees the imported records.
	if a.importer != nil {
		if err := a.importer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start importer: %w", err)
		}
		a.logger.Info("importer started", logger.Duration("interval", a.cfg.ImportInterval))
	}

	if err := a.dedup.Start(ctx); err != nil {
		return fmt.Errorf("failed to start deduplicator: %w", err)
	}
	a.logger.Info("deduplicator started", logger.Duration("interval", a.cfg.DedupInterval))

	if err := a.sweeper.Start(ctx); err != nil {
		return fmt.Errorf("failed to start session sweeper: %w", err)
	}

	if err := a.changes.Start(ctx); err != nil {
		return fmt.Errorf("failed to start change feed: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case runErr = <-errCh:
	}

	// Schedulers first; stopping the feed also ends open SSE streams.
	if a.importer != nil {
		a.importer.Stop()
	}
	a.dedup.Stop()
	a.sweeper.Stop()
	a.changes.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to stop server: %w", err)
	}

	a.players.CloseAll()

	if err := a.storage.Close(); err != nil {
		a.logger.Warnf("failed to close %s storage: %v", a.storage.Name(), err)
	} else {
		a.logger.Infof("✅ %s storage closed cleanly", a.storage.Name())
	}

	if runErr != nil {
		return runErr
	}
	a.logger.Info("✅ tonton stopped cleanly")
	return nil
}
