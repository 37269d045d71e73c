package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Storage backends.
const (
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s
	RequestTimeout  time.Duration // per-request timeout (SSE excluded)

	LogLevel      string // "debug" | "info" | "warn" | "error"
	PrettyLog     bool   // true => zap dev (color), false => zap prod (JSON)
	LogFile       string // optional rotating JSON log file
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool

	// Bookmarks
	Storage             string        // "redis" | "sqlite" | "memory"
	BookmarkKey         string        // storage key of the collection
	SQLitePath          string        // used when Storage=sqlite
	CompletionThreshold int           // progress that moves a bookmark to completed (<0 disables)
	DedupInterval       time.Duration // interval between deduplication passes (default: 24h)
	ImportFile          string        // optional YAML watchlist imported at start-up
	ImportInterval      time.Duration // 0 = import only at start-up and on demand

	// Streams
	HostPolicyFile          string        // optional YAML host policy, defaults when missing
	StreamMaxRetries        int           // retries on a healthy host before switching
	StreamLastResortRetries int           // retries on the unreliable host when nothing else is left
	StreamRetryDelay        time.Duration // delay before a retry reloads the source
	SessionTTL              time.Duration // idle player sessions are closed after this
	SessionSweepInterval    time.Duration
	ProbeTimeout            time.Duration
	ProbeConcurrency        int

	// Scraper
	ScraperBaseURL  string // optional, enables slug based player sessions
	ScraperTimeout  time.Duration
	ScraperAttempts int

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedHosts    []string // optional, restrict ops endpoints to specific Host headers
	AllowedCIDRS    []string // optional, restrict ops endpoints to specific IPs/CIDRs
	TrustProxy      bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins     []string // origins allowed to call /api from a browser ("*" for any)
	RateLimitBurst  int
	RateLimitPerMin int
}

// Load reads the environment, after merging a .env file when one exists.
// Misconfiguration panics.
func Load() *Config {
	loadDotEnv(getenv("TONTON_ENV_FILE", ".env"))

	cfg := &Config{
		// Server settings
		ListenPort:      getenv("TONTON_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("TONTON_SHUTDOWN_TIMEOUT", 5*time.Second),
		RequestTimeout:  mustDuration("TONTON_REQUEST_TIMEOUT", 15*time.Second),

		// Logging
		LogLevel:      getenv("TONTON_LOG_LEVEL", "info"),
		PrettyLog:     mustBool("TONTON_PRETTY_LOG", true),
		LogFile:       getenv("TONTON_LOG_FILE", ""),
		LogMaxSizeMB:  getenvInt("TONTON_LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: getenvInt("TONTON_LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: getenvInt("TONTON_LOG_MAX_AGE_DAYS", 14),
		LogCompress:   mustBool("TONTON_LOG_COMPRESS", false),

		// Bookmarks
		Storage:             strings.ToLower(getenv("TONTON_STORAGE", StorageRedis)),
		BookmarkKey:         getenv("TONTON_BOOKMARK_KEY", "tonton:bookmarks"),
		SQLitePath:          getenv("TONTON_SQLITE_PATH", "/data/tonton.db"),
		CompletionThreshold: getenvInt("TONTON_COMPLETION_THRESHOLD", 100),
		DedupInterval:       mustDuration("TONTON_DEDUP_INTERVAL", 24*time.Hour),
		ImportFile:          getenv("TONTON_IMPORT_FILE", ""),
		ImportInterval:      mustDuration("TONTON_IMPORT_INTERVAL", 0),

		// Streams
		HostPolicyFile:          getenv("TONTON_HOST_POLICY_FILE", ""),
		StreamMaxRetries:        getenvInt("TONTON_STREAM_MAX_RETRIES", 3),
		StreamLastResortRetries: getenvInt("TONTON_STREAM_LAST_RESORT_RETRIES", 5),
		StreamRetryDelay:        mustDuration("TONTON_STREAM_RETRY_DELAY", 2*time.Second),
		SessionTTL:              mustDuration("TONTON_SESSION_TTL", 2*time.Hour),
		SessionSweepInterval:    mustDuration("TONTON_SESSION_SWEEP_INTERVAL", 5*time.Minute),
		ProbeTimeout:            mustDuration("TONTON_PROBE_TIMEOUT", 5*time.Second),
		ProbeConcurrency:        getenvInt("TONTON_PROBE_CONCURRENCY", 4),

		// Scraper
		ScraperBaseURL:  getenv("TONTON_SCRAPER_BASE_URL", ""),
		ScraperTimeout:  mustDuration("TONTON_SCRAPER_TIMEOUT", 10*time.Second),
		ScraperAttempts: getenvInt("TONTON_SCRAPER_ATTEMPTS", 3),

		// Redis settings
		RedisAddr:             getenv("TONTON_REDIS_ADDR", ""),
		RedisUser:             getenv("TONTON_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("TONTON_REDIS_PASSWORD_REQUIRED", false),
		RedisPassword:         getenv("TONTON_REDIS_PASSWORD", ""),
		RedisDB:               getenvInt("TONTON_REDIS_DB", 0),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedHosts:    splitAndTrim(getenv("TONTON_ALLOWED_HOSTS", "")),
		AllowedCIDRS:    splitAndTrim(getenv("TONTON_ALLOWED_CIDRS", "")),
		TrustProxy:      mustBool("TONTON_TRUST_PROXY", false),
		CORSOrigins:     splitAndTrim(getenv("TONTON_CORS_ORIGINS", "")),
		RateLimitBurst:  getenvInt("TONTON_RATE_LIMIT_BURST", 60),
		RateLimitPerMin: getenvInt("TONTON_RATE_LIMIT_PER_MIN", 120),
	}

	if cfg.Storage == StorageRedis {
		cfg.RedisAddr = requireEnv("TONTON_REDIS_ADDR")
	}
	validate(cfg)

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

func validate(cfg *Config) {
	switch cfg.Storage {
	case StorageRedis:
		if cfg.RedisAddr == "" {
			panic("❌ FATAL: TONTON_REDIS_ADDR is required when TONTON_STORAGE=redis")
		}
		if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
			panic("❌ FATAL: TONTON_REDIS_PASSWORD is required when TONTON_REDIS_PASSWORD_REQUIRED=true")
		}
	case StorageSQLite:
		if cfg.SQLitePath == "" {
			panic("❌ FATAL: TONTON_SQLITE_PATH is required when TONTON_STORAGE=sqlite")
		}
	case StorageMemory:
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid TONTON_STORAGE %q (want redis, sqlite or memory)", cfg.Storage))
	}

	if cfg.BookmarkKey == "" {
		panic("❌ FATAL: TONTON_BOOKMARK_KEY must not be empty")
	}
	if cfg.ProbeConcurrency < 1 {
		cfg.ProbeConcurrency = 1
	}
}

// loadDotEnv merges path into the environment. Variables already set win.
func loadDotEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	if err := godotenv.Load(path); err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid env file %s: %v", path, err))
	}
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
