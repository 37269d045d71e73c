package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestSplitAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "tonton.example.com", []string{"tonton.example.com"}},
		{"spaces and quotes", ` "a.example.com" , 'b.example.com',, `, []string{"a.example.com", "b.example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := splitAndTrim(tt.input)
			if len(result) != len(tt.expected) {
				t.Fatalf("splitAndTrim() = %v, want %v", result, tt.expected)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("splitAndTrim()[%d] = %v, want %v", i, result[i], tt.expected[i])
				}
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantPanic bool
	}{
		{"memory", Config{Storage: StorageMemory, BookmarkKey: "k"}, false},
		{"sqlite with path", Config{Storage: StorageSQLite, SQLitePath: "/tmp/t.db", BookmarkKey: "k"}, false},
		{"sqlite without path", Config{Storage: StorageSQLite, BookmarkKey: "k"}, true},
		{"redis without addr", Config{Storage: StorageRedis, BookmarkKey: "k"}, true},
		{"redis password required", Config{Storage: StorageRedis, RedisAddr: "r:6379", RedisPasswordRequired: true, BookmarkKey: "k"}, true},
		{"redis ok", Config{Storage: StorageRedis, RedisAddr: "r:6379", BookmarkKey: "k"}, false},
		{"unknown storage", Config{Storage: "postgres", BookmarkKey: "k"}, true},
		{"empty key", Config{Storage: StorageMemory}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				r := recover()
				if (r != nil) != tt.wantPanic {
					t.Errorf("validate() panic = %v, wantPanic %v", r, tt.wantPanic)
				}
			}()
			cfg := tt.cfg
			validate(&cfg)
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TONTON_ENV_FILE", filepath.Join(t.TempDir(), "missing.env"))
	t.Setenv("TONTON_STORAGE", "memory")

	cfg := Load()
	if cfg.ListenPort != ":8080" {
		t.Errorf("ListenPort = %q, want :8080", cfg.ListenPort)
	}
	if cfg.CompletionThreshold != 100 {
		t.Errorf("CompletionThreshold = %d, want 100", cfg.CompletionThreshold)
	}
	if cfg.StreamMaxRetries != 3 || cfg.StreamLastResortRetries != 5 {
		t.Errorf("unexpected stream retries: %d/%d", cfg.StreamMaxRetries, cfg.StreamLastResortRetries)
	}
	if cfg.StreamRetryDelay != 2*time.Second {
		t.Errorf("StreamRetryDelay = %v, want 2s", cfg.StreamRetryDelay)
	}
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	content := "TONTON_STORAGE=memory\nTONTON_DOTENV_TEST_PORT=:9999\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write env file: %v", err)
	}
	t.Setenv("TONTON_ENV_FILE", path)
	// registered so the variables loaded from the file are cleaned up
	t.Setenv("TONTON_STORAGE", "")
	t.Setenv("TONTON_DOTENV_TEST_PORT", "")
	_ = os.Unsetenv("TONTON_STORAGE")
	_ = os.Unsetenv("TONTON_DOTENV_TEST_PORT")

	cfg := Load()
	if cfg.Storage != StorageMemory {
		t.Errorf("Storage = %q, want memory from env file", cfg.Storage)
	}
	if got := os.Getenv("TONTON_DOTENV_TEST_PORT"); got != ":9999" {
		t.Errorf("TONTON_DOTENV_TEST_PORT = %q, want :9999", got)
	}
}
