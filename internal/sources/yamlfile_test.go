package sources

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/spf13/afero"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("TONTON_TEST_HOST", "filedon")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"set variable", "host: ${TONTON_TEST_HOST}", "host: filedon"},
		{"unset variable", "host: ${TONTON_TEST_MISSING}", "host: "},
		{"no placeholder", "plain text", "plain text"},
		{"bare dollar untouched", "price: $5", "price: $5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(ExpandEnv([]byte(tt.input))); got != tt.expected {
				t.Errorf("ExpandEnv() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestReadYAML(t *testing.T) {
	memfs := afero.NewMemMapFs()
	if err := afero.WriteFile(memfs, "/cfg.yaml", []byte("name: tonton\n"), 0o644); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	var out struct {
		Name string `yaml:"name"`
	}
	if err := ReadYAML(memfs, "/cfg.yaml", &out); err != nil {
		t.Fatalf("ReadYAML() error = %v", err)
	}
	if out.Name != "tonton" {
		t.Errorf("Name = %q, want tonton", out.Name)
	}
}

func TestReadYAMLMissing(t *testing.T) {
	var out map[string]any
	err := ReadYAML(afero.NewMemMapFs(), "/missing.yaml", &out)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}
