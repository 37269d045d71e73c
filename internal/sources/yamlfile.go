// Package sources holds the loaders for files and services that feed the
// cores: the host policy, the watchlist import and the episode scraper.
package sources

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

var envPlaceholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ReadYAML reads path from fs, expands ${VAR} placeholders from the
// environment and decodes the result into out.
func ReadYAML(fs afero.Fs, path string, out any) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	data = ExpandEnv(data)

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

// ExpandEnv replaces ${VAR} with its value. Unset variables become empty.
func ExpandEnv(data []byte) []byte {
	return envPlaceholder.ReplaceAllFunc(data, func(m []byte) []byte {
		name := envPlaceholder.FindSubmatch(m)[1]
		return []byte(os.Getenv(string(name)))
	})
}
