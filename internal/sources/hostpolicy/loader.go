package hostpolicy

import (
	"errors"
	"io/fs"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/tonton/internal/sources"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

// Loader reads a host policy file.
type Loader struct {
	fs       afero.Fs
	filePath string
}

// NewLoader creates a loader over fs. A nil fs means the OS filesystem.
func NewLoader(fsys afero.Fs, filePath string) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys, filePath: filePath}
}

// Load returns the policy described by the file. An empty path or a missing
// file yields the built-in defaults.
func (l *Loader) Load() (*stream.Policy, error) {
	if l.filePath == "" {
		return stream.DefaultPolicy(), nil
	}

	var f File
	if err := sources.ReadYAML(l.fs, l.filePath, &f); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return stream.DefaultPolicy(), nil
		}
		return nil, err
	}

	return Map(f), nil
}
