package watchlist

import (
	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/tonton/internal/sources"
)

// Loader reads a watchlist import file.
type Loader struct {
	fs       afero.Fs
	filePath string
}

// NewLoader creates a loader over fsys. A nil fsys means the OS filesystem.
func NewLoader(fsys afero.Fs, filePath string) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{fs: fsys, filePath: filePath}
}

func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the import file.
func (l *Loader) Load() (File, error) {
	var f File
	if err := sources.ReadYAML(l.fs, l.filePath, &f); err != nil {
		return nil, err
	}
	return f, nil
}
