package watchlist

// Entry is one bookmark in an import file.
type Entry struct {
	ID       string `yaml:"id"`
	Title    string `yaml:"title"`
	Type     string `yaml:"type"`
	Category string `yaml:"category,omitempty"`
	Progress int    `yaml:"progress,omitempty"`
	Image    string `yaml:"image,omitempty"`
}

// File is the root of an import file: a plain list of entries.
type File []Entry
