package hostpolicy

// File is the on-disk form of a host policy.
type File struct {
	Primary        []string      `yaml:"primary"`
	Secondary      []string      `yaml:"secondary"`
	Unreliable     []string      `yaml:"unreliable"`
	EmbedMarkers   []string      `yaml:"embed_markers"`
	CacheBustParam string        `yaml:"cache_bust_param"`
	Rewrites       []RewriteRule `yaml:"rewrites"`
}

// RewriteRule maps a host's share path to its playable path.
type RewriteRule struct {
	Host      string `yaml:"host"`
	From      string `yaml:"from"`
	To        string `yaml:"to"`
	CacheBust bool   `yaml:"cache_bust"`
}
