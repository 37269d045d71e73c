package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable debug logging"`
	EnvFile string `long:"env-file" description:"Load environment from this file (default .env)"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// ServeCommand runs the HTTP API.
type ServeCommand struct {
	globals *GlobalFlags
	version string
}

// ListCommand prints bookmarks.
type ListCommand struct {
	Type     string `long:"type" description:"Only this type: anime | komik"`
	Category string `long:"category" description:"Only this category (e.g. \"Sedang Ditonton\")"`

	globals *GlobalFlags
	version string
}

// DedupCommand runs one deduplication pass.
type DedupCommand struct {
	globals *GlobalFlags
	version string
}

// ExtractCommand pulls the episode or chapter number out of a title.
type ExtractCommand struct {
	Kind  string `long:"kind" description:"episode | chapter" default:"episode"`
	Title string `long:"title" description:"Title to parse (required)" required:"true"`

	globals *GlobalFlags
	version string
}

// ProbeCommand checks mirrors. --url, --host and --quality are matched by
// position.
type ProbeCommand struct {
	URL         []string `long:"url" description:"Mirror URL (repeatable, required)" required:"true"`
	Host        []string `long:"host" description:"Host label of the matching --url (repeatable)"`
	Quality     []string `long:"quality" description:"Quality label of the matching --url (repeatable)"`
	Policy      string   `long:"policy" description:"Host policy YAML (default $TONTON_HOST_POLICY_FILE)"`
	Timeout     string   `long:"timeout" description:"Per-mirror timeout" default:"5s"`
	Concurrency int      `long:"concurrency" description:"Mirrors probed at once" default:"4"`

	globals *GlobalFlags
	version string
}
