package hostpolicy

import (
	"strings"

	"github.com/MrSnakeDoc/tonton/internal/stream"
)

// Map overlays f on the default policy. Lists left empty in the file keep
// their defaults; rewrites replace the defaults only when some are given.
func Map(f File) *stream.Policy {
	p := stream.DefaultPolicy()

	if v := clean(f.Primary); len(v) > 0 {
		p.Primary = v
	}
	if v := clean(f.Secondary); len(v) > 0 {
		p.Secondary = v
	}
	if v := clean(f.Unreliable); len(v) > 0 {
		p.Unreliable = v
	}
	if v := clean(f.EmbedMarkers); len(v) > 0 {
		p.EmbedMarkers = v
	}
	if v := strings.TrimSpace(f.CacheBustParam); v != "" {
		p.CacheBustParam = v
	}

	var rules []stream.RewriteRule
	for _, r := range f.Rewrites {
		host := strings.ToLower(strings.TrimSpace(r.Host))
		if host == "" || r.To == "" {
			continue
		}
		rules = append(rules, stream.RewriteRule{
			Host:      host,
			From:      r.From,
			To:        r.To,
			CacheBust: r.CacheBust,
		})
	}
	if len(rules) > 0 {
		p.Rewrites = rules
	}

	return p
}

func clean(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
