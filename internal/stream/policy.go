package stream

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// RewriteRule turns a host's share link into a playable form.
// When From matches the path prefix it is replaced by To. With CacheBust,
// URLs already in the To form get a timestamp param if they lack one.
type RewriteRule struct {
	Host      string
	From      string
	To        string
	CacheBust bool
}

// Policy classifies hosts and normalizes URLs. It is immutable once built
// and shared by every resolver.
type Policy struct {
	Primary        []string
	Secondary      []string
	Unreliable     []string
	EmbedMarkers   []string
	CacheBustParam string
	Rewrites       []RewriteRule

	now func() time.Time
}

// DefaultPolicy reflects which mirrors have proven reliable in practice.
func DefaultPolicy() *Policy {
	return &Policy{
		Primary:        []string{"filedon"},
		Secondary:      []string{"mega"},
		Unreliable:     []string{"pixeldrain"},
		EmbedMarkers:   []string{"/embed", "/player", "/e/", "/iframe"},
		CacheBustParam: "t",
		Rewrites: []RewriteRule{
			{Host: "pixeldrain.com", From: "/u/", To: "/api/file/", CacheBust: true},
			{Host: "mega.nz", From: "/file/", To: "/embed/"},
		},
		now: time.Now,
	}
}

// WithClock returns a copy of p using now for timestamps.
func (p *Policy) WithClock(now func() time.Time) *Policy {
	cp := *p
	cp.now = now
	return &cp
}

func (p *Policy) clock() time.Time {
	if p.now == nil {
		return time.Now()
	}
	return p.now()
}

func (p *Policy) param() string {
	if p.CacheBustParam == "" {
		return "t"
	}
	return p.CacheBustParam
}

// Classify buckets c by matching host patterns against the host label and
// the URL hostname. Unreliable wins over everything else.
func (p *Policy) Classify(c Candidate) HostClass {
	label := strings.ToLower(c.Host)
	host := hostname(c.URL)

	matches := func(patterns []string) bool {
		for _, pat := range patterns {
			pat = strings.ToLower(strings.TrimSpace(pat))
			if pat == "" {
				continue
			}
			if strings.Contains(label, pat) || strings.Contains(host, pat) {
				return true
			}
		}
		return false
	}

	switch {
	case matches(p.Unreliable):
		return ClassUnreliable
	case matches(p.Primary):
		return ClassPrimary
	case matches(p.Secondary):
		return ClassSecondary
	default:
		return ClassOther
	}
}

// IsEmbed reports whether raw looks like an embeddable player page.
func (p *Policy) IsEmbed(raw string) bool {
	l := strings.ToLower(raw)
	for _, m := range p.EmbedMarkers {
		if m != "" && strings.Contains(l, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Transform rewrites share links into their playable form. URLs no rule
// applies to are returned unchanged.
func (p *Policy) Transform(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}

	for _, r := range p.Rewrites {
		if !hostMatches(u.Hostname(), r.Host) {
			continue
		}

		changed := false
		if r.From != "" && strings.HasPrefix(u.Path, r.From) {
			u.Path = r.To + strings.TrimPrefix(u.Path, r.From)
			u.RawPath = ""
			changed = true
		}
		if r.CacheBust && r.To != "" && strings.HasPrefix(u.Path, r.To) {
			q := u.Query()
			if !q.Has(p.param()) {
				q.Set(p.param(), strconv.FormatInt(p.clock().UnixMilli(), 10))
				u.RawQuery = q.Encode()
				changed = true
			}
		}

		if !changed {
			return raw
		}
		return u.String()
	}

	return raw
}

// Bust replaces the cache-busting param so a reload bypasses caches.
func (p *Policy) Bust(raw string, attempt int) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	q := u.Query()
	q.Set(p.param(), strconv.FormatInt(p.clock().UnixMilli(), 10))
	q.Set("retry", strconv.Itoa(attempt))
	u.RawQuery = q.Encode()
	return u.String()
}

// Mode decides how c is played once transformed. The unreliable host
// needs direct byte access and is never embedded.
func (p *Policy) Mode(c Candidate, transformed string) Mode {
	if p.Classify(c) == ClassUnreliable {
		return ModeNative
	}
	if p.IsEmbed(transformed) {
		return ModeEmbed
	}
	return ModeNative
}

// Prepare validates, transforms and picks the mode for c in one step.
func (p *Policy) Prepare(c Candidate) (string, Mode, bool) {
	raw, ok := playable(c.URL)
	if !ok {
		return "", "", false
	}
	out := p.Transform(raw)
	return out, p.Mode(c, out), true
}

// absoluteHTTP reports whether raw is an absolute http(s) URL.
func absoluteHTTP(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// playable upgrades protocol-relative URLs and rejects anything that is not
// an absolute http(s) URL.
func playable(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "//") {
		raw = "https:" + raw
	}
	if !absoluteHTTP(raw) {
		return "", false
	}
	return raw, true
}

func hostname(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if u.Host == "" && strings.HasPrefix(raw, "//") {
		if u, err = url.Parse("https:" + raw); err != nil {
			return ""
		}
	}
	return strings.ToLower(u.Hostname())
}

// hostMatches accepts the exact host and its subdomains.
func hostMatches(host, want string) bool {
	host = strings.ToLower(host)
	want = strings.ToLower(strings.TrimSpace(want))
	if want == "" {
		return false
	}
	return host == want || strings.HasSuffix(host, "."+want)
}
