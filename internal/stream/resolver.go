package stream

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrUnplayable is returned when a manually chosen candidate has no usable URL.
var ErrUnplayable = errors.New("candidate url is not playable")

type State string

const (
	StateSelecting State = "selecting"
	StatePlaying   State = "playing"
	StateRetrying  State = "retrying"
	StateFailed    State = "failed"
)

type NoticeKind string

const (
	NoticeNone       NoticeKind = "none"
	NoticeRetrying   NoticeKind = "retrying"
	NoticeSwitched   NoticeKind = "switched"
	NoticeLastResort NoticeKind = "last_resort"
	NoticeFailed     NoticeKind = "failed"
)

type FailureKind string

const (
	FailureNone              FailureKind = "none"
	FailureGeneric           FailureKind = "generic"
	FailureUnreliableBlocked FailureKind = "unreliable_blocked"
)

const (
	DefaultMaxRetries           = 3
	DefaultLastResortMaxRetries = 5
	DefaultRetryDelay           = 2 * time.Second
)

type Config struct {
	MaxRetries           int
	LastResortMaxRetries int
	RetryDelay           time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRetries:           DefaultMaxRetries,
		LastResortMaxRetries: DefaultLastResortMaxRetries,
		RetryDelay:           DefaultRetryDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.LastResortMaxRetries <= 0 {
		c.LastResortMaxRetries = DefaultLastResortMaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	return c
}

type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

// Decision tells the player surface what to load next.
type Decision struct {
	State       State         `json:"state"`
	Candidate   *Candidate    `json:"candidate,omitempty"`
	Class       HostClass     `json:"class,omitempty"`
	URL         string        `json:"url,omitempty"`
	Mode        Mode          `json:"mode,omitempty"`
	Attempt     int           `json:"attempt"`
	MaxAttempts int           `json:"maxAttempts"`
	RetryIn     time.Duration `json:"-"`
	RetryInMs   int64         `json:"retryInMs,omitempty"`
	Notice      Notice        `json:"notice"`
	Failure     FailureKind   `json:"failure"`
}

// Snapshot is a read-only view of the resolver internals.
type Snapshot struct {
	State          State       `json:"state"`
	Active         int         `json:"active"`
	Candidates     []Candidate `json:"candidates"`
	AttemptedHosts []string    `json:"attemptedHosts"`
	AttemptedURLs  int         `json:"attemptedUrls"`
	Retries        int         `json:"retries"`
	LastResort     bool        `json:"lastResort"`
}

// Resolver walks an episode's candidates, retrying transient failures and
// falling back through hosts in policy order. It is not safe for concurrent
// use; callers serialize access.
type Resolver struct {
	policy *Policy
	cfg    Config

	candidates     []Candidate
	active         int
	url            string
	mode           Mode
	state          State
	attemptedHosts map[string]bool
	attemptedURLs  map[string]bool
	retries        int
	lastResort     bool
	// set once the unreliable host has been left or exhausted
	unreliableFailed bool

	last Decision
}

func NewResolver(policy *Policy, cfg Config) *Resolver {
	if policy == nil {
		policy = DefaultPolicy()
	}
	r := &Resolver{policy: policy, cfg: cfg.withDefaults()}
	r.reset(nil)
	return r
}

func (r *Resolver) reset(candidates []Candidate) {
	r.candidates = append([]Candidate(nil), candidates...)
	r.active = -1
	r.url = ""
	r.mode = ""
	r.state = StateSelecting
	r.attemptedHosts = make(map[string]bool)
	r.attemptedURLs = make(map[string]bool)
	r.retries = 0
	r.lastResort = false
	r.unreliableFailed = false
	r.last = Decision{State: StateSelecting, Notice: Notice{Kind: NoticeNone}, Failure: FailureNone}
}

// Init starts over with a fresh candidate list.
func (r *Resolver) Init(candidates []Candidate) Decision {
	r.reset(candidates)

	sel := r.policy.selectFrom(r.candidates, nil, true)
	if sel.index < 0 {
		return r.fail(FailureGeneric, "No playable source available for this episode")
	}

	r.activate(sel.index, sel.lastResort)
	if sel.lastResort {
		c := r.candidates[sel.index]
		return r.decide(Notice{
			Kind:    NoticeLastResort,
			Message: fmt.Sprintf("Only %s is available, playback may be blocked", label(c)),
		})
	}
	return r.decide(Notice{Kind: NoticeNone})
}

// OnPlaybackError reacts to the player reporting a failed load.
func (r *Resolver) OnPlaybackError() Decision {
	if r.state == StateFailed || r.active < 0 {
		return r.last
	}

	current := r.candidates[r.active]

	if r.policy.Classify(current) == ClassUnreliable {
		// Never linger on the unreliable host while something else is untried.
		if alt := r.policy.selectFrom(r.candidates, r.skipAttempted, false); alt.index >= 0 {
			r.unreliableFailed = true
			r.activate(alt.index, false)
			return r.decide(r.switchedNotice(current, false))
		}
		if r.retries < r.cfg.LastResortMaxRetries {
			return r.retry(r.cfg.LastResortMaxRetries)
		}
		r.unreliableFailed = true
		return r.fail(FailureUnreliableBlocked, blockedMessage(current))
	}

	if r.retries < r.cfg.MaxRetries {
		return r.retry(r.cfg.MaxRetries)
	}

	next := r.policy.selectFrom(r.candidates, r.skipAttempted, !r.unreliableFailed)
	if next.index >= 0 {
		r.activate(next.index, next.lastResort)
		return r.decide(r.switchedNotice(current, next.lastResort))
	}

	if r.unreliableFailed {
		return r.fail(FailureUnreliableBlocked, blockedMessage(r.unreliableCandidate()))
	}
	return r.fail(FailureGeneric, "No working source found for this episode")
}

// RetryElapsed is called when the retry delay has passed.
func (r *Resolver) RetryElapsed() Decision {
	if r.state != StateRetrying {
		return r.last
	}
	r.state = StatePlaying
	return r.decide(Notice{Kind: NoticeNone})
}

// SelectCandidate switches to c by hand. Unknown candidates are appended.
func (r *Resolver) SelectCandidate(c Candidate) (Decision, error) {
	if _, ok := playable(c.URL); !ok {
		return r.last, ErrUnplayable
	}

	idx := -1
	for i, existing := range r.candidates {
		if sameCandidate(existing, c) {
			idx = i
			break
		}
	}
	if idx < 0 {
		r.candidates = append(r.candidates, c)
		idx = len(r.candidates) - 1
	}

	unreliable := r.policy.Classify(r.candidates[idx]) == ClassUnreliable
	r.activate(idx, unreliable)
	if unreliable {
		return r.decide(Notice{
			Kind:    NoticeLastResort,
			Message: fmt.Sprintf("%s often blocks playback, it will be replaced if it fails", label(c)),
		}), nil
	}
	return r.decide(Notice{Kind: NoticeNone}), nil
}

func (r *Resolver) State() State { return r.state }

// Active returns the playing candidate, if any.
func (r *Resolver) Active() (Candidate, bool) {
	if r.active < 0 || r.active >= len(r.candidates) {
		return Candidate{}, false
	}
	return r.candidates[r.active], true
}

func (r *Resolver) Candidates() []Candidate {
	return append([]Candidate(nil), r.candidates...)
}

// Current returns the most recent decision.
func (r *Resolver) Current() Decision { return r.last }

func (r *Resolver) Policy() *Policy { return r.policy }

func (r *Resolver) Snapshot() Snapshot {
	hosts := make([]string, 0, len(r.attemptedHosts))
	for h := range r.attemptedHosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)

	return Snapshot{
		State:          r.state,
		Active:         r.active,
		Candidates:     r.Candidates(),
		AttemptedHosts: hosts,
		AttemptedURLs:  len(r.attemptedURLs),
		Retries:        r.retries,
		LastResort:     r.lastResort,
	}
}

func (r *Resolver) activate(i int, lastResort bool) {
	c := r.candidates[i]
	url, mode, _ := r.policy.Prepare(c)

	r.active = i
	r.url = url
	r.mode = mode
	r.retries = 0
	r.lastResort = lastResort
	r.state = StatePlaying
	r.attemptedHosts[hostKey(c)] = true
	r.attemptedURLs[urlKey(c.URL)] = true
}

func (r *Resolver) retry(limit int) Decision {
	r.retries++
	r.state = StateRetrying
	r.url = r.policy.Bust(r.url, r.retries)

	d := r.decide(Notice{
		Kind:    NoticeRetrying,
		Message: fmt.Sprintf("Playback interrupted, trying again (%d/%d)", r.retries, limit),
	})
	d.RetryIn = r.cfg.RetryDelay
	d.RetryInMs = r.cfg.RetryDelay.Milliseconds()
	r.last = d
	return d
}

func (r *Resolver) fail(kind FailureKind, msg string) Decision {
	r.state = StateFailed
	r.active = -1
	r.url = ""
	r.mode = ""
	r.retries = 0

	r.last = Decision{
		State:   StateFailed,
		Notice:  Notice{Kind: NoticeFailed, Message: msg},
		Failure: kind,
	}
	return r.last
}

func (r *Resolver) decide(n Notice) Decision {
	c := r.candidates[r.active]

	limit := r.cfg.MaxRetries
	if r.policy.Classify(c) == ClassUnreliable {
		limit = r.cfg.LastResortMaxRetries
	}

	r.last = Decision{
		State:       r.state,
		Candidate:   &c,
		Class:       r.policy.Classify(c),
		URL:         r.url,
		Mode:        r.mode,
		Attempt:     r.retries + 1,
		MaxAttempts: limit + 1,
		Notice:      n,
		Failure:     FailureNone,
	}
	return r.last
}

func (r *Resolver) switchedNotice(from Candidate, lastResort bool) Notice {
	to := r.candidates[r.active]
	if lastResort {
		return Notice{
			Kind: NoticeLastResort,
			Message: fmt.Sprintf("Source %s unavailable, switched to %s as a last resort, playback may be blocked",
				label(from), label(to)),
		}
	}
	return Notice{
		Kind:    NoticeSwitched,
		Message: fmt.Sprintf("Source %s unavailable, switched automatically to %s", label(from), label(to)),
	}
}

func (r *Resolver) skipAttempted(_ int, c Candidate) bool {
	return r.attemptedURLs[urlKey(c.URL)]
}

func (r *Resolver) unreliableCandidate() Candidate {
	for _, c := range r.candidates {
		if r.policy.Classify(c) == ClassUnreliable && r.attemptedURLs[urlKey(c.URL)] {
			return c
		}
	}
	return Candidate{}
}

func blockedMessage(c Candidate) string {
	name := label(c)
	if name == "" {
		name = "the remaining host"
	}
	return fmt.Sprintf("No working source found for this episode, %s is blocking playback", name)
}

func sameCandidate(a, b Candidate) bool {
	if urlKey(a.URL) != urlKey(b.URL) {
		return false
	}
	return b.Host == "" || strings.EqualFold(a.Host, b.Host)
}

func hostKey(c Candidate) string {
	if h := strings.ToLower(strings.TrimSpace(c.Host)); h != "" {
		return h
	}
	return hostname(c.URL)
}

func urlKey(raw string) string {
	return strings.TrimSpace(raw)
}

func label(c Candidate) string {
	name := strings.TrimSpace(c.Host)
	if name == "" {
		name = hostname(c.URL)
	}
	if q := strings.TrimSpace(c.Quality); q != "" && name != "" {
		return name + " " + q
	}
	return name
}
