package stream

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/MrSnakeDoc/tonton/internal/utils"
)

const (
	DefaultProbeTimeout     = 5 * time.Second
	DefaultProbeConcurrency = 4
)

type ProbeOptions struct {
	Timeout     time.Duration
	Concurrency int
	// Client overrides the HEAD client, mainly for tests.
	Client *http.Client
}

// ProbeResult is the reachability of one candidate.
type ProbeResult struct {
	Index     int           `json:"index"`
	Candidate Candidate     `json:"candidate"`
	Class     HostClass     `json:"class"`
	URL       string        `json:"url"`
	Status    int           `json:"status"`
	Latency   time.Duration `json:"-"`
	LatencyMs int64         `json:"latencyMs"`
	Reachable bool          `json:"reachable"`
	Blocked   bool          `json:"blocked"`
	Error     string        `json:"error,omitempty"`
}

// Probe sends a HEAD request to every candidate's transformed URL and reports
// what answered. Results keep the input order.
func (p *Policy) Probe(ctx context.Context, candidates []Candidate, opts ProbeOptions) []ProbeResult {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultProbeTimeout
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultProbeConcurrency
	}
	client := opts.Client
	if client == nil {
		client = newProbeClient(opts.Timeout)
	}

	workers := pool.NewWithResults[ProbeResult]().WithMaxGoroutines(opts.Concurrency)
	for i, c := range candidates {
		i, c := i, c
		workers.Go(func() ProbeResult {
			return p.probeOne(ctx, client, i, c, opts.Timeout)
		})
	}

	results := workers.Wait()
	sort.Slice(results, func(a, b int) bool { return results[a].Index < results[b].Index })
	return results
}

func (p *Policy) probeOne(ctx context.Context, client *http.Client, i int, c Candidate, timeout time.Duration) ProbeResult {
	res := ProbeResult{Index: i, Candidate: c, Class: p.Classify(c)}

	raw, ok := playable(c.URL)
	if !ok {
		res.Error = ErrUnplayable.Error()
		return res
	}
	res.URL = p.Transform(raw)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, res.URL, http.NoBody)
	if err != nil {
		res.Error = fmt.Sprintf("failed to create request: %v", err)
		return res
	}

	start := time.Now()
	resp, err := client.Do(req)
	res.Latency = time.Since(start)
	res.LatencyMs = res.Latency.Milliseconds()
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer utils.Close(resp.Body)

	res.Status = resp.StatusCode
	res.Blocked = resp.StatusCode == http.StatusForbidden
	res.Reachable = resp.StatusCode < http.StatusBadRequest
	return res
}

func newProbeClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				return (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext(ctx, network, addr)
			},
			TLSHandshakeTimeout: timeout,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
			DisableKeepAlives: true,
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// a redirect already proves the mirror answers
			return http.ErrUseLastResponse
		},
	}
}
