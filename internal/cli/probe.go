package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"

	"github.com/MrSnakeDoc/tonton/internal/sources/hostpolicy"
	"github.com/MrSnakeDoc/tonton/internal/stream"
)

// Execute implements the go-flags Commander interface for ProbeCommand.
func (c *ProbeCommand) Execute(args []string) error {
	path := c.Policy
	if path == "" {
		path = os.Getenv("TONTON_HOST_POLICY_FILE")
	}
	policy, err := hostpolicy.NewLoader(afero.NewOsFs(), path).Load()
	if err != nil {
		return fmt.Errorf("load host policy: %w", err)
	}
	return c.executeWithPolicy(policy, nil)
}

// executeWithPolicy probes with a provided policy and optional client (for testing).
func (c *ProbeCommand) executeWithPolicy(policy *stream.Policy, opts *stream.ProbeOptions) error {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return fmt.Errorf("invalid --timeout %q: %w", c.Timeout, err)
	}

	candidates := make([]stream.Candidate, 0, len(c.URL))
	for i, u := range c.URL {
		candidates = append(candidates, stream.Candidate{
			URL:     u,
			Host:    labelAt(c.Host, i),
			Quality: labelAt(c.Quality, i),
		})
	}

	probe := stream.ProbeOptions{Timeout: timeout, Concurrency: c.Concurrency}
	if opts != nil {
		probe = *opts
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout*time.Duration(len(candidates)+1))
	defer cancel()
	results := policy.Probe(ctx, candidates, probe)

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	for _, r := range results {
		status := "DOWN"
		switch {
		case r.Reachable:
			status = "OK"
		case r.Blocked:
			status = "BLOCKED"
		}
		detail := fmt.Sprintf("%d", r.Status)
		if r.Error != "" {
			detail = r.Error
		}
		fmt.Printf("%-8s %-10s %5dms %-5s %s (%s)\n", status, r.Class, r.LatencyMs, r.Candidate.Quality, r.URL, detail)
	}
	return nil
}
