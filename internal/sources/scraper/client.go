// Package scraper talks to the episode scraping service that lists the
// stream mirrors of an episode.
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/MrSnakeDoc/tonton/internal/logger"
	"github.com/MrSnakeDoc/tonton/internal/stream"
	"github.com/MrSnakeDoc/tonton/internal/utils"
)

var (
	ErrNotFound      = errors.New("episode not found")
	ErrNotConfigured = errors.New("scraper base url not configured")
)

const (
	DefaultTimeout  = 10 * time.Second
	DefaultAttempts = 3
)

// Episode is the scraper's view of one episode page.
type Episode struct {
	Title   string             `json:"title"`
	Streams []stream.Candidate `json:"streams"`
	Embeds  []string           `json:"embeds"`
}

// Candidates returns the streams followed by the bare embed URLs.
func (e Episode) Candidates() []stream.Candidate {
	out := make([]stream.Candidate, 0, len(e.Streams)+len(e.Embeds))
	out = append(out, e.Streams...)
	for _, u := range e.Embeds {
		if u = strings.TrimSpace(u); u != "" {
			out = append(out, stream.Candidate{Quality: "embed", URL: u})
		}
	}
	return out
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	Attempts   uint
	RetryDelay time.Duration
	HTTPClient *http.Client
}

type Client struct {
	base     *url.URL
	http     *http.Client
	attempts uint
	delay    time.Duration
	log      logger.Logger
}

// New builds a client. An empty base URL yields a client whose calls fail
// with ErrNotConfigured.
func New(opts Options, log logger.Logger) (*Client, error) {
	c := &Client{
		attempts: opts.Attempts,
		delay:    opts.RetryDelay,
		log:      log.With(logger.String("component", "scraper")),
	}
	if c.attempts == 0 {
		c.attempts = DefaultAttempts
	}
	if c.delay <= 0 {
		c.delay = 200 * time.Millisecond
	}

	c.http = opts.HTTPClient
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}

	if strings.TrimSpace(opts.BaseURL) != "" {
		u, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid scraper base url %q", opts.BaseURL)
		}
		c.base = u
	}

	return c, nil
}

func (c *Client) Configured() bool { return c.base != nil }

// statusError is a non-2xx answer from the scraper.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("scraper returned %d", e.code)
}

// Episode fetches the mirrors of slug. 5xx answers and transport errors are
// retried with backoff; 4xx answers are not.
func (c *Client) Episode(ctx context.Context, slug string) (Episode, error) {
	if c.base == nil {
		return Episode{}, ErrNotConfigured
	}
	slug = strings.Trim(strings.TrimSpace(slug), "/")
	if slug == "" {
		return Episode{}, fmt.Errorf("%w: empty slug", ErrNotFound)
	}

	endpoint := c.base.JoinPath("episode", slug).String()

	ep, err := retry.DoWithData(
		func() (Episode, error) { return c.fetch(ctx, endpoint) },
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			var se *statusError
			if errors.As(err, &se) {
				return se.code >= http.StatusInternalServerError
			}
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("scraper request failed, retrying",
				logger.String("slug", slug),
				logger.Int("attempt", int(n)+1),
				logger.Error(err),
			)
		}),
	)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusNotFound {
			return Episode{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		return Episode{}, fmt.Errorf("failed to fetch episode %s: %w", slug, err)
	}
	return ep, nil
}

func (c *Client) fetch(ctx context.Context, endpoint string) (Episode, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return Episode{}, retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Episode{}, err
	}
	defer utils.MustClose(resp.Body, c.log, "scraper response body")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Episode{}, &statusError{code: resp.StatusCode}
	}

	var ep Episode
	if err := json.NewDecoder(resp.Body).Decode(&ep); err != nil {
		return Episode{}, retry.Unrecoverable(fmt.Errorf("failed to decode episode: %w", err))
	}
	return ep, nil
}
