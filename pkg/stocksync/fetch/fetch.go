// Package fetch issues HTTP GETs against the metrics source with rotating
// client-identity headers and bounded, jittered retry on HTTP 429.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/komsit37/stocksync/pkg/stocksync/metrics"
)

// UserAgents is the default client-identity pool.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:116.0) Gecko/20100101 Firefox/116.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Safari/605.1.15",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_4 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Mobile/15E148 Safari/604.1",
	"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Mobile Safari/537.36",
}

// Languages is the default Accept-Language pool.
var Languages = []string{
	"en-US,en;q=0.9",
	"zh-TW,zh;q=0.8,en-US;q=0.5,en;q=0.3",
	"ja-JP,ja;q=0.9",
	"ko-KR,ko;q=0.9",
}

// Fetcher is what the pipeline needs from a client.
type Fetcher interface {
	Get(ctx context.Context, url string) (*Response, error)
}

// Response is a successful (2xx) fetch.
type Response struct {
	URL    string
	Status int
	Body   []byte
}

type Options struct {
	Timeout     time.Duration // per attempt; default 10s
	MaxAttempts int           // default 5
	BackoffMin  time.Duration // default 3s
	BackoffMax  time.Duration // default 6s
	// RequestsPerSecond paces attempts across the client. Zero disables pacing.
	RequestsPerSecond float64

	UserAgents []string
	Languages  []string

	HTTPClient *http.Client
	Logger     *slog.Logger
	Metrics    *metrics.Metrics
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Client implements Fetcher.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

func New(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 5
	}
	if opts.BackoffMin <= 0 {
		opts.BackoffMin = 3 * time.Second
	}
	if opts.BackoffMax < opts.BackoffMin {
		opts.BackoffMax = opts.BackoffMin + 3*time.Second
	}
	if len(opts.UserAgents) == 0 {
		opts.UserAgents = UserAgents
	}
	if len(opts.Languages) == 0 {
		opts.Languages = Languages
	}
	if opts.Sleep == nil {
		opts.Sleep = sleep
	}
	c := &Client{opts: opts, http: opts.HTTPClient, log: opts.Logger}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c
}

// Get fetches url. Only 429 responses are retried; every other failure,
// including a per-attempt timeout, returns a *FetchError immediately.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	var last *FetchError
	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, &FetchError{URL: url, Attempts: attempt, Err: err}
			}
		}
		resp, err := c.do(ctx, url)
		if err == nil {
			return resp, nil
		}
		err.Attempts = attempt
		if !err.RateLimited() {
			return nil, err
		}
		last = err
		if attempt == c.opts.MaxAttempts {
			break
		}
		wait := c.backoff()
		c.log.Warn("rate limited, backing off",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", c.opts.MaxAttempts),
			slog.Duration("wait", wait))
		if serr := c.opts.Sleep(ctx, wait); serr != nil {
			return nil, &FetchError{URL: url, Status: last.Status, Attempts: attempt, Err: serr}
		}
	}
	return nil, last
}

func (c *Client) do(ctx context.Context, url string) (*Response, *FetchError) {
	actx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	for k, v := range c.headers() {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.opts.Metrics.FetchAttempt("error")
		fe := &FetchError{URL: url, Err: err}
		if errors.Is(actx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			fe.timeout = true
		}
		return nil, fe
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		c.opts.Metrics.FetchAttempt("429")
		c.opts.Metrics.RateLimit()
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: errRateLimited}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		c.opts.Metrics.FetchAttempt(statusClass(resp.StatusCode))
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("http status %d", resp.StatusCode)}
	case err != nil:
		c.opts.Metrics.FetchAttempt("error")
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.opts.Metrics.FetchAttempt("2xx")
	return &Response{URL: url, Status: resp.StatusCode, Body: body}, nil
}

// headers draws a random identity from the pools.
func (c *Client) headers() map[string]string {
	return map[string]string{
		"User-Agent":      c.opts.UserAgents[rand.Intn(len(c.opts.UserAgents))],
		"Accept-Language": c.opts.Languages[rand.Intn(len(c.opts.Languages))],
		"Accept":          "text/html,application/xhtml+xml",
	}
}

// backoff is uniform in [BackoffMin, BackoffMax].
func (c *Client) backoff() time.Duration {
	span := c.opts.BackoffMax - c.opts.BackoffMin
	if span <= 0 {
		return c.opts.BackoffMin
	}
	return c.opts.BackoffMin + time.Duration(rand.Int63n(int64(span)+1))
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}
