package httputil

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/matzehuels/relnet/pkg/buildinfo"
	"github.com/matzehuels/relnet/pkg/observability"
)

// DefaultUserAgent identifies relnet to remote APIs.
var DefaultUserAgent = buildinfo.UserAgent()

// Client issues rate-limited GET requests with retries.
type Client struct {
	http      *http.Client
	limiter   *rate.Limiter
	userAgent string
	attempts  int
	delay     time.Duration
}

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	Timeout time.Duration
	// RequestsPerSecond limits outgoing requests; zero means unlimited.
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
	Attempts          int
	RetryDelay        time.Duration
}

// NewClient creates a client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), max(opts.Burst, 1))
	}
	return &Client{
		http:      &http.Client{Timeout: opts.Timeout},
		limiter:   limiter,
		userAgent: opts.UserAgent,
		attempts:  opts.Attempts,
		delay:     opts.RetryDelay,
	}
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d", e.URL, e.StatusCode)
}

// GetJSON fetches url and decodes the JSON body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	return c.get(ctx, url, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(v); err != nil {
			return fmt.Errorf("decode %s: %w", url, err)
		}
		return nil
	})
}

// Download fetches url and copies the body to w. Partial writes from failed
// attempts are the caller's concern; pass a buffer when retries matter.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	return c.get(ctx, url, func(body io.Reader) error {
		_, err := io.Copy(w, body)
		return err
	})
}

func (c *Client) get(ctx context.Context, url string, read func(io.Reader) error) error {
	return Retry(ctx, c.attempts, c.delay, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", c.userAgent)

		hooks := observability.HTTP()
		host, path := req.URL.Host, req.URL.Path
		hooks.OnRequest(ctx, req.Method, host, path)
		start := time.Now()

		resp, err := c.http.Do(req)
		if err != nil {
			hooks.OnError(ctx, req.Method, host, path, err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &RetryableError{Err: err}
		}
		defer resp.Body.Close()
		hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			serr := &StatusError{URL: url, StatusCode: resp.StatusCode}
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return &RetryableError{Err: serr, After: retryAfter(resp.Header.Get("Retry-After"), time.Now())}
			}
			return serr
		}
		return read(resp.Body)
	})
}
