package whazzup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultURL is the public IVAO whazzup v2 endpoint
	DefaultURL = "https://api.ivao.aero/v2/tracker/whazzup"

	// DefaultTimeout bounds a single feed request
	DefaultTimeout = 10 * time.Second

	// DefaultMinInterval is the minimum time between two feed requests
	DefaultMinInterval = time.Second

	// maxErrorBody limits how much of an error response is kept for the message
	maxErrorBody = 512
)

// ErrUpstreamUnavailable is returned (wrapped) for every failure to obtain a
// usable snapshot: network errors, timeouts, non-2xx responses and malformed
// JSON. Callers treat it as "no data this cycle".
var ErrUpstreamUnavailable = errors.New("whazzup feed unavailable")

// Config contains configuration for the whazzup client.
type Config struct {
	// URL is the feed endpoint (default: DefaultURL)
	URL string

	// Timeout bounds each request (default: DefaultTimeout)
	Timeout time.Duration

	// MinInterval is the minimum delay between requests (default: DefaultMinInterval).
	// A negative value disables pacing.
	MinInterval time.Duration

	// UserAgent is sent with every request when set
	UserAgent string
}

// Client fetches whazzup snapshots.
// It is safe for concurrent use.
type Client struct {
	url         string
	userAgent   string
	httpClient  *http.Client
	rateLimiter *rate.Limiter
}

// NewClient creates a new whazzup client.
//
// The client includes:
// - A request timeout so a stalled upstream cannot block a refresh cycle
// - Request pacing so several viewers sharing a client cannot hammer the API
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MinInterval == 0 {
		cfg.MinInterval = DefaultMinInterval
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}

	return &Client{
		url:       cfg.URL,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		rateLimiter: rate.NewLimiter(limit, 1),
	}
}

// URL returns the configured feed endpoint.
func (c *Client) URL() string {
	return c.url
}

// FetchSnapshot performs one GET against the feed and decodes the document.
// All failures wrap ErrUpstreamUnavailable.
func (c *Client) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	// Wait for rate limiter
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %w", ErrUpstreamUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %w", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetching feed: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	// Check for rate limit (HTTP 429)
	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header),
			Message:    "whazzup rate limit exceeded",
		}
	}

	// Check other error status codes
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: API returned status %d: %s",
			ErrUpstreamUnavailable, resp.StatusCode, string(body))
	}

	var snap Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("%w: failed to parse feed: %w", ErrUpstreamUnavailable, err)
	}

	return &snap, nil
}

// FetchPilots returns the pilot list of the current snapshot in feed order.
func (c *Client) FetchPilots(ctx context.Context) ([]Pilot, error) {
	snap, err := c.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return snap.Clients.Pilots, nil
}

// RateLimitError represents an HTTP 429 from the feed.
// It matches ErrUpstreamUnavailable under errors.Is.
type RateLimitError struct {
	StatusCode int
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return e.Message
}

// Is lets errors.Is(err, ErrUpstreamUnavailable) succeed for rate limits.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrUpstreamUnavailable
}

// IsRateLimitError checks if an error is a rate limit error.
func IsRateLimitError(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// parseRetryAfter extracts the Retry-After header value.
// Returns the duration to wait, or 0 if header is not present.
// Supports both delay-seconds (integer) and HTTP-date formats.
func parseRetryAfter(headers http.Header) time.Duration {
	retryAfter := headers.Get("Retry-After")
	if retryAfter == "" {
		return 0
	}

	if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	if retryTime, err := http.ParseTime(retryAfter); err == nil {
		if d := time.Until(retryTime); d > 0 {
			return d
		}
	}

	return 0
}
