// Package exchange fetches funding rate history from derivatives venues.
// Each venue client normalizes its wire format into domain.FundingRecord;
// callers never see venue-specific payloads.
package exchange

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"funding-rate-lab/internal/domain"
)

// Default configuration values.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
	DefaultRetryDelay  = 1 * time.Second
	DefaultMaxDelay    = 10 * time.Second
	DefaultBackoffMult = 2.0

	// DefaultRequestsPerSecond keeps well under both venues' public limits.
	DefaultRequestsPerSecond = 5
)

// FundingSource fetches historical funding rates from one venue.
type FundingSource interface {
	// Venue identifies which venue this source serves.
	Venue() domain.Venue

	// FundingHistory retrieves all funding records for an instrument within
	// [start, end], paginating as needed. Records are returned in timestamp
	// ascending order.
	FundingHistory(ctx context.Context, instrument string, start, end time.Time) ([]*domain.FundingRecord, error)
}

// httpCore is the shared request machinery for venue clients: rate limiting,
// retries with exponential backoff, and 429 handling.
type httpCore struct {
	client      *http.Client
	limiter     *rate.Limiter
	maxRetries  int
	retryDelay  time.Duration
	maxDelay    time.Duration
	backoffMult float64
}

func newHTTPCore() httpCore {
	return httpCore{
		client:      &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRequestsPerSecond), 1),
		maxRetries:  DefaultMaxRetries,
		retryDelay:  DefaultRetryDelay,
		maxDelay:    DefaultMaxDelay,
		backoffMult: DefaultBackoffMult,
	}
}

// ClientOption configures a venue client's HTTP core.
type ClientOption func(*httpCore)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *httpCore) {
		c.client.Timeout = d
	}
}

// WithMaxRetries sets maximum retry attempts.
func WithMaxRetries(n int) ClientOption {
	return func(c *httpCore) {
		c.maxRetries = n
	}
}

// WithRetryDelay sets initial retry delay.
func WithRetryDelay(d time.Duration) ClientOption {
	return func(c *httpCore) {
		c.retryDelay = d
	}
}

// WithRateLimit sets the request rate limit.
func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *httpCore) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *httpCore) {
		c.client = client
	}
}

// do performs one request with rate limiting, retries and exponential
// backoff. build is called per attempt so request bodies can be re-read.
func (c *httpCore) do(ctx context.Context, build func() (*http.Request, error)) ([]byte, error) {
	delay := c.retryDelay
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.backoffMult)
			if delay > c.maxDelay {
				delay = c.maxDelay
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("http request: %w", err)
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("server error %d: %s", resp.StatusCode, string(body))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			// Client errors are not retried
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
		}

		return body, nil
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}
