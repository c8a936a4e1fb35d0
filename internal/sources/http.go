// Package sources implements the search providers the pipeline queries:
// the domestic Naver search API, Google Custom Search and plain RSS/Atom feeds.
package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/newsdigest/internal/metrics"
	"github.com/deusflow/newsdigest/internal/retry"
)

const (
	DefaultHTTPTimeout = 10 * time.Second
	maxBodySize        = int64(4 * 1024 * 1024)
	userAgent          = "newsdigest/1.0 (+https://github.com/deusflow/newsdigest)"
)

// ErrRateLimited is returned when a provider answers 429.
var ErrRateLimited = errors.New("rate limited by provider")

// Doer is the subset of *http.Client the adapters use.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// StatusError reports an unexpected HTTP status. 4xx responses are not retried.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

type options struct {
	client   Doer
	baseURL  string
	retry    retry.RetryConfig
	interval time.Duration
	metrics  *metrics.Metrics
}

// Option customises a provider client.
type Option func(*options)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(client Doer) Option {
	return func(o *options) { o.client = client }
}

// WithBaseURL points the client at another endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(o *options) { o.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithRetry sets the retry policy for each request.
func WithRetry(cfg retry.RetryConfig) Option {
	return func(o *options) { o.retry = cfg }
}

// WithMinInterval sets the minimum spacing between requests.
func WithMinInterval(d time.Duration) Option {
	return func(o *options) { o.interval = d }
}

// WithMetrics records skipped items on m instead of metrics.Global.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func defaultOptions(baseURL string) options {
	return options{
		client:  &http.Client{Timeout: DefaultHTTPTimeout},
		baseURL: baseURL,
		metrics: metrics.Global,
		retry: retry.RetryConfig{
			MaxAttempts: 3,
			Delay:       500 * time.Millisecond,
			MaxDelay:    5 * time.Second,
			Backoff:     true,
		},
	}
}

// fetchJSON performs a GET built by newReq under the retry policy and decodes
// the body into out. 4xx and decode failures stop retrying immediately.
func fetchJSON(ctx context.Context, client Doer, cfg retry.RetryConfig, newReq func() (*http.Request, error), out any) error {
	return retry.WithRetry(ctx, cfg, func() error {
		req, err := newReq()
		if err != nil {
			return retry.Permanent(fmt.Errorf("build request: %w", err))
		}
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(out); err != nil {
			return retry.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	})
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusOK {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return retry.Permanent(fmt.Errorf("%w (status %d)", ErrRateLimited, resp.StatusCode))
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	if resp.StatusCode >= 500 {
		return statusErr
	}
	return retry.Permanent(statusErr)
}
