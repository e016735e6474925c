package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"bookhub/internal/metrics"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Getter is the only capability provider adapters need from HTTP.
type Getter interface {
	Get(ctx context.Context, url string) (status int, body []byte, err error)
}

// Options configures a Client.
type Options struct {
	// Name labels metrics and logs, usually the provider source.
	Name       string
	UserAgent  string
	Timeout    time.Duration
	RPS        int
	MaxRetries int
	// Backoff is the first retry delay; it doubles on each attempt.
	Backoff    time.Duration
	MaxBodyLen int64
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client performs rate-limited GETs with retries on 429, 5xx and network
// errors. Other statuses are returned to the caller as-is.
type Client struct {
	httpClient *http.Client
	name       string
	userAgent  string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBodyLen int64
	logger     *zap.Logger
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.MaxBodyLen <= 0 {
		opts.MaxBodyLen = 10 << 20
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RPS > 0 {
		limit = rate.Every(time.Second / time.Duration(opts.RPS))
	}
	return &Client{
		httpClient: httpClient,
		name:       opts.Name,
		userAgent:  opts.UserAgent,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.Backoff,
		maxBodyLen: opts.MaxBodyLen,
		logger:     opts.Logger.With(zap.String("provider", opts.Name)),
	}
}

// Get fetches url. A non-nil error means no response was obtained at all
// (network, timeout, cancellation); any HTTP status comes back with err == nil.
func (c *Client) Get(ctx context.Context, url string) (int, []byte, error) {
	start := time.Now()
	var lastErr error
	lastStatus := 0
	for i := 0; i <= c.maxRetries; i++ {
		if i > 0 {
			backoff := c.backoff * time.Duration(1<<uint(i-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				metrics.ObserveProviderRequest(c.name, metrics.OutcomeTransport, time.Since(start))
				return 0, nil, ctx.Err()
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			metrics.ObserveProviderRequest(c.name, metrics.OutcomeTransport, time.Since(start))
			return 0, nil, err
		}

		status, body, err := c.do(ctx, url)
		if err != nil {
			lastErr = err
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				break
			}
			c.logger.Debug("provider request failed", zap.String("url", redactKey(url)), zap.Int("attempt", i+1), zap.Error(err))
			continue
		}
		if status == http.StatusTooManyRequests || status >= 500 {
			lastStatus = status
			lastErr = nil
			c.logger.Debug("provider retryable status", zap.String("url", redactKey(url)), zap.Int("status", status), zap.Int("attempt", i+1))
			continue
		}

		outcome := metrics.OutcomeSuccess
		if status != http.StatusOK {
			outcome = metrics.OutcomeHTTPError
		}
		metrics.ObserveProviderRequest(c.name, outcome, time.Since(start))
		return status, body, nil
	}

	if lastErr == nil && lastStatus != 0 {
		metrics.ObserveProviderRequest(c.name, metrics.OutcomeHTTPError, time.Since(start))
		return lastStatus, nil, nil
	}
	metrics.ObserveProviderRequest(c.name, metrics.OutcomeTransport, time.Since(start))
	return 0, nil, fmt.Errorf("after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, url string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyLen))
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}
