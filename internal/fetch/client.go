// Package fetch retrieves remote hosts documents over HTTP(S).
//
// A Client keeps one session per origin (see Sessions), sends a configurable
// User-Agent, and retries temporary failures with exponential backoff paced by
// a rate limiter. TLS certificate verification is on unless the client is
// configured with InsecureSkipVerify.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when no user agent is configured.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 6.2; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/46.0.2490.71 Safari/537.36"

// maxBodySize bounds how much of a response is read.
var maxBodySize int64 = 64 << 20

// ErrBodyTooLarge is returned when a response exceeds maxBodySize.
var ErrBodyTooLarge = errors.New("response body too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client fetches remote documents.
type Client struct {
	sessions          *Sessions
	userAgent         string
	timeout           time.Duration
	insecure          bool
	logger            *slog.Logger
	retryCount        int
	retryDelay        time.Duration
	maxRetryDelay     time.Duration
	backoffMultiplier float64
	jitterEnabled     bool
	rateLimiter       *rate.Limiter
}

// ClientConfig contains configuration for the Client.
type ClientConfig struct {
	UserAgent          string
	Timeout            time.Duration
	InsecureSkipVerify bool
	Sessions           *Sessions // optional; built from the other settings when nil
	Logger             *slog.Logger
	RetryCount         int
	RetryDelay         time.Duration
	MaxRetryDelay      time.Duration
	BackoffMultiplier  float64
	JitterEnabled      bool
	RateLimiter        *rate.Limiter
}

// NewClient creates a new Client with the given configuration.
func NewClient(config ClientConfig) *Client {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.RetryCount <= 0 {
		config.RetryCount = 3
	}
	if config.RetryDelay <= 0 {
		config.RetryDelay = 1 * time.Second
	}
	if config.MaxRetryDelay <= 0 {
		config.MaxRetryDelay = 30 * time.Second
	}
	if config.BackoffMultiplier <= 0 {
		config.BackoffMultiplier = 2.0
	}
	if config.RateLimiter == nil {
		config.RateLimiter = rate.NewLimiter(rate.Limit(2.0), 1)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		userAgent:         config.UserAgent,
		timeout:           config.Timeout,
		insecure:          config.InsecureSkipVerify,
		logger:            config.Logger,
		retryCount:        config.RetryCount,
		retryDelay:        config.RetryDelay,
		maxRetryDelay:     config.MaxRetryDelay,
		backoffMultiplier: config.BackoffMultiplier,
		jitterEnabled:     config.JitterEnabled,
		rateLimiter:       config.RateLimiter,
	}
	c.sessions = config.Sessions
	if c.sessions == nil {
		c.sessions = NewSessions(c.newSession)
	}
	return c
}

func (c *Client) newSession() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if c.insecure {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via config
	}
	return &http.Client{
		Timeout:   c.timeout,
		Transport: transport,
	}
}

// Sessions returns the client's session registry.
func (c *Client) Sessions() *Sessions {
	return c.sessions
}

// Fetch retrieves url with GET and returns the response body. An empty body
// is returned as is; deciding whether that is acceptable is up to the caller.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.withRetry(ctx, "GET "+url, func() error {
		var err error
		body, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("fetched remote document", "url", url, "bytes", len(body))
	return body, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	session, err := c.sessions.Get(url)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := session.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(respBody)) > maxBodySize {
		return nil, fmt.Errorf("GET %s: %w (limit %d bytes)", url, ErrBodyTooLarge, maxBodySize)
	}
	return respBody, nil
}

// calculateBackoffDelay calculates exponential backoff with optional jitter.
func (c *Client) calculateBackoffDelay(attempt int) time.Duration {
	delay := float64(c.retryDelay) * math.Pow(c.backoffMultiplier, float64(attempt))
	if delay > float64(c.maxRetryDelay) {
		delay = float64(c.maxRetryDelay)
	}

	duration := time.Duration(delay)
	if c.jitterEnabled {
		duration += time.Duration(rand.Float64() * float64(duration) * 0.1) // 10% jitter
	}
	return duration
}

// withRetry executes fn, retrying temporary failures with backoff and rate limiting.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < c.retryCount; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("operation canceled: %w", err)
		}
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiting failed for %s: %w", operation, err)
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isTemporaryError(err) {
			return err
		}
		if attempt < c.retryCount-1 {
			delay := c.calculateBackoffDelay(attempt)
			c.logger.Warn("request failed, retrying",
				"operation", operation, "attempt", attempt+1, "of", c.retryCount, "delay", delay, "error", err)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operation, c.retryCount, lastErr)
}

// isTemporaryError checks if an error is temporary and should be retried.
func isTemporaryError(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "temporary failure")
}
