// Package ratelimit provides an HTTP transport that paces requests to a
// remote API and retries throttled or failed requests with exponential backoff.
package ratelimit

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"todoed/internal/utils"
)

// Config holds configuration for the rate-limiting transport.
type Config struct {
	// RequestsPerSecond paces outgoing requests. Zero disables pacing.
	RequestsPerSecond float64

	// Burst is the number of requests allowed at once. Default: 1
	Burst int

	// MaxRetries is the maximum number of retry attempts after receiving
	// 429 or a retryable 5xx.
	// Default: 5
	MaxRetries int

	// BaseDelay is the initial delay before the first retry.
	// Default: 1 second
	BaseDelay time.Duration

	// MaxDelay is the maximum delay between retries.
	// Default: 32 seconds
	MaxDelay time.Duration

	// EnableJitter adds random jitter (±20%) to prevent thundering herd.
	EnableJitter bool

	// Stats is an optional stats tracker for recording rate limit events.
	Stats *Stats

	// Backend name for error messages and logging.
	Backend string
}

// Transport is an http.RoundTripper that paces requests and retries 429 and
// 5xx responses.
type Transport struct {
	base         http.RoundTripper
	limiter      *rate.Limiter
	maxRetries   int
	baseDelay    time.Duration
	maxDelay     time.Duration
	enableJitter bool
	stats        *Stats
	backend      string
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, cfg Config) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}

	// Apply defaults
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 5
	}

	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}

	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 32 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &Transport{
		base:         base,
		limiter:      limiter,
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
		maxDelay:     maxDelay,
		enableJitter: cfg.EnableJitter,
		stats:        cfg.Stats,
		backend:      cfg.Backend,
	}
}

// NewClient returns an *http.Client using a Transport over http.DefaultTransport.
func NewClient(cfg Config) *http.Client {
	return &http.Client{Transport: NewTransport(nil, cfg)}
}

// retryable reports whether a response status should be retried.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RoundTrip implements http.RoundTripper. It honors Retry-After and the
// request context while waiting.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	// Read body into buffer so we can re-send on retry
	var bodyBytes []byte
	if req.Body != nil && req.Body != http.NoBody {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		_ = req.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to read request body: %w", err)
		}
	}

	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		// Clone request with fresh body reader
		r := req.Clone(ctx)
		if bodyBytes != nil {
			r.Body = io.NopCloser(bytes.NewReader(bodyBytes))
			r.ContentLength = int64(len(bodyBytes))
		}

		resp, err := t.base.RoundTrip(r)
		if err != nil {
			return nil, err
		}

		if !retryable(resp.StatusCode) {
			return resp, nil
		}

		if resp.StatusCode == http.StatusTooManyRequests && t.stats != nil {
			t.stats.RecordRateLimit()
		}

		// Check if we've exhausted retries
		if attempt >= t.maxRetries {
			if resp.StatusCode == http.StatusTooManyRequests {
				_ = resp.Body.Close()
				return nil, &RateLimitError{
					Backend:     t.backend,
					RetryAfter:  t.baseDelay,
					Attempt:     t.maxRetries,
					MaxAttempts: t.maxRetries,
				}
			}
			// Server errors are handed back so the API client can decode them.
			return resp, nil
		}

		// Close body from the failed response (we'll retry)
		_ = resp.Body.Close()

		retryAfter := ParseRetryAfter(resp.Header.Get("Retry-After"))
		delay := t.calculateBackoff(attempt, retryAfter)
		utils.Debugf("%s: %s %s returned %d, retrying in %s", t.backendName(), req.Method, req.URL.Path, resp.StatusCode, delay)

		// Wait for backoff delay or context cancellation
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	// Unreachable: the loop returns on its last attempt.
	return nil, &RateLimitError{Backend: t.backend, Attempt: t.maxRetries, MaxAttempts: t.maxRetries}
}

func (t *Transport) backendName() string {
	if t.backend == "" {
		return "API"
	}
	return t.backend
}

// calculateBackoff computes the backoff duration for a given attempt.
func (t *Transport) calculateBackoff(attempt int, retryAfter *time.Duration) time.Duration {
	if retryAfter != nil {
		return *retryAfter
	}

	// Exponential backoff: base * 2^attempt
	delay := t.baseDelay * time.Duration(math.Pow(2, float64(attempt)))

	// Cap at maxDelay
	if delay > t.maxDelay {
		delay = t.maxDelay
	}

	// Add jitter if enabled (±20%)
	if t.enableJitter {
		jitterFactor := 0.8 + rand.Float64()*0.4 // 0.8 to 1.2
		delay = time.Duration(float64(delay) * jitterFactor)
	}

	return delay
}

// RateLimitError represents an error when rate limit retries are exhausted.
type RateLimitError struct {
	Backend     string
	RetryAfter  time.Duration
	Attempt     int
	MaxAttempts int
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	backend := e.Backend
	if backend == "" {
		backend = "API"
	}
	return fmt.Sprintf("%s rate limit exceeded after %d retries (max %d)", backend, e.Attempt, e.MaxAttempts)
}

// ParseRetryAfter parses the Retry-After header value.
// It supports both seconds format (integer) and HTTP-date format.
// Returns nil if the value is invalid or empty.
func ParseRetryAfter(value string) *time.Duration {
	if value == "" {
		return nil
	}

	// Try parsing as seconds (integer)
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		if seconds < 0 {
			return nil
		}
		d := time.Duration(seconds) * time.Second
		return &d
	}

	// Try parsing as HTTP-date
	if t, err := http.ParseTime(value); err == nil {
		d := time.Until(t)
		if d < 0 {
			d = 0
		}
		return &d
	}

	return nil
}

// Stats tracks rate limit statistics for a backend.
type Stats struct {
	mu              sync.RWMutex
	rateLimitCount  int64
	lastRateLimitAt time.Time
}

// NewStats creates a new Stats instance.
func NewStats() *Stats {
	return &Stats{}
}

// RecordRateLimit records a rate limit event.
func (s *Stats) RecordRateLimit() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateLimitCount++
	s.lastRateLimitAt = time.Now()
}

// RateLimitCount returns the total number of rate limit events.
func (s *Stats) RateLimitCount() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rateLimitCount
}

// LastRateLimitTime returns the time of the last rate limit event.
func (s *Stats) LastRateLimitTime() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRateLimitAt
}
