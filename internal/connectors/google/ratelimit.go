package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DriveRateLimit stays under Drive's 10 requests/second/user quota.
var DriveRateLimit = RateLimitConfig{RequestsPerSecond: 8.0, BurstSize: 10}

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket with a backoff window after 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// NewRateLimiter creates a rate limiter with the given configuration.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by RecordRateLimitError.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if d := time.Until(retryAt); d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// RecordRateLimitError sets a backoff period after a 429 response.
func (r *RateLimiter) RecordRateLimitError(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = time.Minute
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(retryAfter)
}
