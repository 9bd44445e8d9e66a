package google

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ServiceType identifies a Google API service for rate limiting purposes.
type ServiceType string

const (
	// ServiceDrive is the Google Drive API service.
	ServiceDrive ServiceType = "drive"
	// ServiceDirectory is the Admin SDK Directory API service.
	ServiceDirectory ServiceType = "directory"
	// ServiceGroupsSettings is the Groups Settings API service.
	ServiceGroupsSettings ServiceType = "groupssettings"
)

// RateLimitConfig holds rate limiting configuration for a service.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64
	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimits keeps each service well below Google's quotas.
var DefaultRateLimits = map[ServiceType]RateLimitConfig{
	ServiceDrive:          {RequestsPerSecond: 8.0, BurstSize: 10},
	ServiceDirectory:      {RequestsPerSecond: 5.0, BurstSize: 5},
	ServiceGroupsSettings: {RequestsPerSecond: 2.0, BurstSize: 2},
}

// defaultBackoff applies after a 429 that carried no Retry-After.
const defaultBackoff = 60 * time.Second

// RateLimiter provides rate limiting for Google API requests.
// It uses a token bucket with an extra pause after 429 responses.
type RateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter for the specified service.
func NewRateLimiter(service ServiceType) *RateLimiter {
	cfg, ok := DefaultRateLimits[service]
	if !ok {
		cfg = RateLimitConfig{RequestsPerSecond: 5.0, BurstSize: 10}
	}
	return NewRateLimiterWithConfig(cfg)
}

// NewRateLimiterWithConfig creates a rate limiter with custom configuration.
func NewRateLimiterWithConfig(cfg RateLimitConfig) *RateLimiter {
	return &RateLimiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize),
		now:     time.Now,
	}
}

// Wait blocks until a request may be sent, honouring any 429 pause.
func (r *RateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	pause := r.retryAt.Sub(r.now())
	r.mu.Unlock()

	if pause > 0 {
		t := time.NewTimer(pause)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return r.limiter.Wait(ctx)
}

// Backoff pauses all requests for d, or a default minute when d is zero.
func (r *RateLimiter) Backoff(d time.Duration) {
	if d <= 0 {
		d = defaultBackoff
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if until := r.now().Add(d); until.After(r.retryAt) {
		r.retryAt = until
	}
}

// Allow reports whether a request may be sent immediately.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	paused := r.now().Before(r.retryAt)
	r.mu.Unlock()
	return !paused && r.limiter.Allow()
}

// Observe records a request outcome, pausing after rate-limit errors.
func (r *RateLimiter) Observe(err error) {
	if IsRateLimited(err) {
		r.Backoff(0)
	}
}
