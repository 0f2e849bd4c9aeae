// Package security holds the cross-cutting protections around the HTTP
// surface: per-key rate limiting and the audit trail of rejected requests.
package security

import (
	"context"
	"fmt"
	"time"

	"github.com/webhookd/webhookd/internal/cache"
)

// RateLimiter enforces a fixed-window request budget per key, counting in
// the shared cache store. The ingest path keys by subscription id, the
// general HTTP middleware by client IP.
type RateLimiter struct {
	store cache.Store
}

// RateResult describes the outcome of one Allow call.
type RateResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// NewRateLimiter builds a limiter counting in store.
func NewRateLimiter(store cache.Store) (*RateLimiter, error) {
	if store == nil {
		return nil, fmt.Errorf("rate limiter requires a cache store")
	}
	return &RateLimiter{store: store.Namespace("rate")}, nil
}

// Allow reports whether key may perform another request within its current
// window of size window and budget limit.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (RateResult, error) {
	if l == nil {
		return RateResult{}, fmt.Errorf("rate limiter not initialized")
	}
	if limit <= 0 {
		return RateResult{}, fmt.Errorf("rate limit must be positive")
	}
	if window <= 0 {
		window = time.Minute
	}

	// A fresh key opens a new window; an existing one keeps its original
	// expiry so the window is fixed, not sliding.
	ttl := window
	if remain, ok := l.store.TTL(ctx, key); ok && remain > 0 {
		ttl = remain
	}

	current, err := l.store.Increment(ctx, key, 1, ttl)
	if err != nil {
		return RateResult{}, fmt.Errorf("increment rate counter: %w", err)
	}

	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return RateResult{
		Allowed:   current <= int64(limit),
		Remaining: remaining,
		ResetAt:   time.Now().UTC().Add(ttl),
	}, nil
}

// Reset clears the counter for key.
func (l *RateLimiter) Reset(ctx context.Context, key string) {
	if l == nil {
		return
	}
	l.store.Delete(ctx, key)
}
