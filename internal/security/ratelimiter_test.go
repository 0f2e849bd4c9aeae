package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webhookd/webhookd/internal/cache"
)

func newTestLimiter(t *testing.T) *RateLimiter {
	t.Helper()
	store := cache.NewStore(cache.Options{DefaultTTL: time.Minute})
	limiter, err := NewRateLimiter(store)
	require.NoError(t, err)
	return limiter
}

func TestAllowWithinLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Allow(ctx, "key", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, result.Allowed)
		require.Equal(t, 3-(i+1), result.Remaining)
	}

	result, err := limiter.Allow(ctx, "key", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, result.Allowed)
	require.Zero(t, result.Remaining)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	result, err := limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "a", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	result, err = limiter.Allow(ctx, "b", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed, "a different key has its own budget")
}

func TestAllowWindowExpires(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	result, err := limiter.Allow(ctx, "key", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, result.Allowed)

	result, err = limiter.Allow(ctx, "key", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.False(t, result.Allowed)

	time.Sleep(40 * time.Millisecond)
	result, err = limiter.Allow(ctx, "key", 1, 20*time.Millisecond)
	require.NoError(t, err)
	require.True(t, result.Allowed, "a new window opens after expiry")
}

func TestReset(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "key", 1, time.Minute)
	require.NoError(t, err)
	limiter.Reset(ctx, "key")

	result, err := limiter.Allow(ctx, "key", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, result.Allowed)
}

func TestAllowRejectsNonPositiveLimit(t *testing.T) {
	limiter := newTestLimiter(t)
	_, err := limiter.Allow(context.Background(), "key", 0, time.Minute)
	require.Error(t, err)
}
