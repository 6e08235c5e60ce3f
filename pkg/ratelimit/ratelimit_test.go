package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisRateLimiter_Allow(t *testing.T) {
	mr := miniredis.RunT(t)
	limiter := NewRedisRateLimiter(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	limit := PerMinute(2)
	for range 2 {
		res, err := limiter.Allow(ctx, "client-a", limit)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
	res, err := limiter.Allow(ctx, "client-a", limit)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Positive(t, res.RetryAfter)

	other, err := limiter.Allow(ctx, "client-b", limit)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}
