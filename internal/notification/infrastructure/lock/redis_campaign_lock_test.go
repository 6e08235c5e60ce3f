package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
	"github.com/wyfcoding/payrollnotify/pkg/cache"
)

func newTestLock(t *testing.T, ttl time.Duration) (*RedisCampaignLock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := cache.NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return NewRedisCampaignLock(rc, ttl), mr
}

func TestRedisCampaignLock_Exclusive(t *testing.T) {
	l, mr := newTestLock(t, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "P1")
	require.NoError(t, err)
	assert.True(t, mr.Exists(keyPrefix+"P1"))

	_, err = l.Acquire(ctx, "P1")
	assert.ErrorIs(t, err, domain.ErrCampaignInProgress)

	other, err := l.Acquire(ctx, "P2")
	require.NoError(t, err)
	other()

	release()
	assert.False(t, mr.Exists(keyPrefix+"P1"))

	again, err := l.Acquire(ctx, "P1")
	require.NoError(t, err)
	again()
}

func TestRedisCampaignLock_ReleaseAfterExpiryKeepsNewOwner(t *testing.T) {
	l, mr := newTestLock(t, time.Second)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "P1")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "P1")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(keyPrefix+"P1"))
	fresh()
	assert.False(t, mr.Exists(keyPrefix+"P1"))
}
