// Package lock 批量派发分布式锁
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

const keyPrefix = "notification:campaign:"

// Store 锁存储
type Store interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)
}

// RedisCampaignLock 基于 SET NX PX 的工资期批量派发锁
type RedisCampaignLock struct {
	store Store
	ttl   time.Duration
}

// NewRedisCampaignLock 创建锁，ttl 需覆盖一次批量派发的最长耗时
func NewRedisCampaignLock(store Store, ttl time.Duration) *RedisCampaignLock {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisCampaignLock{store: store, ttl: ttl}
}

// Acquire 实现 domain.CampaignLock
func (l *RedisCampaignLock) Acquire(ctx context.Context, periodID string) (func(), error) {
	key := keyPrefix + periodID
	token := uuid.NewString()

	ok, err := l.store.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("acquire campaign lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: period %s", domain.ErrCampaignInProgress, periodID)
	}

	release := func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		deleted, err := l.store.CompareAndDelete(releaseCtx, key, token)
		if err != nil {
			logging.Error(ctx, "failed to release campaign lock", "period_id", periodID, "error", err)
			return
		}
		if !deleted {
			logging.Warn(ctx, "campaign lock expired before release", "period_id", periodID)
		}
	}
	return release, nil
}
