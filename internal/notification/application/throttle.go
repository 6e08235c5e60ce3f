package application

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Throttle 相邻两次外发之间的最小间隔控制
type Throttle interface {
	// Wait 阻塞直到允许下一次发送，ctx 取消时返回错误
	Wait(ctx context.Context) error
}

// IntervalThrottle 基于令牌桶（容量 1）的固定间隔节流
type IntervalThrottle struct {
	limiter *rate.Limiter
}

// NewIntervalThrottle 创建节流器，interval <= 0 时不限速
func NewIntervalThrottle(interval time.Duration) Throttle {
	if interval <= 0 {
		return NoThrottle{}
	}
	return &IntervalThrottle{limiter: rate.NewLimiter(rate.Every(interval), 1)}
}

// Wait 实现 Throttle
func (t *IntervalThrottle) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}

// NoThrottle 不限速
type NoThrottle struct{}

// Wait 仅检查 ctx
func (NoThrottle) Wait(ctx context.Context) error {
	return ctx.Err()
}
