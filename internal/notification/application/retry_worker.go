package application

import (
	"context"
	"time"

	"github.com/wyfcoding/pkg/logging"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// RetryWorker 定时重试失败通知
type RetryWorker struct {
	repo     domain.NotificationRepository
	engine   *DispatchEngine
	throttle Throttle
	interval time.Duration
	minAge   time.Duration
	batch    int
}

// NewRetryWorker 构造函数。minAge 为失败记录进入重试前的最小静置时间。
func NewRetryWorker(repo domain.NotificationRepository, engine *DispatchEngine, throttle Throttle, interval, minAge time.Duration, batch int) *RetryWorker {
	if throttle == nil {
		throttle = NoThrottle{}
	}
	if batch <= 0 {
		batch = 50
	}
	return &RetryWorker{
		repo:     repo,
		engine:   engine,
		throttle: throttle,
		interval: interval,
		minAge:   minAge,
		batch:    batch,
	}
}

// Start 阻塞运行直到 ctx 取消，interval <= 0 时立即返回
func (w *RetryWorker) Start(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logging.Info(ctx, "retry worker exiting")
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep 执行一轮重试，返回成功发送的条数。
// 先回收中断的 PENDING 记录，随后它们与其他失败记录一样等待 minAge 后重试。
func (w *RetryWorker) Sweep(ctx context.Context) int {
	w.recoverStale(ctx)

	records, err := w.repo.ListFailed(ctx, time.Now().Add(-w.minAge), w.batch)
	if err != nil {
		logging.Error(ctx, "failed to list failed notifications", "error", err)
		return 0
	}

	sent := 0
	for _, r := range records {
		if err := w.throttle.Wait(ctx); err != nil {
			break
		}
		res, err := w.engine.Retry(ctx, r.NotificationID)
		if err != nil {
			logging.Warn(ctx, "scheduled retry skipped", "notification_id", r.NotificationID, "error", err)
			continue
		}
		if res.Outcome.Success {
			sent++
		}
	}
	if len(records) > 0 {
		logging.Info(ctx, "retry sweep finished", "candidates", len(records), "sent", sent)
	}
	return sent
}

func (w *RetryWorker) recoverStale(ctx context.Context) {
	stale, err := w.repo.ListStalePending(ctx, time.Now().Add(-w.engine.StaleAfter()), w.batch)
	if err != nil {
		logging.Error(ctx, "failed to list stale pending notifications", "error", err)
		return
	}
	recovered := 0
	for _, r := range stale {
		ok, err := w.engine.RecoverStale(ctx, r.NotificationID)
		if err != nil {
			logging.Warn(ctx, "stale pending recovery failed", "notification_id", r.NotificationID, "error", err)
			continue
		}
		if ok {
			recovered++
		}
	}
	if recovered > 0 {
		logging.Info(ctx, "stale pending notifications recovered", "count", recovered)
	}
}
