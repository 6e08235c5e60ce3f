package domain

import (
	"context"
	"time"
)

// NotificationRepository 通知记录仓储接口，仅由派发引擎写入
type NotificationRepository interface {
	// Create 新建通知记录
	Create(ctx context.Context, record *NotificationRecord) error
	// Get 根据通知 ID 获取记录，不存在时返回 ErrRecordNotFound
	Get(ctx context.Context, notificationID string) (*NotificationRecord, error)
	// Transition 以 from 状态为条件写入记录当前状态，条件不满足时返回 ErrStateConflict
	Transition(ctx context.Context, record *NotificationRecord, from NotificationState) error
	// ListByPeriod 分页获取工资期下的通知记录
	ListByPeriod(ctx context.Context, periodID string, limit, offset int) ([]*NotificationRecord, int64, error)
	// ListFailed 获取更新时间早于 before 的失败记录
	ListFailed(ctx context.Context, before time.Time, limit int) ([]*NotificationRecord, error)
	// ListStalePending 获取更新时间早于 before 仍处于 PENDING 的记录
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]*NotificationRecord, error)
	// CountByPeriod 按状态与类型分组统计工资期下的记录
	CountByPeriod(ctx context.Context, periodID string) ([]StateTypeCount, error)
}

// CampaignLock 批量派发互斥锁，保证同一工资期同时只有一个批次
type CampaignLock interface {
	// Acquire 获取锁，已被占用时返回 ErrCampaignInProgress
	Acquire(ctx context.Context, periodID string) (release func(), err error)
}
