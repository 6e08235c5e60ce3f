package application

import (
	"context"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// NotificationQuery 处理所有通知相关的查询操作（Queries）。
type NotificationQuery struct {
	repo domain.NotificationRepository
}

// NewNotificationQuery 构造函数。
func NewNotificationQuery(repo domain.NotificationRepository) *NotificationQuery {
	return &NotificationQuery{
		repo: repo,
	}
}

// GetRecord 获取单条通知记录
func (q *NotificationQuery) GetRecord(ctx context.Context, notificationID string) (*domain.NotificationRecord, error) {
	return q.repo.Get(ctx, notificationID)
}

// ListPeriodRecords 分页获取工资期通知记录
func (q *NotificationQuery) ListPeriodRecords(ctx context.Context, periodID string, limit, offset int) ([]*domain.NotificationRecord, int64, error) {
	return q.repo.ListByPeriod(ctx, periodID, limit, offset)
}
