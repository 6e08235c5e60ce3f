package domain

import "context"

// EventPublisher 事件发布者接口
type EventPublisher interface {
	// PublishNotificationDispatched 发布通知发送结果事件
	PublishNotificationDispatched(ctx context.Context, event NotificationDispatchedEvent) error

	// PublishBatchCompleted 发布批量派发完成事件
	PublishBatchCompleted(ctx context.Context, event BatchCompletedEvent) error
}
