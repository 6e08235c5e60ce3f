// Package messaging 通知事件发布
package messaging

import (
	"context"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// Producer 消息生产者
type Producer interface {
	SendMessage(ctx context.Context, topic, key string, value any) error
}

// eventEnvelope 统一事件信封
type eventEnvelope struct {
	EventType string `json:"event_type"`
	Payload   any    `json:"payload"`
}

const (
	EventNotificationDispatched = "notification.dispatched"
	EventBatchCompleted         = "notification.batch_completed"
)

// KafkaEventPublisher 将通知事件写入 Kafka
type KafkaEventPublisher struct {
	producer Producer
	topic    string
}

// NewKafkaEventPublisher 创建事件发布器
func NewKafkaEventPublisher(producer Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

// PublishNotificationDispatched 以通知 ID 为 key 保证同一记录事件有序
func (p *KafkaEventPublisher) PublishNotificationDispatched(ctx context.Context, evt domain.NotificationDispatchedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, evt.NotificationID, eventEnvelope{
		EventType: EventNotificationDispatched,
		Payload:   evt,
	})
}

// PublishBatchCompleted 以工资期 ID 为 key
func (p *KafkaEventPublisher) PublishBatchCompleted(ctx context.Context, evt domain.BatchCompletedEvent) error {
	return p.producer.SendMessage(ctx, p.topic, evt.PeriodID, eventEnvelope{
		EventType: EventBatchCompleted,
		Payload:   evt,
	})
}
