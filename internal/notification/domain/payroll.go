package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Event 触发通知的业务事件
type Event struct {
	Type           NotificationType
	EmployeeID     string
	PeriodID       *string
	RecipientLabel string
	RawAddress     string
	// SourceID 事件来源记录（扣薪、工资单）ID
	SourceID string
	Amount   decimal.Decimal
	Reason   string
	Period   string
}

// PayrollSource 工资系统协作方，提供员工、工资期与工资单数据
type PayrollSource interface {
	// SalaryCutEvent 根据扣薪记录构造通知事件
	SalaryCutEvent(ctx context.Context, cutID string) (Event, error)
	// PeriodEvents 返回工资期内每张工资单对应的通知事件
	PeriodEvents(ctx context.Context, periodID string) ([]Event, error)
	// MarkNotificationsSent 标记工资期通知已发送
	MarkNotificationsSent(ctx context.Context, periodID string) error
}

// Composer 消息正文生成器
type Composer interface {
	Compose(ctx context.Context, event Event) (string, error)
}
