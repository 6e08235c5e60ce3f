package domain

import (
	"time"
)

// NotificationDispatchedEvent 通知完成一轮发送事件
type NotificationDispatchedEvent struct {
	NotificationID string            `json:"notification_id"`
	EmployeeID     string            `json:"employee_id"`
	PeriodID       *string           `json:"period_id,omitempty"`
	Type           NotificationType  `json:"type"`
	State          NotificationState `json:"state"`
	Detail         string            `json:"detail,omitempty"`
	Attempts       int               `json:"attempts"`
	Retry          bool              `json:"retry"`
	OccurredOn     time.Time         `json:"occurred_on"`
}

// BatchCompletedEvent 批量派发完成事件
type BatchCompletedEvent struct {
	PeriodID   string    `json:"period_id"`
	Total      int       `json:"total"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	OccurredOn time.Time `json:"occurred_on"`
}

// NewDispatchedEvent 由记录构造事件
func NewDispatchedEvent(r *NotificationRecord, retry bool, at time.Time) NotificationDispatchedEvent {
	return NotificationDispatchedEvent{
		NotificationID: r.NotificationID,
		EmployeeID:     r.EmployeeID,
		PeriodID:       r.PeriodID,
		Type:           r.Type,
		State:          r.State,
		Detail:         r.ErrorDetail,
		Attempts:       r.Attempts,
		Retry:          retry,
		OccurredOn:     at,
	}
}
