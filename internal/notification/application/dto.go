package application

import (
	"time"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

type NotificationDTO struct {
	NotificationID string     `json:"notification_id"`
	EmployeeID     string     `json:"employee_id"`
	PeriodID       *string    `json:"period_id,omitempty"`
	Type           string     `json:"type"`
	Address        string     `json:"address"`
	Body           string     `json:"body"`
	State          string     `json:"state"`
	ErrorDetail    string     `json:"error_detail,omitempty"`
	Attempts       int        `json:"attempts"`
	SentAt         *time.Time `json:"sent_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type DispatchResultDTO struct {
	Success      bool             `json:"success"`
	Detail       string           `json:"detail"`
	Skipped      bool             `json:"skipped"`
	Reason       string           `json:"reason,omitempty"`
	Notification *NotificationDTO `json:"notification,omitempty"`
}

// ToNotificationDTO 记录转 DTO
func ToNotificationDTO(r *domain.NotificationRecord) *NotificationDTO {
	if r == nil {
		return nil
	}
	return &NotificationDTO{
		NotificationID: r.NotificationID,
		EmployeeID:     r.EmployeeID,
		PeriodID:       r.PeriodID,
		Type:           string(r.Type),
		Address:        r.Address,
		Body:           r.Body,
		State:          string(r.State),
		ErrorDetail:    r.ErrorDetail,
		Attempts:       r.Attempts,
		SentAt:         r.SentAt,
		CreatedAt:      r.CreatedAt,
	}
}

// ToDispatchResultDTO 派发结果转 DTO
func ToDispatchResultDTO(res *DispatchResult) *DispatchResultDTO {
	return &DispatchResultDTO{
		Success:      res.Outcome.Success,
		Detail:       res.Outcome.Detail,
		Skipped:      res.Skipped,
		Reason:       res.Reason,
		Notification: ToNotificationDTO(res.Record),
	}
}
