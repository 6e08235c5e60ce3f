// Package domain 工资通知派发的领域模型
package domain

import (
	"time"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeSalaryCut       NotificationType = "SALARY_CUT"       // 扣薪通知
	NotificationTypeSalaryAvailable NotificationType = "SALARY_AVAILABLE" // 工资到账通知
	NotificationTypePayslip         NotificationType = "PAYSLIP"          // 工资单通知
	NotificationTypeOther           NotificationType = "OTHER"            // 其他
)

// IsValid 判断通知类型是否合法
func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationTypeSalaryCut, NotificationTypeSalaryAvailable, NotificationTypePayslip, NotificationTypeOther:
		return true
	}
	return false
}

// NotificationState 通知状态
type NotificationState string

const (
	NotificationStatePending NotificationState = "PENDING"
	NotificationStateSent    NotificationState = "SENT"
	NotificationStateFailed  NotificationState = "FAILED"
)

// NotificationRecord 通知记录实体，每次派发对应一条，重试复用同一条记录
type NotificationRecord struct {
	gorm.Model
	// NotificationID 通知 ID
	NotificationID string `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	// EmployeeID 员工 ID
	EmployeeID string `gorm:"column:employee_id;type:varchar(32);index;not null" json:"employee_id"`
	// PeriodID 工资期 ID，非期间类通知为空
	PeriodID *string `gorm:"column:period_id;type:varchar(32);index" json:"period_id,omitempty"`
	// Type 通知类型
	Type NotificationType `gorm:"column:type;type:varchar(20);not null" json:"type"`
	// Body 消息正文，创建后不再修改
	Body string `gorm:"column:body;type:text;not null" json:"body"`
	// Address 规范化后的收件地址
	Address string `gorm:"column:address;type:varchar(32);not null" json:"address"`
	// State 通知状态
	State NotificationState `gorm:"column:state;type:varchar(20);index;not null;default:'PENDING'" json:"state"`
	// ErrorDetail 失败原因，仅在 FAILED 时存在
	ErrorDetail string `gorm:"column:error_detail;type:text" json:"error_detail,omitempty"`
	// Attempts 发送次数
	Attempts int `gorm:"column:attempts;not null;default:0" json:"attempts"`
	// SentAt 发送成功时间
	SentAt *time.Time `gorm:"column:sent_at" json:"sent_at,omitempty"`
}

// TableName 表名
func (NotificationRecord) TableName() string {
	return "notification_records"
}

// NewNotificationRecord 创建待发送的通知记录
func NewNotificationRecord(notificationID string, event Event, address, body string) *NotificationRecord {
	return &NotificationRecord{
		NotificationID: notificationID,
		EmployeeID:     event.EmployeeID,
		PeriodID:       event.PeriodID,
		Type:           event.Type,
		Body:           body,
		Address:        address,
		State:          NotificationStatePending,
	}
}

// MarkSent 标记发送成功
func (n *NotificationRecord) MarkSent(at time.Time) error {
	if n.State != NotificationStatePending {
		return ErrStateConflict
	}
	n.State = NotificationStateSent
	n.SentAt = &at
	n.ErrorDetail = ""
	return nil
}

// MarkFailed 标记发送失败
func (n *NotificationRecord) MarkFailed(detail string) error {
	if n.State != NotificationStatePending {
		return ErrStateConflict
	}
	if detail == "" {
		detail = DetailUnknownFailure
	}
	n.State = NotificationStateFailed
	n.ErrorDetail = detail
	n.SentAt = nil
	return nil
}

// Apply 根据派发结果完成本轮发送
func (n *NotificationRecord) Apply(outcome DispatchOutcome, at time.Time) error {
	n.Attempts++
	if outcome.Success {
		return n.MarkSent(at)
	}
	return n.MarkFailed(outcome.Detail)
}

// CanRetry 是否可以重试
func (n *NotificationRecord) CanRetry() bool {
	return n.State == NotificationStateFailed
}

// BeginRetry 重置为待发送并清除上次错误
func (n *NotificationRecord) BeginRetry() error {
	if !n.CanRetry() {
		return ErrNotRetryable
	}
	n.State = NotificationStatePending
	n.ErrorDetail = ""
	return nil
}

// IsTerminal 本轮发送是否已结束
func (n *NotificationRecord) IsTerminal() bool {
	return n.State == NotificationStateSent || n.State == NotificationStateFailed
}
