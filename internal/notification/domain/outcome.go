package domain

// DispatchOutcome 单次发送结果，驱动记录状态迁移，不直接持久化
type DispatchOutcome struct {
	Success bool   `json:"success"`
	Detail  string `json:"detail"`
}

// Succeeded 成功结果
func Succeeded(detail string) DispatchOutcome {
	return DispatchOutcome{Success: true, Detail: detail}
}

// Failed 失败结果
func Failed(detail string) DispatchOutcome {
	return DispatchOutcome{Success: false, Detail: detail}
}

// RecipientOutcome 批量明细中单个收件人的结果
type RecipientOutcome string

const (
	RecipientSent    RecipientOutcome = "sent"
	RecipientFailed  RecipientOutcome = "failed"
	RecipientSkipped RecipientOutcome = "skipped"
)

// BatchDetail 批量派发单个收件人明细
type BatchDetail struct {
	RecipientLabel string           `json:"recipient_label"`
	EmployeeID     string           `json:"employee_id"`
	NotificationID string           `json:"notification_id,omitempty"`
	Outcome        RecipientOutcome `json:"outcome"`
	Reason         string           `json:"reason,omitempty"`
}

// BatchSummary 批量派发汇总，每次调用重新生成
type BatchSummary struct {
	PeriodID  string        `json:"period_id"`
	Total     int           `json:"total"`
	Sent      int           `json:"sent"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Cancelled bool          `json:"cancelled"`
	Details   []BatchDetail `json:"details"`
}

// Add 累加一条明细，保持 Total = Sent + Failed + Skipped
func (s *BatchSummary) Add(d BatchDetail) {
	switch d.Outcome {
	case RecipientSent:
		s.Sent++
	case RecipientFailed:
		s.Failed++
	default:
		d.Outcome = RecipientSkipped
		s.Skipped++
	}
	s.Total++
	s.Details = append(s.Details, d)
}

// StateTypeCount 按状态与类型分组的计数
type StateTypeCount struct {
	State NotificationState
	Type  NotificationType
	Count int64
}

// Stats 工资期通知统计
type Stats struct {
	PeriodID string                      `json:"period_id"`
	Total    int64                       `json:"total"`
	ByState  map[NotificationState]int64 `json:"by_state"`
	ByType   map[NotificationType]int64  `json:"by_type"`
}

// NewStats 由分组计数聚合统计
func NewStats(periodID string, rows []StateTypeCount) *Stats {
	s := &Stats{
		PeriodID: periodID,
		ByState: map[NotificationState]int64{
			NotificationStatePending: 0,
			NotificationStateSent:    0,
			NotificationStateFailed:  0,
		},
		ByType: make(map[NotificationType]int64),
	}
	for _, r := range rows {
		s.Total += r.Count
		s.ByState[r.State] += r.Count
		s.ByType[r.Type] += r.Count
	}
	return s
}
