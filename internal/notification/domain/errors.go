package domain

import "errors"

var (
	// ErrEmptyAddress 联系方式清洗后为空
	ErrEmptyAddress = errors.New("empty contact address")
	// ErrInvalidAddressLength 联系方式长度不符合规范
	ErrInvalidAddressLength = errors.New("invalid contact address length")
	// ErrRecordNotFound 通知记录不存在
	ErrRecordNotFound = errors.New("notification record not found")
	// ErrNotRetryable 记录不处于可重试状态
	ErrNotRetryable = errors.New("notification record is not retryable")
	// ErrStateConflict 状态迁移冲突（并发修改或非法迁移）
	ErrStateConflict = errors.New("notification state conflict")
	// ErrCampaignInProgress 同一工资期已有批量派发在执行
	ErrCampaignInProgress = errors.New("notification campaign already in progress")
	// ErrEventNotFound 业务事件不存在
	ErrEventNotFound = errors.New("payroll event not found")
)

// 派发结果中的固定描述
const (
	DetailIncompleteConfiguration = "incomplete configuration"
	DetailTimeout                 = "timeout"
	DetailSimulated               = "simulated delivery"
	DetailUnknownFailure          = "unknown transport failure"
	DetailDelivered               = "delivered"
	DetailStalePending            = "stale pending: delivery outcome unknown"
)

// 批量明细中的跳过原因
const (
	ReasonNoUsableAddress = "no usable address"
	ReasonComposeFailed   = "message composition failed"
)
