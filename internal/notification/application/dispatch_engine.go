package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/logging"
	"golang.org/x/sync/errgroup"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

const (
	defaultSendTimeout = 30 * time.Second
	// staleMargin 超时之外留给结果写入的余量
	staleMargin = time.Minute
)

// Recorder 派发指标记录
type Recorder interface {
	RecordDispatch(notificationType, outcome string, duration time.Duration)
	RecordBatch(cancelled bool)
}

// EngineConfig 派发引擎配置
type EngineConfig struct {
	// SendTimeout 单次网关调用超时
	SendTimeout time.Duration
	// Workers 批量派发并发数，实际速率仍受 Throttle 限制
	Workers int
}

// EngineDeps 派发引擎依赖
type EngineDeps struct {
	Repo      domain.NotificationRepository
	Transport domain.Transport
	Policy    domain.AddressPolicy
	Composer  domain.Composer
	Payroll   domain.PayrollSource
	Throttle  Throttle
	// 以下依赖可为空
	Publisher domain.EventPublisher
	Lock      domain.CampaignLock
	Recorder  Recorder
	Now       func() time.Time
	NewID     func() string
}

// DispatchResult 单条派发结果
type DispatchResult struct {
	Outcome domain.DispatchOutcome
	Skipped bool
	Reason  string
	Record  *domain.NotificationRecord
}

// DispatchEngine 通知派发引擎，独占通知记录的生命周期
type DispatchEngine struct {
	deps  EngineDeps
	cfg   EngineConfig
	locks *recordLocks
}

// NewDispatchEngine 构造函数。
func NewDispatchEngine(deps EngineDeps, cfg EngineConfig) *DispatchEngine {
	if deps.Throttle == nil {
		deps.Throttle = NoThrottle{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return fmt.Sprintf("%d", idgen.GenID()) }
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = defaultSendTimeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &DispatchEngine{deps: deps, cfg: cfg, locks: newRecordLocks()}
}

// DispatchSingle 派发单个业务事件。收件人无可用地址时跳过且不创建记录。
func (e *DispatchEngine) DispatchSingle(ctx context.Context, event domain.Event) (*DispatchResult, error) {
	address, body, reason := e.prepare(ctx, event)
	if reason != "" {
		return &DispatchResult{Outcome: domain.Failed(reason), Skipped: true, Reason: reason}, nil
	}
	return e.send(ctx, event, address, body)
}

// DispatchBatch 对工资期内所有工资单派发通知。单个收件人失败不会中断批次；
// ctx 取消后在当前收件人完成后停止，并返回截至取消点的汇总。
func (e *DispatchEngine) DispatchBatch(ctx context.Context, periodID string) (*domain.BatchSummary, error) {
	if e.deps.Lock != nil {
		release, err := e.deps.Lock.Acquire(ctx, periodID)
		if err != nil {
			return nil, err
		}
		defer release()
	}

	events, err := e.deps.Payroll.PeriodEvents(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("load period events: %w", err)
	}

	summary := &domain.BatchSummary{PeriodID: periodID, Details: make([]domain.BatchDetail, 0, len(events))}
	details := make([]domain.BatchDetail, len(events))
	processed := 0

	// 已发出的请求不随批次取消而中断
	sendCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(e.cfg.Workers)
	for i, event := range events {
		if ctx.Err() != nil {
			summary.Cancelled = true
			break
		}

		address, body, reason := e.prepare(ctx, event)
		if reason != "" {
			details[i] = domain.BatchDetail{
				RecipientLabel: recipientLabel(event),
				EmployeeID:     event.EmployeeID,
				Outcome:        domain.RecipientSkipped,
				Reason:         reason,
			}
			processed = i + 1
			continue
		}

		if err := e.deps.Throttle.Wait(ctx); err != nil {
			summary.Cancelled = true
			break
		}
		processed = i + 1
		g.Go(func() error {
			details[i] = e.batchSend(sendCtx, event, address, body)
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range details[:processed] {
		summary.Add(d)
	}

	if summary.Sent > 0 {
		if err := e.deps.Payroll.MarkNotificationsSent(sendCtx, periodID); err != nil {
			logging.Error(ctx, "failed to mark period notifications sent", "period_id", periodID, "error", err)
		}
	}

	if e.deps.Recorder != nil {
		e.deps.Recorder.RecordBatch(summary.Cancelled)
	}
	if e.deps.Publisher != nil {
		evt := domain.BatchCompletedEvent{
			PeriodID:   periodID,
			Total:      summary.Total,
			Sent:       summary.Sent,
			Failed:     summary.Failed,
			Skipped:    summary.Skipped,
			Cancelled:  summary.Cancelled,
			OccurredOn: e.deps.Now(),
		}
		if err := e.deps.Publisher.PublishBatchCompleted(sendCtx, evt); err != nil {
			logging.Warn(ctx, "failed to publish batch completed event", "period_id", periodID, "error", err)
		}
	}

	logging.Info(ctx, "notification campaign finished",
		"period_id", periodID,
		"total", summary.Total,
		"sent", summary.Sent,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cancelled", summary.Cancelled,
	)
	return summary, nil
}

// Retry 重试失败记录，沿用记录原有地址与正文。记录不存在返回 ErrRecordNotFound，
// 非 FAILED 状态返回 ErrNotRetryable 且不产生副作用。
func (e *DispatchEngine) Retry(ctx context.Context, notificationID string) (*DispatchResult, error) {
	unlock := e.locks.Lock(notificationID)
	defer unlock()

	record, err := e.deps.Repo.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if err := record.BeginRetry(); err != nil {
		return nil, fmt.Errorf("%w: notification %s is %s", err, notificationID, record.State)
	}
	if err := e.deps.Repo.Transition(ctx, record, domain.NotificationStateFailed); err != nil {
		return nil, fmt.Errorf("reset notification %s: %w", notificationID, err)
	}

	outcome := e.deliver(ctx, record)
	if err := e.complete(ctx, record, outcome, true); err != nil {
		return nil, err
	}
	return &DispatchResult{Outcome: outcome, Record: record}, nil
}

// RecoverStale 将超过 StaleAfter 仍为 PENDING 的记录标记为失败，使其重新进入重试流程。
// 记录已不再 PENDING 时返回 false。
func (e *DispatchEngine) RecoverStale(ctx context.Context, notificationID string) (bool, error) {
	unlock := e.locks.Lock(notificationID)
	defer unlock()

	record, err := e.deps.Repo.Get(ctx, notificationID)
	if err != nil {
		return false, err
	}
	if record.State != domain.NotificationStatePending || e.deps.Now().Sub(record.UpdatedAt) < e.StaleAfter() {
		return false, nil
	}
	if err := record.Apply(domain.Failed(domain.DetailStalePending), e.deps.Now()); err != nil {
		return false, err
	}
	if err := e.deps.Repo.Transition(context.WithoutCancel(ctx), record, domain.NotificationStatePending); err != nil {
		if errors.Is(err, domain.ErrStateConflict) {
			return false, nil
		}
		return false, fmt.Errorf("recover notification %s: %w", notificationID, err)
	}
	logging.Warn(ctx, "stale pending notification marked failed",
		"notification_id", record.NotificationID,
		"employee_id", record.EmployeeID,
		"attempts", record.Attempts,
	)
	return true, nil
}

// StaleAfter PENDING 记录超过该时长未更新即视为发送中断
func (e *DispatchEngine) StaleAfter() time.Duration {
	return e.cfg.SendTimeout + staleMargin
}

// Stats 工资期通知统计，只读
func (e *DispatchEngine) Stats(ctx context.Context, periodID string) (*domain.Stats, error) {
	rows, err := e.deps.Repo.CountByPeriod(ctx, periodID)
	if err != nil {
		return nil, fmt.Errorf("count notifications: %w", err)
	}
	return domain.NewStats(periodID, rows), nil
}

// prepare 规范化地址并生成正文，返回非空 reason 表示跳过
func (e *DispatchEngine) prepare(ctx context.Context, event domain.Event) (address, body, reason string) {
	address, err := e.deps.Policy.Normalize(event.RawAddress)
	if err != nil {
		logging.Info(ctx, "recipient skipped", "employee_id", event.EmployeeID, "type", event.Type, "error", err)
		return "", "", domain.ReasonNoUsableAddress
	}
	body, err = e.deps.Composer.Compose(ctx, event)
	if err != nil {
		logging.Warn(ctx, "recipient skipped", "employee_id", event.EmployeeID, "type", event.Type, "error", err)
		return "", "", domain.ReasonComposeFailed
	}
	return address, body, ""
}

func (e *DispatchEngine) send(ctx context.Context, event domain.Event, address, body string) (*DispatchResult, error) {
	record := domain.NewNotificationRecord(e.deps.NewID(), event, address, body)

	unlock := e.locks.Lock(record.NotificationID)
	defer unlock()

	if err := e.deps.Repo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("create notification record: %w", err)
	}

	outcome := e.deliver(ctx, record)
	if err := e.complete(ctx, record, outcome, false); err != nil {
		return nil, err
	}
	return &DispatchResult{Outcome: outcome, Record: record}, nil
}

func (e *DispatchEngine) batchSend(ctx context.Context, event domain.Event, address, body string) domain.BatchDetail {
	detail := domain.BatchDetail{
		RecipientLabel: recipientLabel(event),
		EmployeeID:     event.EmployeeID,
	}
	res, err := e.send(ctx, event, address, body)
	if err != nil {
		logging.Error(ctx, "notification dispatch error", "employee_id", event.EmployeeID, "error", err)
		detail.Outcome = domain.RecipientFailed
		detail.Reason = err.Error()
		return detail
	}
	detail.NotificationID = res.Record.NotificationID
	if res.Outcome.Success {
		detail.Outcome = domain.RecipientSent
	} else {
		detail.Outcome = domain.RecipientFailed
		detail.Reason = res.Outcome.Detail
	}
	return detail
}

// deliver 检查配置并调用网关
func (e *DispatchEngine) deliver(ctx context.Context, record *domain.NotificationRecord) domain.DispatchOutcome {
	if !e.deps.Transport.IsConfigured() {
		return domain.Failed(domain.DetailIncompleteConfiguration)
	}

	start := time.Now()
	outcome := e.callTransport(ctx, record.Address, record.Body)
	if e.deps.Recorder != nil {
		result := domain.RecipientSent
		if !outcome.Success {
			result = domain.RecipientFailed
		}
		e.deps.Recorder.RecordDispatch(string(record.Type), string(result), time.Since(start))
	}
	return outcome
}

// callTransport 限时调用网关，超时或异常均转换为失败结果
func (e *DispatchEngine) callTransport(ctx context.Context, address, body string) domain.DispatchOutcome {
	sendCtx, cancel := context.WithTimeout(ctx, e.cfg.SendTimeout)
	defer cancel()

	done := make(chan domain.DispatchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.Failed(fmt.Sprintf("transport panic: %v", r))
			}
		}()
		done <- e.deps.Transport.Send(sendCtx, address, body)
	}()

	select {
	case outcome := <-done:
		return outcome
	case <-sendCtx.Done():
		if errors.Is(sendCtx.Err(), context.DeadlineExceeded) {
			return domain.Failed(domain.DetailTimeout)
		}
		return domain.Failed(sendCtx.Err().Error())
	}
}

// complete 结束本轮发送并持久化，写入不随调用方取消而中断
func (e *DispatchEngine) complete(ctx context.Context, record *domain.NotificationRecord, outcome domain.DispatchOutcome, retry bool) error {
	storeCtx := context.WithoutCancel(ctx)
	if err := record.Apply(outcome, e.deps.Now()); err != nil {
		return fmt.Errorf("complete notification %s: %w", record.NotificationID, err)
	}
	if err := e.deps.Repo.Transition(storeCtx, record, domain.NotificationStatePending); err != nil {
		return fmt.Errorf("complete notification %s: %w", record.NotificationID, err)
	}

	if outcome.Success {
		logging.Info(ctx, "notification sent",
			"notification_id", record.NotificationID,
			"employee_id", record.EmployeeID,
			"type", record.Type,
			"retry", retry,
		)
	} else {
		logging.Warn(ctx, "notification failed",
			"notification_id", record.NotificationID,
			"employee_id", record.EmployeeID,
			"type", record.Type,
			"detail", record.ErrorDetail,
			"retry", retry,
		)
	}

	if e.deps.Publisher != nil {
		evt := domain.NewDispatchedEvent(record, retry, e.deps.Now())
		if err := e.deps.Publisher.PublishNotificationDispatched(storeCtx, evt); err != nil {
			logging.Warn(ctx, "failed to publish notification event", "notification_id", record.NotificationID, "error", err)
		}
	}
	return nil
}

func recipientLabel(event domain.Event) string {
	if event.RecipientLabel != "" {
		return event.RecipientLabel
	}
	return event.EmployeeID
}
