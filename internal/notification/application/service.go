package application

import (
	"context"
	"fmt"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// NotificationService 通知门面服务，整合派发引擎和查询。
type NotificationService struct {
	engine  *DispatchEngine
	query   *NotificationQuery
	payroll domain.PayrollSource
}

// NewNotificationService 构造函数。
func NewNotificationService(engine *DispatchEngine, query *NotificationQuery, payroll domain.PayrollSource) *NotificationService {
	return &NotificationService{
		engine:  engine,
		query:   query,
		payroll: payroll,
	}
}

// --- Engine (Writes) ---

// DispatchSalaryCut 派发扣薪通知
func (s *NotificationService) DispatchSalaryCut(ctx context.Context, cutID string) (*DispatchResult, error) {
	event, err := s.payroll.SalaryCutEvent(ctx, cutID)
	if err != nil {
		return nil, fmt.Errorf("load salary cut %s: %w", cutID, err)
	}
	return s.engine.DispatchSingle(ctx, event)
}

// DispatchEvent 派发任意业务事件
func (s *NotificationService) DispatchEvent(ctx context.Context, event domain.Event) (*DispatchResult, error) {
	return s.engine.DispatchSingle(ctx, event)
}

// DispatchPeriod 工资期批量派发
func (s *NotificationService) DispatchPeriod(ctx context.Context, periodID string) (*domain.BatchSummary, error) {
	return s.engine.DispatchBatch(ctx, periodID)
}

// Retry 重试失败通知
func (s *NotificationService) Retry(ctx context.Context, notificationID string) (*DispatchResult, error) {
	return s.engine.Retry(ctx, notificationID)
}

// --- Query (Reads) ---

// Stats 工资期统计
func (s *NotificationService) Stats(ctx context.Context, periodID string) (*domain.Stats, error) {
	return s.engine.Stats(ctx, periodID)
}

func (s *NotificationService) GetRecord(ctx context.Context, notificationID string) (*domain.NotificationRecord, error) {
	return s.query.GetRecord(ctx, notificationID)
}

func (s *NotificationService) ListPeriodRecords(ctx context.Context, periodID string, limit, offset int) ([]*domain.NotificationRecord, int64, error) {
	return s.query.ListPeriodRecords(ctx, periodID, limit, offset)
}
