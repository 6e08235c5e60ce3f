// Package mysql 提供了通知仓储接口的 GORM 实现。
package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/pkg/logging"
	"gorm.io/gorm"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// NotificationModel 通知记录数据库模型
type NotificationModel struct {
	gorm.Model
	NotificationID string     `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null"`
	EmployeeID     string     `gorm:"column:employee_id;type:varchar(32);index;not null"`
	PeriodID       *string    `gorm:"column:period_id;type:varchar(32);index"`
	Type           string     `gorm:"column:type;type:varchar(20);not null"`
	Body           string     `gorm:"column:body;type:text;not null"`
	Address        string     `gorm:"column:address;type:varchar(32);not null"`
	State          string     `gorm:"column:state;type:varchar(20);index;not null"`
	ErrorDetail    string     `gorm:"column:error_detail;type:text"`
	Attempts       int        `gorm:"column:attempts;not null;default:0"`
	SentAt         *time.Time `gorm:"column:sent_at"`
}

// TableName 指定表名
func (NotificationModel) TableName() string {
	return "notification_records"
}

// notificationRepositoryImpl 是 domain.NotificationRepository 接口的 GORM 实现。
type notificationRepositoryImpl struct {
	db *gorm.DB
}

// NewNotificationRepository 创建通知仓储实例
func NewNotificationRepository(db *gorm.DB) domain.NotificationRepository {
	return &notificationRepositoryImpl{
		db: db,
	}
}

// AutoMigrate 建表
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&NotificationModel{})
}

// Create 实现 domain.NotificationRepository.Create
func (r *notificationRepositoryImpl) Create(ctx context.Context, n *domain.NotificationRecord) error {
	m := toModel(n)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		logging.Error(ctx, "notification_repository.Create failed", "notification_id", n.NotificationID, "error", err)
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.Model = m.Model
	return nil
}

// Get 实现 domain.NotificationRepository.Get
func (r *notificationRepositoryImpl) Get(ctx context.Context, notificationID string) (*domain.NotificationRecord, error) {
	var m NotificationModel
	if err := r.db.WithContext(ctx).Where("notification_id = ?", notificationID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		logging.Error(ctx, "notification_repository.Get failed", "notification_id", notificationID, "error", err)
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return toDomain(&m), nil
}

// Transition 以 from 状态为条件写入新状态，条件不满足返回 ErrStateConflict
func (r *notificationRepositoryImpl) Transition(ctx context.Context, n *domain.NotificationRecord, from domain.NotificationState) error {
	now := time.Now()
	res := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("notification_id = ? AND state = ?", n.NotificationID, string(from)).
		Updates(map[string]any{
			"state":        string(n.State),
			"error_detail": n.ErrorDetail,
			"attempts":     n.Attempts,
			"sent_at":      n.SentAt,
			"updated_at":   now,
		})
	if res.Error != nil {
		logging.Error(ctx, "notification_repository.Transition failed", "notification_id", n.NotificationID, "error", res.Error)
		return fmt.Errorf("failed to update notification: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: notification %s is not %s", domain.ErrStateConflict, n.NotificationID, from)
	}
	n.UpdatedAt = now
	return nil
}

// ListByPeriod 实现 domain.NotificationRepository.ListByPeriod
func (r *notificationRepositoryImpl) ListByPeriod(ctx context.Context, periodID string, limit, offset int) ([]*domain.NotificationRecord, int64, error) {
	var ms []NotificationModel
	var total int64
	db := r.db.WithContext(ctx).Model(&NotificationModel{}).Where("period_id = ?", periodID)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := db.Order("id asc").Limit(limit).Offset(offset).Find(&ms).Error; err != nil {
		logging.Error(ctx, "notification_repository.ListByPeriod failed", "period_id", periodID, "error", err)
		return nil, 0, fmt.Errorf("failed to list notifications by period: %w", err)
	}
	return toDomainList(ms), total, nil
}

// ListFailed 返回最后更新时间不晚于 before 的失败记录
func (r *notificationRepositoryImpl) ListFailed(ctx context.Context, before time.Time, limit int) ([]*domain.NotificationRecord, error) {
	var ms []NotificationModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at <= ?", string(domain.NotificationStateFailed), before).
		Order("updated_at asc").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		logging.Error(ctx, "notification_repository.ListFailed failed", "error", err)
		return nil, fmt.Errorf("failed to list failed notifications: %w", err)
	}
	return toDomainList(ms), nil
}

// ListStalePending 返回最后更新时间不晚于 before 的 PENDING 记录
func (r *notificationRepositoryImpl) ListStalePending(ctx context.Context, before time.Time, limit int) ([]*domain.NotificationRecord, error) {
	var ms []NotificationModel
	err := r.db.WithContext(ctx).
		Where("state = ? AND updated_at <= ?", string(domain.NotificationStatePending), before).
		Order("updated_at asc").
		Limit(limit).
		Find(&ms).Error
	if err != nil {
		logging.Error(ctx, "notification_repository.ListStalePending failed", "error", err)
		return nil, fmt.Errorf("failed to list stale pending notifications: %w", err)
	}
	return toDomainList(ms), nil
}

type stateTypeRow struct {
	State string `gorm:"column:state"`
	Type  string `gorm:"column:type"`
	Count int64  `gorm:"column:cnt"`
}

// CountByPeriod 按状态与类型分组计数
func (r *notificationRepositoryImpl) CountByPeriod(ctx context.Context, periodID string) ([]domain.StateTypeCount, error) {
	var rows []stateTypeRow
	err := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Select("state, type, COUNT(*) AS cnt").
		Where("period_id = ?", periodID).
		Group("state, type").
		Scan(&rows).Error
	if err != nil {
		logging.Error(ctx, "notification_repository.CountByPeriod failed", "period_id", periodID, "error", err)
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	res := make([]domain.StateTypeCount, len(rows))
	for i, row := range rows {
		res[i] = domain.StateTypeCount{
			State: domain.NotificationState(row.State),
			Type:  domain.NotificationType(row.Type),
			Count: row.Count,
		}
	}
	return res, nil
}

func toModel(n *domain.NotificationRecord) *NotificationModel {
	return &NotificationModel{
		Model:          n.Model,
		NotificationID: n.NotificationID,
		EmployeeID:     n.EmployeeID,
		PeriodID:       n.PeriodID,
		Type:           string(n.Type),
		Body:           n.Body,
		Address:        n.Address,
		State:          string(n.State),
		ErrorDetail:    n.ErrorDetail,
		Attempts:       n.Attempts,
		SentAt:         n.SentAt,
	}
}

func toDomain(m *NotificationModel) *domain.NotificationRecord {
	return &domain.NotificationRecord{
		Model:          m.Model,
		NotificationID: m.NotificationID,
		EmployeeID:     m.EmployeeID,
		PeriodID:       m.PeriodID,
		Type:           domain.NotificationType(m.Type),
		Body:           m.Body,
		Address:        m.Address,
		State:          domain.NotificationState(m.State),
		ErrorDetail:    m.ErrorDetail,
		Attempts:       m.Attempts,
		SentAt:         m.SentAt,
	}
}

func toDomainList(ms []NotificationModel) []*domain.NotificationRecord {
	res := make([]*domain.NotificationRecord, len(ms))
	for i := range ms {
		res[i] = toDomain(&ms[i])
	}
	return res
}
