// Package payroll 工资系统数据的只读适配器
package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/logging"
	"gorm.io/gorm"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

// EmployeeModel 员工
type EmployeeModel struct {
	gorm.Model
	EmployeeID string `gorm:"column:employee_id;type:varchar(32);uniqueIndex;not null"`
	FullName   string `gorm:"column:full_name;type:varchar(100);not null"`
	Phone      string `gorm:"column:phone;type:varchar(32)"`
}

// TableName 指定表名
func (EmployeeModel) TableName() string { return "employees" }

// PeriodModel 工资期
type PeriodModel struct {
	gorm.Model
	PeriodID          string     `gorm:"column:period_id;type:varchar(32);uniqueIndex;not null"`
	Label             string     `gorm:"column:label;type:varchar(50);not null"`
	NotificationsSent bool       `gorm:"column:notifications_sent;not null;default:false"`
	NotifiedAt        *time.Time `gorm:"column:notified_at"`
}

// TableName 指定表名
func (PeriodModel) TableName() string { return "payroll_periods" }

// PayslipModel 工资单
type PayslipModel struct {
	gorm.Model
	PayslipID  string          `gorm:"column:payslip_id;type:varchar(32);uniqueIndex;not null"`
	PeriodID   string          `gorm:"column:period_id;type:varchar(32);index;not null"`
	EmployeeID string          `gorm:"column:employee_id;type:varchar(32);index;not null"`
	NetAmount  decimal.Decimal `gorm:"column:net_amount;type:decimal(20,2);not null"`
}

// TableName 指定表名
func (PayslipModel) TableName() string { return "payslips" }

// SalaryCutModel 扣薪记录
type SalaryCutModel struct {
	gorm.Model
	CutID      string          `gorm:"column:cut_id;type:varchar(32);uniqueIndex;not null"`
	EmployeeID string          `gorm:"column:employee_id;type:varchar(32);index;not null"`
	Amount     decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null"`
	Reason     string          `gorm:"column:reason;type:varchar(255)"`
}

// TableName 指定表名
func (SalaryCutModel) TableName() string { return "salary_cuts" }

// AutoMigrate 建表，仅用于开发与测试环境
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EmployeeModel{}, &PeriodModel{}, &PayslipModel{}, &SalaryCutModel{})
}

// GormSource 基于 GORM 的 domain.PayrollSource
type GormSource struct {
	db *gorm.DB
}

// NewGormSource 创建适配器
func NewGormSource(db *gorm.DB) *GormSource {
	return &GormSource{db: db}
}

// SalaryCutEvent 实现 domain.PayrollSource
func (s *GormSource) SalaryCutEvent(ctx context.Context, cutID string) (domain.Event, error) {
	var cut SalaryCutModel
	if err := s.db.WithContext(ctx).Where("cut_id = ?", cutID).First(&cut).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Event{}, fmt.Errorf("%w: salary cut %s", domain.ErrEventNotFound, cutID)
		}
		return domain.Event{}, fmt.Errorf("failed to get salary cut: %w", err)
	}

	employees, err := s.employees(ctx, []string{cut.EmployeeID})
	if err != nil {
		return domain.Event{}, err
	}
	emp, ok := employees[cut.EmployeeID]
	if !ok {
		return domain.Event{}, fmt.Errorf("%w: employee %s", domain.ErrEventNotFound, cut.EmployeeID)
	}

	return domain.Event{
		Type:           domain.NotificationTypeSalaryCut,
		EmployeeID:     emp.EmployeeID,
		RecipientLabel: emp.FullName,
		RawAddress:     emp.Phone,
		SourceID:       cut.CutID,
		Amount:         cut.Amount,
		Reason:         cut.Reason,
	}, nil
}

// PeriodEvents 实现 domain.PayrollSource，按工资单创建顺序返回
func (s *GormSource) PeriodEvents(ctx context.Context, periodID string) ([]domain.Event, error) {
	var period PeriodModel
	if err := s.db.WithContext(ctx).Where("period_id = ?", periodID).First(&period).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: period %s", domain.ErrEventNotFound, periodID)
		}
		return nil, fmt.Errorf("failed to get period: %w", err)
	}

	var slips []PayslipModel
	if err := s.db.WithContext(ctx).Where("period_id = ?", periodID).Order("id asc").Find(&slips).Error; err != nil {
		return nil, fmt.Errorf("failed to list payslips: %w", err)
	}
	if len(slips) == 0 {
		return []domain.Event{}, nil
	}

	ids := make([]string, 0, len(slips))
	for _, p := range slips {
		ids = append(ids, p.EmployeeID)
	}
	employees, err := s.employees(ctx, ids)
	if err != nil {
		return nil, err
	}

	events := make([]domain.Event, 0, len(slips))
	for _, p := range slips {
		pid := period.PeriodID
		ev := domain.Event{
			Type:       domain.NotificationTypeSalaryAvailable,
			EmployeeID: p.EmployeeID,
			PeriodID:   &pid,
			SourceID:   p.PayslipID,
			Amount:     p.NetAmount,
			Period:     period.Label,
		}
		// 员工档案缺失时地址为空，由派发引擎跳过
		if emp, ok := employees[p.EmployeeID]; ok {
			ev.RecipientLabel = emp.FullName
			ev.RawAddress = emp.Phone
		} else {
			logging.Warn(ctx, "payslip employee not found", "payslip_id", p.PayslipID, "employee_id", p.EmployeeID)
		}
		events = append(events, ev)
	}
	return events, nil
}

// MarkNotificationsSent 实现 domain.PayrollSource
func (s *GormSource) MarkNotificationsSent(ctx context.Context, periodID string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).Model(&PeriodModel{}).
		Where("period_id = ?", periodID).
		Updates(map[string]any{"notifications_sent": true, "notified_at": now})
	if res.Error != nil {
		return fmt.Errorf("failed to mark period notified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: period %s", domain.ErrEventNotFound, periodID)
	}
	return nil
}

func (s *GormSource) employees(ctx context.Context, ids []string) (map[string]EmployeeModel, error) {
	var ms []EmployeeModel
	if err := s.db.WithContext(ctx).Where("employee_id IN ?", ids).Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	res := make(map[string]EmployeeModel, len(ms))
	for _, m := range ms {
		res[m.EmployeeID] = m
	}
	return res, nil
}
