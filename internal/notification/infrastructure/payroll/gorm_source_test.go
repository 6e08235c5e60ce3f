package payroll

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/wyfcoding/payrollnotify/internal/notification/domain"
)

func newTestSource(t *testing.T) (*GormSource, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	require.NoError(t, db.Create(&[]EmployeeModel{
		{EmployeeID: "E1", FullName: "Amina Idrissi", Phone: "0655000000"},
		{EmployeeID: "E2", FullName: "Youssef Alaoui", Phone: ""},
	}).Error)
	require.NoError(t, db.Create(&PeriodModel{PeriodID: "P1", Label: "2026-09"}).Error)
	require.NoError(t, db.Create(&[]PayslipModel{
		{PayslipID: "S1", PeriodID: "P1", EmployeeID: "E1", NetAmount: decimal.RequireFromString("8450.50")},
		{PayslipID: "S2", PeriodID: "P1", EmployeeID: "E2", NetAmount: decimal.RequireFromString("7200.00")},
		{PayslipID: "S3", PeriodID: "P1", EmployeeID: "E9", NetAmount: decimal.RequireFromString("100")},
	}).Error)
	require.NoError(t, db.Create(&SalaryCutModel{CutID: "C1", EmployeeID: "E1", Amount: decimal.RequireFromString("300.25"), Reason: "unpaid leave"}).Error)
	return NewGormSource(db), db
}

func TestGormSource_PeriodEvents(t *testing.T) {
	src, _ := newTestSource(t)

	events, err := src.PeriodEvents(context.Background(), "P1")
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, domain.NotificationTypeSalaryAvailable, events[0].Type)
	assert.Equal(t, "Amina Idrissi", events[0].RecipientLabel)
	assert.Equal(t, "0655000000", events[0].RawAddress)
	assert.Equal(t, "2026-09", events[0].Period)
	assert.True(t, decimal.RequireFromString("8450.50").Equal(events[0].Amount))
	require.NotNil(t, events[0].PeriodID)
	assert.Equal(t, "P1", *events[0].PeriodID)

	assert.Empty(t, events[1].RawAddress)
	assert.Empty(t, events[2].RawAddress)

	_, err = src.PeriodEvents(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestGormSource_SalaryCutEvent(t *testing.T) {
	src, _ := newTestSource(t)

	ev, err := src.SalaryCutEvent(context.Background(), "C1")
	require.NoError(t, err)
	assert.Equal(t, domain.NotificationTypeSalaryCut, ev.Type)
	assert.Equal(t, "unpaid leave", ev.Reason)
	assert.Equal(t, "300.25", ev.Amount.StringFixed(2))
	assert.Nil(t, ev.PeriodID)

	_, err = src.SalaryCutEvent(context.Background(), "C404")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestGormSource_MarkNotificationsSent(t *testing.T) {
	src, db := newTestSource(t)

	require.NoError(t, src.MarkNotificationsSent(context.Background(), "P1"))
	var p PeriodModel
	require.NoError(t, db.Where("period_id = ?", "P1").First(&p).Error)
	assert.True(t, p.NotificationsSent)
	assert.NotNil(t, p.NotifiedAt)

	assert.ErrorIs(t, src.MarkNotificationsSent(context.Background(), "P404"), domain.ErrEventNotFound)
}
