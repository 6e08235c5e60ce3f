package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecord() *NotificationRecord {
	period := "2026-09"
	return NewNotificationRecord("N1", Event{
		Type:       NotificationTypeSalaryAvailable,
		EmployeeID: "E1",
		PeriodID:   &period,
	}, "212655000000", "hello")
}

func TestNotificationRecord_Lifecycle(t *testing.T) {
	r := newTestRecord()
	assert.Equal(t, NotificationStatePending, r.State)
	assert.False(t, r.CanRetry())

	require.NoError(t, r.Apply(Failed("HTTP 500"), time.Now()))
	assert.Equal(t, NotificationStateFailed, r.State)
	assert.Equal(t, "HTTP 500", r.ErrorDetail)
	assert.Nil(t, r.SentAt)
	assert.True(t, r.CanRetry())

	require.NoError(t, r.BeginRetry())
	assert.Equal(t, NotificationStatePending, r.State)
	assert.Empty(t, r.ErrorDetail)

	now := time.Now()
	require.NoError(t, r.Apply(Succeeded(DetailDelivered), now))
	assert.Equal(t, NotificationStateSent, r.State)
	require.NotNil(t, r.SentAt)
	assert.Equal(t, now, *r.SentAt)
	assert.Empty(t, r.ErrorDetail)
	assert.Equal(t, 2, r.Attempts)
}

func TestNotificationRecord_SentIsNotRetryable(t *testing.T) {
	r := newTestRecord()
	require.NoError(t, r.MarkSent(time.Now()))

	assert.ErrorIs(t, r.BeginRetry(), ErrNotRetryable)
	assert.Equal(t, NotificationStateSent, r.State)
	assert.ErrorIs(t, r.MarkFailed("late"), ErrStateConflict)
}

func TestNotificationRecord_FailedAlwaysHasDetail(t *testing.T) {
	r := newTestRecord()
	require.NoError(t, r.MarkFailed(""))
	assert.Equal(t, DetailUnknownFailure, r.ErrorDetail)
}

func TestBatchSummary_TotalsAlwaysBalance(t *testing.T) {
	var s BatchSummary
	assert.Equal(t, s.Sent+s.Failed+s.Skipped, s.Total)

	s.Add(BatchDetail{Outcome: RecipientSent})
	s.Add(BatchDetail{Outcome: RecipientFailed})
	s.Add(BatchDetail{Outcome: RecipientSkipped, Reason: ReasonNoUsableAddress})
	s.Add(BatchDetail{Outcome: "bogus"})

	assert.Equal(t, 4, s.Total)
	assert.Equal(t, s.Sent+s.Failed+s.Skipped, s.Total)
	assert.Equal(t, 2, s.Skipped)
	assert.Len(t, s.Details, 4)
	assert.Equal(t, RecipientSkipped, s.Details[3].Outcome)
}

func TestNewStats(t *testing.T) {
	s := NewStats("P1", []StateTypeCount{
		{State: NotificationStateSent, Type: NotificationTypePayslip, Count: 2},
		{State: NotificationStateFailed, Type: NotificationTypePayslip, Count: 1},
		{State: NotificationStateSent, Type: NotificationTypeSalaryCut, Count: 1},
	})

	assert.EqualValues(t, 4, s.Total)
	assert.EqualValues(t, 3, s.ByState[NotificationStateSent])
	assert.EqualValues(t, 0, s.ByState[NotificationStatePending])

	var byType int64
	for _, c := range s.ByType {
		byType += c
	}
	assert.Equal(t, s.Total, byType)
}
