package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Record(t *testing.T) {
	m := New("test", nil)

	m.RecordDispatch("SALARY_CUT", "sent", 20*time.Millisecond)
	m.RecordDispatch("SALARY_CUT", "sent", 30*time.Millisecond)
	m.RecordDispatch("SALARY_CUT", "failed", time.Millisecond)
	m.RecordBatch(false)

	assert.InDelta(t, 2, testutil.ToFloat64(m.NotificationsDispatched.WithLabelValues("SALARY_CUT", "sent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.NotificationsDispatched.WithLabelValues("SALARY_CUT", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.BatchesTotal.WithLabelValues("false")), 0)
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test", nil)
	m.RecordBatch(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "payroll_notification_batches_total")
}
