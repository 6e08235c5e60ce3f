// Package metrics 提供通知服务的 Prometheus 指标
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP 请求耗时
	HTTPRequestDuration *prometheus.HistogramVec

	// 通知发送结果计数
	NotificationsDispatched *prometheus.CounterVec
	// 网关调用耗时
	SendDuration *prometheus.HistogramVec
	// 批量派发次数
	BatchesTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New 创建并注册指标。reg 为空时使用独立的 Registry。
func New(serviceName string, reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "payroll",
			Name:        "http_requests_total",
			Help:        "Total HTTP requests",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "payroll",
			Name:        "http_request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: prometheus.Labels{"service": serviceName},
			Buckets:     prometheus.DefBuckets,
		}, []string{"method", "path"}),
		NotificationsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "payroll",
			Name:        "notifications_dispatched_total",
			Help:        "Notification send attempts by type and outcome",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"type", "outcome"}),
		SendDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   "payroll",
			Name:        "notification_send_duration_seconds",
			Help:        "Gateway call duration in seconds",
			ConstLabels: prometheus.Labels{"service": serviceName},
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"type"}),
		BatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   "payroll",
			Name:        "notification_batches_total",
			Help:        "Batch campaigns by completion",
			ConstLabels: prometheus.Labels{"service": serviceName},
		}, []string{"cancelled"}),
		gatherer: reg,
	}
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.NotificationsDispatched,
		m.SendDuration,
		m.BatchesTotal,
		collectors.NewGoCollector(),
	)
	return m
}

// RecordDispatch 记录一次网关调用
func (m *Metrics) RecordDispatch(notificationType, outcome string, duration time.Duration) {
	m.NotificationsDispatched.WithLabelValues(notificationType, outcome).Inc()
	m.SendDuration.WithLabelValues(notificationType).Observe(duration.Seconds())
}

// RecordBatch 记录一次批量派发
func (m *Metrics) RecordBatch(cancelled bool) {
	m.BatchesTotal.WithLabelValues(strconv.FormatBool(cancelled)).Inc()
}

// RecordHTTPRequest 记录 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Handler 指标暴露
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
