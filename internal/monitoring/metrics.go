package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 上游提供商指标
	ProviderRequestsTotal   *prometheus.CounterVec
	ProviderRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesDeleted prometheus.Counter
	CreationAttempts prometheus.Histogram

	// 轮询指标
	PollTicks     *prometheus.CounterVec
	ActiveStreams prometheus.Gauge

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter
}

// NewMetrics 创建监控指标（promauto 自动注册到默认 registry）。
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailproxy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailproxy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		ProviderRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailproxy_provider_requests_total",
				Help: "Total number of upstream provider requests",
			},
			[]string{"operation", "status_class"},
		),

		ProviderRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mailproxy_provider_request_duration_seconds",
				Help:    "Upstream provider request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailproxy_mailboxes_created_total",
				Help: "Total number of mailboxes created through the proxy",
			},
		),

		MailboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailproxy_mailboxes_deleted_total",
				Help: "Total number of upstream account deletions requested",
			},
		),

		CreationAttempts: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mailproxy_creation_attempts",
				Help:    "Number of provider attempts per mailbox creation",
				Buckets: []float64{1, 2, 3, 4, 5, 6},
			},
		),

		PollTicks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailproxy_poll_ticks_total",
				Help: "Total number of inbox poll ticks",
			},
			[]string{"result"},
		),

		ActiveStreams: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "mailproxy_active_streams",
				Help: "Number of active websocket inbox streams",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mailproxy_errors_total",
				Help: "Total number of errors by type",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "mailproxy_panics_total",
				Help: "Total number of recovered panics",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordProviderRequest 记录一次上游请求
func (m *Metrics) RecordProviderRequest(operation string, status int, duration time.Duration) {
	m.ProviderRequestsTotal.WithLabelValues(operation, statusClass(status)).Inc()
	m.ProviderRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordMailboxCreated 记录邮箱创建及其消耗的尝试次数
func (m *Metrics) RecordMailboxCreated(attempts int) {
	m.MailboxesCreated.Inc()
	m.CreationAttempts.Observe(float64(attempts))
}

// RecordMailboxDeleted 记录上游账户删除
func (m *Metrics) RecordMailboxDeleted() {
	m.MailboxesDeleted.Inc()
}

// RecordPollTick 记录一次轮询 tick，result 为 "ok" 或 "error"
func (m *Metrics) RecordPollTick(result string) {
	m.PollTicks.WithLabelValues(result).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// HTTPHandler 返回 Prometheus 指标端点处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}

// statusClass 把状态码归入 2xx/4xx/5xx/transport 类别
func statusClass(status int) string {
	if status == 0 {
		return "transport"
	}
	return strconv.Itoa(status/100) + "xx"
}
