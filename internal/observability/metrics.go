package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ResponseSize    *prometheus.HistogramVec
	HealthStatus    prometheus.Gauge
	CheckDuration   *prometheus.HistogramVec
	CheckFailures   *prometheus.CounterVec
	ActiveStreams   prometheus.Gauge
	StreamMessages  prometheus.Counter
	ConfigReloads   *prometheus.CounterVec

	registry *prometheus.Registry
	handler  http.Handler
}

func NewMetrics() *Metrics {
	return &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint", "status_code"},
		),
		ResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(64, 4, 6),
			},
			[]string{"method", "endpoint", "status_code"},
		),
		HealthStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "app_health_status",
				Help: "Result of the last health probe (1 = healthy, 0 = unhealthy)",
			},
		),
		CheckDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "readiness_check_duration_seconds",
				Help:    "Duration of individual readiness checks in seconds",
				Buckets: []float64{.01, .05, .1, .15, .25, .5, 1, 2.5},
			},
			[]string{"check"},
		),
		CheckFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "readiness_check_failures_total",
				Help: "Total number of failed readiness checks",
			},
			[]string{"check"},
		),
		ActiveStreams: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "heartbeat_stream_active_connections",
				Help: "Number of open heartbeat WebSocket streams",
			},
		),
		StreamMessages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "heartbeat_stream_messages_total",
				Help: "Total number of heartbeat messages pushed to stream clients",
			},
		),
		ConfigReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "config_reloads_total",
				Help: "Total number of configuration reload attempts",
			},
			[]string{"result"},
		),
	}
}

func (m *Metrics) RecordRequest(method, endpoint string, statusCode int, duration time.Duration, responseSize int64) {
	status := strconv.Itoa(statusCode)

	m.RequestCount.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(method, endpoint, status).Observe(duration.Seconds())
	m.ResponseSize.WithLabelValues(method, endpoint, status).Observe(float64(responseSize))
}

func (m *Metrics) SetHealthStatus(healthy bool) {
	if healthy {
		m.HealthStatus.Set(1)
	} else {
		m.HealthStatus.Set(0)
	}
}

// RecordCheck records the outcome of a single readiness check.
func (m *Metrics) RecordCheck(name string, duration time.Duration, err error) {
	m.CheckDuration.WithLabelValues(name).Observe(duration.Seconds())
	if err != nil {
		m.CheckFailures.WithLabelValues(name).Inc()
	}
}

func (m *Metrics) StreamOpened() { m.ActiveStreams.Inc() }

func (m *Metrics) StreamClosed() { m.ActiveStreams.Dec() }

func (m *Metrics) StreamMessageSent() { m.StreamMessages.Inc() }

// RecordReload counts a configuration reload, labelled "success" or "failure".
func (m *Metrics) RecordReload(err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	m.ConfigReloads.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	if m.handler != nil {
		return m.handler
	}
	return promhttp.Handler()
}

// Register registers every collector with a private registry and builds the
// scrape handler for it.
func (m *Metrics) Register() error {
	m.registry = prometheus.NewRegistry()

	collectors := []prometheus.Collector{
		m.RequestCount,
		m.RequestDuration,
		m.ResponseSize,
		m.HealthStatus,
		m.CheckDuration,
		m.CheckFailures,
		m.ActiveStreams,
		m.StreamMessages,
		m.ConfigReloads,
	}
	for _, c := range collectors {
		if err := m.registry.Register(c); err != nil {
			return err
		}
	}

	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})

	return nil
}
