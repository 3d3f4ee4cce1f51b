package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDurationMs *prometheus.HistogramVec

	chunksStoredTotal    prometheus.Counter
	mergesTriggeredTotal prometheus.Counter
	projectsCompleted    prometheus.Counter

	transferBytesTotal  *prometheus.CounterVec
	transferErrorsTotal *prometheus.CounterVec

	eventsConnections prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "route", "status"})
	m.httpRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_ms",
		Help:    "HTTP request duration in milliseconds.",
		Buckets: prometheus.ExponentialBuckets(5, 2, 12),
	}, []string{"method", "route"})

	m.chunksStoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chunks_stored_total",
		Help: "Total number of upload chunks stored on the NAS.",
	})
	m.mergesTriggeredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "merges_triggered_total",
		Help: "Total number of merge triggers written.",
	})
	m.projectsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "projects_completed_total",
		Help: "Total number of projects migrated to the completed table.",
	})

	m.transferBytesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_bytes_total",
		Help: "Total number of bytes transferred.",
	}, []string{"direction"})
	m.transferErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transfer_errors_total",
		Help: "Total number of transfer errors.",
	}, []string{"op"})

	m.eventsConnections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "events_connections",
		Help: "Number of active realtime connections.",
	})

	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpRequestDurationMs,
		m.chunksStoredTotal,
		m.mergesTriggeredTotal,
		m.projectsCompleted,
		m.transferBytesTotal,
		m.transferErrorsTotal,
		m.eventsConnections,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	route = strings.TrimSpace(route)
	if route == "" {
		route = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(method, route, statusLabel).Inc()
	ms := float64(duration.Milliseconds())
	if ms < 0 {
		ms = 0
	}
	m.httpRequestDurationMs.WithLabelValues(method, route).Observe(ms)
}

func (m *Metrics) IncChunksStored() {
	if m == nil {
		return
	}
	m.chunksStoredTotal.Inc()
}

func (m *Metrics) IncMergesTriggered() {
	if m == nil {
		return
	}
	m.mergesTriggeredTotal.Inc()
}

func (m *Metrics) IncProjectsCompleted() {
	if m == nil {
		return
	}
	m.projectsCompleted.Inc()
}

func (m *Metrics) AddTransferBytes(direction string, bytes int64) {
	if m == nil {
		return
	}
	if direction == "" || bytes <= 0 {
		return
	}
	m.transferBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

func (m *Metrics) IncTransferErrors(op string) {
	if m == nil {
		return
	}
	op = strings.TrimSpace(op)
	if op == "" {
		op = "unknown"
	}
	m.transferErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) IncEventsConnections() {
	if m == nil {
		return
	}
	m.eventsConnections.Inc()
}

func (m *Metrics) DecEventsConnections() {
	if m == nil {
		return
	}
	m.eventsConnections.Dec()
}
