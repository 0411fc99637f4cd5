package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the API and its reconciliation pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	materialized    *prometheus.CounterVec
	seatAdjustments *prometheus.CounterVec
	outboxTasks     *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Webhook deliveries by provider and outcome",
	}, []string{"provider", "outcome"})

	materialized := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollments_materialized_total",
		Help: "Enrollment materialization attempts by source and outcome",
	}, []string{"source", "outcome"})

	seatAdjustments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "seat_adjustments_total",
		Help: "Seat ledger operations by kind and result",
	}, []string{"op", "result"})

	outboxTasks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_tasks_total",
		Help: "Compensating tasks by type and result",
	}, []string{"type", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheLookups,
		webhookEvents, materialized, seatAdjustments, outboxTasks, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheLookups:    cacheLookups,
		webhookEvents:   webhookEvents,
		materialized:    materialized,
		seatAdjustments: seatAdjustments,
		outboxTasks:     outboxTasks,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordWebhook counts a webhook delivery.
func (m *MetricsService) RecordWebhook(provider, outcome string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(provider, outcome).Inc()
}

// RecordMaterialized counts a materializer outcome.
func (m *MetricsService) RecordMaterialized(source, outcome string) {
	if m == nil {
		return
	}
	m.materialized.WithLabelValues(source, outcome).Inc()
}

// RecordSeatAdjustment counts a seat ledger call.
func (m *MetricsService) RecordSeatAdjustment(op, result string) {
	if m == nil {
		return
	}
	m.seatAdjustments.WithLabelValues(op, result).Inc()
}

// RecordOutboxTask counts a compensating task result. Its signature matches jobs.Observer.
func (m *MetricsService) RecordOutboxTask(taskType, result string) {
	if m == nil {
		return
	}
	m.outboxTasks.WithLabelValues(taskType, result).Inc()
}
