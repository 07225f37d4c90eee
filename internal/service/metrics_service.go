package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	conflictsFound  *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	sessionsCreated prometheus.Counter
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

	conflictsFound := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "scheduling_conflicts_total",
		Help: "Conflicts reported by the conflict detector, by severity",
	}, []string{"severity"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_hits_total",
		Help: "Calendar view cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_misses_total",
		Help: "Calendar view cache misses",
	})

	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Sessions persisted through batch creation",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, conflictsFound, cacheHits, cacheMisses, sessionsCreated, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		conflictsFound:  conflictsFound,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		sessionsCreated: sessionsCreated,
	}
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

// RecordConflict counts a detected conflict by severity.
func (m *MetricsService) RecordConflict(severity string) {
	if m == nil {
		return
	}
	m.conflictsFound.WithLabelValues(severity).Inc()
}

// RecordCacheLookup counts a calendar cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// RecordSessionsCreated counts persisted sessions.
func (m *MetricsService) RecordSessionsCreated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sessionsCreated.Add(float64(n))
}
