package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic, the cache and the fee ledger.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	paymentsCollected *prometheus.CounterVec
	paymentAmount     *prometheus.CounterVec
	ledgerConflicts   *prometheus.CounterVec
	ledgerDrift       prometheus.Gauge
	ledgerVerify      prometheus.Observer

	cacheHitCount  uint64
	cacheMissCount uint64
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
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	paymentsCollected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payments_collected_total",
		Help: "Payments committed to the ledger",
	}, []string{"payment_mode"})

	paymentAmount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_payment_amount_total",
		Help: "Sum of collected payment amounts",
	}, []string{"payment_mode"})

	ledgerConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_concurrent_modifications_total",
		Help: "Balance compare-and-set attempts lost to a concurrent writer",
	}, []string{"operation"})

	ledgerDrift := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_drift_students",
		Help: "Students whose cached fees paid disagrees with the ledger at the last verification",
	})

	ledgerVerify := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ledger_verify_duration_seconds",
		Help:    "Duration of ledger verification runs",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		paymentsCollected, paymentAmount, ledgerConflicts, ledgerDrift, ledgerVerify, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		paymentsCollected: paymentsCollected,
		paymentAmount:     paymentAmount,
		ledgerConflicts:   ledgerConflicts,
		ledgerDrift:       ledgerDrift,
		ledgerVerify:      ledgerVerify,
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

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObservePayment counts a committed payment.
func (m *MetricsService) ObservePayment(mode string, amount float64) {
	if m == nil {
		return
	}
	m.paymentsCollected.WithLabelValues(mode).Inc()
	m.paymentAmount.WithLabelValues(mode).Add(amount)
}

// IncLedgerConflict counts a lost balance compare-and-set.
func (m *MetricsService) IncLedgerConflict(operation string) {
	if m == nil {
		return
	}
	m.ledgerConflicts.WithLabelValues(operation).Inc()
}

// ObserveLedgerVerify records the outcome of a verification run.
func (m *MetricsService) ObserveLedgerVerify(issues int, duration time.Duration) {
	if m == nil {
		return
	}
	m.ledgerDrift.Set(float64(issues))
	m.ledgerVerify.Observe(duration.Seconds())
}
