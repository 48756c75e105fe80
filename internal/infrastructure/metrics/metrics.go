package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/iho/gopayouts/internal/domain"
	"github.com/iho/gopayouts/internal/workerpool"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Batch metrics
	BatchesCompleted     *prometheus.CounterVec
	BatchDuration        prometheus.Histogram
	SettlementsProcessed prometheus.Counter
	SettlementErrors     prometheus.Counter
	FailedAccounts       prometheus.Counter
	AggregationFallbacks prometheus.Counter

	// Worker pool metrics
	PoolWorkers  prometheus.Gauge
	PoolIdle     prometheus.Gauge
	PoolInFlight prometheus.Gauge
	PoolQueued   prometheus.Gauge
	TaskPanics   prometheus.Counter

	// Vendor API metrics
	VendorRequests *prometheus.CounterVec
	VendorDuration *prometheus.HistogramVec

	// Cache metrics
	CacheLookups *prometheus.CounterVec
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors. The server registers every collector here and serves it on
// /metrics.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// NewWithRegisterer creates all Prometheus metrics and registers them with reg.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Batch metrics
		BatchesCompleted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopayouts_batches_completed_total",
				Help: "Total number of payout batches completed",
			},
			[]string{"sorted"},
		),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "gopayouts_batch_duration_seconds",
			Help:    "Duration of payout batches",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
		}),
		SettlementsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopayouts_settlements_processed_total",
			Help: "Total number of settlements reconciled",
		}),
		SettlementErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopayouts_settlement_errors_total",
			Help: "Total number of settlements carrying at least one error",
		}),
		FailedAccounts: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopayouts_account_fetch_failures_total",
			Help: "Total number of accounts whose payouts could not be fetched",
		}),
		AggregationFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopayouts_aggregation_fallbacks_total",
			Help: "Total number of batches returned unsorted after an aggregation failure",
		}),

		// Worker pool metrics
		PoolWorkers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gopayouts_pool_workers",
			Help: "Current number of pool workers",
		}),
		PoolIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gopayouts_pool_idle_workers",
			Help: "Current number of parked pool workers",
		}),
		PoolInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gopayouts_pool_tasks_in_flight",
			Help: "Tasks submitted and not yet finished",
		}),
		PoolQueued: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gopayouts_pool_tasks_queued",
			Help: "Tasks waiting for a free worker",
		}),
		TaskPanics: factory.NewCounter(prometheus.CounterOpts{
			Name: "gopayouts_pool_task_panics_total",
			Help: "Total number of recovered task panics",
		}),

		// Vendor API metrics
		VendorRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopayouts_vendor_requests_total",
				Help: "Total vendor API requests",
			},
			[]string{"endpoint", "status"},
		),
		VendorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gopayouts_vendor_request_duration_seconds",
				Help:    "Vendor API request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),

		// Cache metrics
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gopayouts_cache_lookups_total",
				Help: "Total transaction cache lookups",
			},
			[]string{"result"},
		),
	}
}

// PoolMetrics returns the instruments the worker pool updates.
func (m *Metrics) PoolMetrics() *workerpool.Metrics {
	return &workerpool.Metrics{
		Workers:  m.PoolWorkers,
		Idle:     m.PoolIdle,
		InFlight: m.PoolInFlight,
		Queued:   m.PoolQueued,
		Panics:   m.TaskPanics,
	}
}

// BatchCompleted implements usecase.BatchObserver.
func (m *Metrics) BatchCompleted(batch *domain.PayoutBatch, duration time.Duration) {
	sorted := "true"
	if !batch.Sorted {
		sorted = "false"
	}
	m.BatchesCompleted.WithLabelValues(sorted).Inc()
	m.BatchDuration.Observe(duration.Seconds())
	m.SettlementsProcessed.Add(float64(len(batch.Settlements)))
	m.SettlementErrors.Add(float64(batch.ErroredCount()))
}

// AccountFetchFailed implements usecase.BatchObserver.
func (m *Metrics) AccountFetchFailed() {
	m.FailedAccounts.Inc()
}

// AggregationFailed implements usecase.BatchObserver.
func (m *Metrics) AggregationFailed() {
	m.AggregationFallbacks.Inc()
}

// ObserveVendorRequest records one vendor API call.
func (m *Metrics) ObserveVendorRequest(endpoint, status string, duration time.Duration) {
	m.VendorRequests.WithLabelValues(endpoint, status).Inc()
	m.VendorDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// ObserveCacheLookup records a cache hit or miss.
func (m *Metrics) ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
