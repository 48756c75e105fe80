package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/iho/gopayouts/internal/domain"
)

func TestNewRegistersMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()

	m := NewWithRegisterer(registry)

	if m.BatchesCompleted == nil || m.PoolWorkers == nil || m.VendorRequests == nil {
		t.Fatalf("expected key metrics to be initialized: %+v", m)
	}

	m.AccountFetchFailed()

	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	if len(metricFamilies) == 0 {
		t.Fatalf("expected registered metrics, got none")
	}
}

func TestBatchObserver(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	ok := &domain.Settlement{}
	failed := &domain.Settlement{}
	failed.AddError("po_1", "lookup failed")

	m.BatchCompleted(&domain.PayoutBatch{Settlements: []*domain.Settlement{ok, failed}, Sorted: true}, time.Second)
	m.BatchCompleted(&domain.PayoutBatch{Sorted: false}, time.Second)
	m.AggregationFailed()
	m.AccountFetchFailed()
	m.AccountFetchFailed()

	if got := testutil.ToFloat64(m.BatchesCompleted.WithLabelValues("true")); got != 1 {
		t.Fatalf("expected 1 sorted batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.BatchesCompleted.WithLabelValues("false")); got != 1 {
		t.Fatalf("expected 1 unsorted batch, got %v", got)
	}
	if got := testutil.ToFloat64(m.SettlementsProcessed); got != 2 {
		t.Fatalf("expected 2 settlements processed, got %v", got)
	}
	if got := testutil.ToFloat64(m.SettlementErrors); got != 1 {
		t.Fatalf("expected 1 settlement error, got %v", got)
	}
	if got := testutil.ToFloat64(m.FailedAccounts); got != 2 {
		t.Fatalf("expected 2 failed accounts, got %v", got)
	}
	if got := testutil.ToFloat64(m.AggregationFallbacks); got != 1 {
		t.Fatalf("expected 1 aggregation fallback, got %v", got)
	}
}

func TestPoolMetricsShareInstruments(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	pm := m.PoolMetrics()
	pm.Workers.Set(3)
	pm.Panics.Inc()

	if got := testutil.ToFloat64(m.PoolWorkers); got != 3 {
		t.Fatalf("expected pool workers gauge 3, got %v", got)
	}
	if got := testutil.ToFloat64(m.TaskPanics); got != 1 {
		t.Fatalf("expected 1 panic, got %v", got)
	}
}

func TestObserveVendorRequestAndCache(t *testing.T) {
	m := NewWithRegisterer(prometheus.NewRegistry())

	m.ObserveVendorRequest("payouts", "200", 10*time.Millisecond)
	m.ObserveCacheLookup(true)
	m.ObserveCacheLookup(false)
	m.ObserveCacheLookup(false)

	if got := testutil.ToFloat64(m.VendorRequests.WithLabelValues("payouts", "200")); got != 1 {
		t.Fatalf("expected 1 vendor request, got %v", got)
	}
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")); got != 2 {
		t.Fatalf("expected 2 cache misses, got %v", got)
	}
}

func TestNewRegistryIncludesRuntimeCollectors(t *testing.T) {
	reg := NewRegistry()
	NewWithRegisterer(reg)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	var sawGo bool
	for _, f := range families {
		if f.GetName() == "go_goroutines" {
			sawGo = true
		}
	}
	if !sawGo {
		t.Fatal("expected go runtime metrics to be registered")
	}
}
