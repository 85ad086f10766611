package hrmAuth

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMetricsDisabledNoIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

func TestMetricsEnabledIncrement(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginSuccess)

	if got := m.Value(MetricLoginSuccess); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
}

func TestMetricsConcurrentIncrementSafe(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	const goroutines = 32
	const perG = 4000

	var wg sync.WaitGroup
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perG; j++ {
				m.Inc(MetricRefreshSuccess)
			}
		}()
	}
	wg.Wait()

	want := uint64(goroutines * perG)
	if got := m.Value(MetricRefreshSuccess); got != want {
		t.Fatalf("expected %d, got %d", want, got)
	}
}

func TestMetricsHistogramBucketCorrectness(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})

	observations := []time.Duration{
		10 * time.Millisecond,
		40 * time.Millisecond,
		100 * time.Millisecond,
		200 * time.Millisecond,
		500 * time.Millisecond,
		900 * time.Millisecond,
		2 * time.Second,
		5 * time.Second,
	}

	for _, d := range observations {
		m.Observe(MetricRequestLatency, d)
	}

	snap := m.Snapshot()
	buckets := snap.Histograms[MetricRequestLatency]
	if len(buckets) != 8 {
		t.Fatalf("expected 8 buckets, got %d", len(buckets))
	}

	for i, v := range buckets {
		if v != 1 {
			t.Fatalf("bucket %d expected 1, got %d", i, v)
		}
	}
}

func TestMetricsSnapshotConsistency(t *testing.T) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	m.Inc(MetricLoginSuccess)
	m.Inc(MetricLoginFailure)
	m.Inc(MetricLoginFailure)
	m.Observe(MetricRequestLatency, 2*time.Millisecond)

	snap := m.Snapshot()

	if snap.Counters[MetricLoginSuccess] != 1 {
		t.Fatalf("expected MetricLoginSuccess=1 got %d", snap.Counters[MetricLoginSuccess])
	}
	if snap.Counters[MetricLoginFailure] != 2 {
		t.Fatalf("expected MetricLoginFailure=2 got %d", snap.Counters[MetricLoginFailure])
	}
	if len(snap.Histograms[MetricRequestLatency]) != 8 {
		t.Fatalf("expected histogram length 8")
	}
	if snap.Histograms[MetricRequestLatency][0] != 1 {
		t.Fatalf("expected first histogram bucket=1 got %d", snap.Histograms[MetricRequestLatency][0])
	}
}

func TestMetricsDisabledSnapshotIsEmpty(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false, EnableLatencyHistograms: true})
	m.Inc(MetricLogout)
	m.Observe(MetricRequestLatency, time.Millisecond)

	snap := m.Snapshot()
	if len(snap.Counters) != 0 || len(snap.Histograms) != 0 {
		t.Fatalf("expected empty snapshot, got %+v", snap)
	}
	if m.LatencyEnabled() {
		t.Fatal("latency cannot be enabled while metrics are disabled")
	}
}

func TestMetricsObserveIgnoresCounterIDs(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true, EnableLatencyHistograms: true})
	m.Observe(MetricLoginSuccess, time.Millisecond)

	snap := m.Snapshot()
	if _, ok := snap.Histograms[MetricLoginSuccess]; ok {
		t.Fatal("counters have no histogram")
	}
	if _, ok := snap.Counters[MetricRequestLatency]; ok {
		t.Fatal("the latency histogram is not a counter")
	}
}

func TestClientCountsGuardOutcomes(t *testing.T) {
	c, _ := newTestClient(t, nil, testClientOptions{})
	c.RecordGuard(GuardAdmit)
	c.RecordGuard(GuardLogin)
	c.RecordGuard(GuardLogin)
	c.RecordGuard(GuardUnauthorized)

	snap := c.MetricsSnapshot()
	if snap.Counters[MetricGuardAdmit] != 1 || snap.Counters[MetricGuardLogin] != 2 || snap.Counters[MetricGuardUnauthorized] != 1 {
		t.Fatalf("unexpected guard counters %+v", snap.Counters)
	}
}

func TestClientRecordsRequestLatency(t *testing.T) {
	api := newFakeAPI(t)
	c, _ := newTestClient(t, api, testClientOptions{})
	_, _ = c.Get(context.Background(), "/bad")

	var total uint64
	for _, v := range c.MetricsSnapshot().Histograms[MetricRequestLatency] {
		total += v
	}
	if total != 1 {
		t.Fatalf("expected one latency observation, got %d", total)
	}
	if c.MetricsSnapshot().Counters[MetricAPIError] != 1 {
		t.Fatal("expected APIError counter")
	}
}
