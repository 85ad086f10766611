package hrmAuth

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricLoginSuccess)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricLoginSuccess)
		}
	})
}

func BenchmarkMetricsIncDisabledParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricLoginSuccess)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 12 * time.Millisecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricRequestLatency, d)
		}
	})
}

// BenchmarkRefreshCoalescedParallel drives concurrent refreshes through one client. Callers
// that join an in-flight refresh are counted as coalesced; calls/op shows the saving.
func BenchmarkRefreshCoalescedParallel(b *testing.B) {
	api := newFakeAPI(b)
	api.setRefreshDelay(time.Millisecond)
	c, _ := newTestClient(b, api, testClientOptions{})
	loginAlice(b, c)
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := c.RefreshAccessToken(context.Background()); err != nil {
				b.Error(err)
				return
			}
		}
	})
	b.StopTimer()

	coalesced := c.MetricsSnapshot().Counters[MetricRefreshCoalesced]
	b.ReportMetric(float64(api.refreshCalls.Load())/float64(b.N), "calls/op")
	b.ReportMetric(float64(coalesced)/float64(b.N), "coalesced/op")
}

func BenchmarkMetricsIncRefreshCoalescedParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricRefreshCoalesced)
		}
	})
	if got := m.Snapshot().Counters[MetricRefreshCoalesced]; got != uint64(b.N) {
		b.Fatalf("coalesced counter = %d, want %d", got, b.N)
	}
}

type packedBenchmarkMetrics struct {
	counters [metricIDCount]uint64
}

func (m *packedBenchmarkMetrics) Inc(id MetricID) {
	atomic.AddUint64(&m.counters[id], 1)
}

var mixedHotMetricIDs = [...]MetricID{
	MetricLoginSuccess,
	MetricLoginFailure,
	MetricRefreshSuccess,
	MetricRefreshCoalesced,
	MetricRequestRetried,
	MetricGuardAdmit,
	MetricGuardLogin,
	MetricAPIError,
}

func BenchmarkMetricsIncMixedParallelPaddedRoundRobin(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[idx])
			idx++
			if idx == len(mixedHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsIncMixedParallelPackedRoundRobin(b *testing.B) {
	m := &packedBenchmarkMetrics{}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		idx := 0
		for pb.Next() {
			m.Inc(mixedHotMetricIDs[idx])
			idx++
			if idx == len(mixedHotMetricIDs) {
				idx = 0
			}
		}
	})
}

func BenchmarkMetricsIncMixedParallelPaddedPseudoRandom(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var s uint64 = 0x9e3779b97f4a7c15
		for pb.Next() {
			// xorshift64*
			s ^= s >> 12
			s ^= s << 25
			s ^= s >> 27
			i := (s * 2685821657736338717) % uint64(len(mixedHotMetricIDs))
			m.Inc(mixedHotMetricIDs[i])
		}
	})
}

func BenchmarkMetricsIncMixedParallelPackedPseudoRandom(b *testing.B) {
	m := &packedBenchmarkMetrics{}
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		var s uint64 = 0x9e3779b97f4a7c15
		for pb.Next() {
			// xorshift64*
			s ^= s >> 12
			s ^= s << 25
			s ^= s >> 27
			i := (s * 2685821657736338717) % uint64(len(mixedHotMetricIDs))
			m.Inc(mixedHotMetricIDs[i])
		}
	})
}
