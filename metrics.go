package hrmAuth

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one client counter or histogram.
type MetricID uint16

const (
	// MetricLoginSuccess counts logins that produced a session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts rejected or failed logins.
	MetricLoginFailure
	// MetricRegisterSuccess counts accepted registrations.
	MetricRegisterSuccess
	// MetricRegisterFailure counts rejected registrations.
	MetricRegisterFailure
	// MetricRefreshSuccess counts refreshes that produced a new access token.
	MetricRefreshSuccess
	// MetricRefreshFailure counts refreshes that ended the session.
	MetricRefreshFailure
	// MetricRefreshCoalesced counts callers that shared another caller's in-flight refresh.
	MetricRefreshCoalesced
	// MetricRequestRetried counts pipeline calls reissued after a 401.
	MetricRequestRetried
	// MetricForcedLogout counts pipeline hard stops (logout plus redirect).
	MetricForcedLogout
	// MetricLogout counts every logout, forced or not.
	MetricLogout
	// MetricSessionRestored counts initializations that restored a live session.
	MetricSessionRestored
	// MetricSessionExpired counts sessions cleared because the access token had expired.
	MetricSessionExpired
	// MetricAPIError counts non-2xx and transport failures returned as APIError.
	MetricAPIError
	// MetricGuardAdmit counts guard evaluations that rendered the view.
	MetricGuardAdmit
	// MetricGuardLogin counts guard redirects to the login route.
	MetricGuardLogin
	// MetricGuardUnauthorized counts guard redirects to the unauthorized route.
	MetricGuardUnauthorized
	// MetricProfileRefreshFailure counts failed background profile refreshes.
	MetricProfileRefreshFailure
	// MetricRequestLatency is the pipeline latency histogram.
	MetricRequestLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus one latency histogram.
//
// Metrics instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of [Metrics].
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns a Metrics honoring cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram for id. Only MetricRequestLatency has one.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricRequestLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the latency buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricRequestLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricRequestLatency].buckets[i])
		}
		s.Histograms[MetricRequestLatency] = buckets
	}

	return s
}

// Request latency buckets, upper bounds in milliseconds; the last bucket is open.
func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 25:
		return 0
	case ms <= 50:
		return 1
	case ms <= 100:
		return 2
	case ms <= 250:
		return 3
	case ms <= 500:
		return 4
	case ms <= 1000:
		return 5
	case ms <= 2500:
		return 6
	default:
		return 7
	}
}
