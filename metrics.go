package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter or histogram.
type MetricID uint16

const (
	// MetricRateLimitAllowed counts admitted limiter checks, including fail-open ones.
	MetricRateLimitAllowed MetricID = iota
	// MetricRateLimitDenied counts quota rejections.
	MetricRateLimitDenied
	// MetricRateLimitStoreFailure counts store errors that were failed open.
	MetricRateLimitStoreFailure
	MetricAuditRecorded
	// MetricAuditSkipped counts Record calls without a principal.
	MetricAuditSkipped
	MetricAuditSinkFailure
	MetricSecureActionSuccess
	MetricSecureActionFailure
	MetricMFAEnrollStarted
	MetricMFAEnrollFailed
	MetricMFAEnrollVerified
	MetricMFAEnrollCancelled
	MetricMFAVerifySuccess
	MetricMFAVerifyFailure
	MetricMFAUnenroll
	// MetricSecureActionLatency is a histogram of wrapped operation latency.
	MetricSecureActionLatency
	metricIDCount
)

const cacheLineSize = 64

// latencyBounds are the inclusive upper bounds of the secure action latency buckets;
// one more bucket catches everything slower.
var latencyBounds = [...]time.Duration{
	5 * time.Millisecond,
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	250 * time.Millisecond,
	500 * time.Millisecond,
}

const histBucketCount = len(latencyBounds) + 1

type paddedCounter struct {
	atomic.Uint64
	_ [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters plus the secure action latency
// histogram. A nil or disabled *Metrics ignores every update.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	latency       [histBucketCount]paddedCounter
}

// MetricsSnapshot is a point-in-time copy of every counter and, when latency tracking
// is on, the histogram buckets keyed by MetricSecureActionLatency.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to a counter. The histogram id is not a counter and is ignored.
func (m *Metrics) Inc(id MetricID) {
	if !m.Enabled() || id >= metricIDCount || id == MetricSecureActionLatency {
		return
	}
	m.counters[id].Add(1)
}

// Observe records d for MetricSecureActionLatency; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if !m.LatencyEnabled() || id != MetricSecureActionLatency {
		return
	}
	m.latency[latencyBucket(d)].Add(1)
}

func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return m.counters[id].Load()
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	s := MetricsSnapshot{
		Counters:   map[MetricID]uint64{},
		Histograms: map[MetricID][]uint64{},
	}
	if !m.Enabled() {
		return s
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id != MetricSecureActionLatency {
			s.Counters[id] = m.counters[id].Load()
		}
	}
	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range m.latency {
			buckets[i] = m.latency[i].Load()
		}
		s.Histograms[MetricSecureActionLatency] = buckets
	}
	return s
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d <= bound {
			return i
		}
	}
	return len(latencyBounds)
}
