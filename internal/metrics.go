package internal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/telavant/tmfbridge"
)

// Metrics holds the process-wide counters and the rolling latency
// aggregate. Counters are monotonically non-decreasing for the process
// lifetime; they are never reset.
type Metrics struct {
	totalRequests      atomic.Uint64
	proxyErrors        atomic.Uint64
	validationFailures atomic.Uint64

	mu       sync.Mutex
	latCount int64
	latTotal int64
	latMax   int64
	latMin   int64
	latSeen  bool
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest counts one handled request and folds its latency into the
// aggregate.
func (m *Metrics) RecordRequest(d time.Duration) {
	m.totalRequests.Add(1)

	ms := d.Milliseconds()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.latCount++
	m.latTotal += ms
	if ms > m.latMax {
		m.latMax = ms
	}
	if !m.latSeen || ms < m.latMin {
		m.latMin = ms
		m.latSeen = true
	}
}

func (m *Metrics) IncProxyErrors() {
	m.proxyErrors.Add(1)
}

func (m *Metrics) IncValidationFailures() {
	m.validationFailures.Add(1)
}

// Snapshot returns a point-in-time read of the counters and latency
// aggregates, in milliseconds.
func (m *Metrics) Snapshot() tmfbridge.MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var avg int64
	if m.latCount > 0 {
		avg = m.latTotal / m.latCount
	}
	return tmfbridge.MetricsSnapshot{
		Counters: tmfbridge.CounterSnapshot{
			TotalRequests:      m.totalRequests.Load(),
			ProxyErrors:        m.proxyErrors.Load(),
			ValidationFailures: m.validationFailures.Load(),
		},
		Latency: tmfbridge.LatencySnapshot{
			Count: m.latCount,
			Avg:   avg,
			Max:   m.latMax,
			Min:   m.latMin,
		},
	}
}
