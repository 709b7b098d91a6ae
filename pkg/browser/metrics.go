package browser

import (
	"sync/atomic"

	"github.com/odvcencio/snaplist/pkg/observability"
)

// Metrics tracks browser runtime counters. A nil *Metrics is valid and only
// feeds the Prometheus collectors.
type Metrics struct {
	SessionsCreated atomic.Int64
	SessionsClosed  atomic.Int64
	ActiveSessions  atomic.Int64

	PrimitiveCount   atomic.Int64
	PrimitiveFailure atomic.Int64
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordSessionCreated increments the creation counters.
func (m *Metrics) RecordSessionCreated() {
	observability.SessionsActive.Inc()
	if m == nil {
		return
	}
	m.SessionsCreated.Add(1)
	m.ActiveSessions.Add(1)
}

// RecordSessionClosed increments the close counters.
func (m *Metrics) RecordSessionClosed() {
	observability.SessionsActive.Dec()
	if m == nil {
		return
	}
	m.SessionsClosed.Add(1)
	m.ActiveSessions.Add(-1)
}

// RecordPrimitive counts one primitive call and passes err through.
func (m *Metrics) RecordPrimitive(primitive string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = string(KindOf(err))
	}
	observability.BrowserPrimitives.WithLabelValues(primitive, outcome).Inc()
	if m == nil {
		return err
	}
	m.PrimitiveCount.Add(1)
	if err != nil {
		m.PrimitiveFailure.Add(1)
	}
	return err
}

// Snapshot returns a point-in-time copy of the counters.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	calls := m.PrimitiveCount.Load()
	failures := m.PrimitiveFailure.Load()
	rate := 1.0
	if calls > 0 {
		rate = float64(calls-failures) / float64(calls)
	}
	return MetricsSnapshot{
		SessionsCreated:      m.SessionsCreated.Load(),
		SessionsClosed:       m.SessionsClosed.Load(),
		ActiveSessions:       m.ActiveSessions.Load(),
		PrimitiveCount:       calls,
		PrimitiveFailures:    failures,
		PrimitiveSuccessRate: rate,
	}
}

// MetricsSnapshot is a point-in-time copy of browser metrics.
type MetricsSnapshot struct {
	SessionsCreated      int64   `json:"sessionsCreated"`
	SessionsClosed       int64   `json:"sessionsClosed"`
	ActiveSessions       int64   `json:"activeSessions"`
	PrimitiveCount       int64   `json:"primitiveCount"`
	PrimitiveFailures    int64   `json:"primitiveFailures"`
	PrimitiveSuccessRate float64 `json:"primitiveSuccessRate"`
}
