package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "snaplist",
			Subsystem: "session",
			Name:      "active_total",
			Help:      "Number of live browser sessions.",
		},
	)

	SessionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaplist",
			Subsystem: "session",
			Name:      "events_total",
			Help:      "Session lifecycle events by event and outcome.",
		},
		[]string{"event", "outcome"},
	)

	// Control surface metrics
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "snaplist",
			Subsystem: "automation",
			Name:      "operation_duration_seconds",
			Help:      "Duration of automation operations.",
			Buckets:   []float64{.05, .1, .5, 1, 2.5, 5, 10, 20, 40, 80},
		},
		[]string{"operation", "outcome"},
	)

	// Workflow metrics
	PhaseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaplist",
			Subsystem: "submission",
			Name:      "phase_failures_total",
			Help:      "Submission phase failures by phase and error kind.",
		},
		[]string{"phase", "kind"},
	)

	ImageFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaplist",
			Subsystem: "submission",
			Name:      "image_fetches_total",
			Help:      "Remote image fetch attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// Event bus metrics
	BusDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "snaplist",
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Events discarded because an in-process subscriber fell behind.",
		},
	)

	// Browser metrics
	BrowserPrimitives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "snaplist",
			Subsystem: "browser",
			Name:      "primitives_total",
			Help:      "Browser primitive calls by primitive and outcome.",
		},
		[]string{"primitive", "outcome"},
	)
)

// Outcome converts an error into a metrics label.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveOperation records an operation duration.
func ObserveOperation(op string, start time.Time, err error) {
	OperationDuration.WithLabelValues(op, Outcome(err)).Observe(time.Since(start).Seconds())
}
