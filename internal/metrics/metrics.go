// Package metrics exposes Prometheus instrumentation for lookups and
// submissions. All methods are safe on a nil *Metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registration flow's collectors.
type Metrics struct {
	// Lookup outcomes by result kind: exact, candidates, no_match, invalid, failure
	LookupOutcome *prometheus.CounterVec

	// Round-trip latency of lookups that reached the network
	LookupLatency prometheus.Histogram

	// Submission outcomes: persisted, local_only
	SubmitOutcome *prometheus.CounterVec

	// Local log appends that failed and were swallowed
	LocalLogFailures prometheus.Counter
}

// New creates a Metrics instance registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LookupOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jersey_lookup_outcomes_total",
			Help: "Total identity lookups by outcome",
		}, []string{"outcome"}),

		LookupLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "jersey_lookup_duration_seconds",
			Help:    "Duration of identity lookups including the timeout race",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 4.5, 6},
		}),

		SubmitOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "jersey_submit_outcomes_total",
			Help: "Total submissions by outcome",
		}, []string{"outcome"}),

		LocalLogFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "jersey_local_log_failures_total",
			Help: "Local submission log appends that failed",
		}),
	}
}

// IncrementLookup records a lookup outcome.
func (m *Metrics) IncrementLookup(outcome string) {
	if m != nil {
		m.LookupOutcome.WithLabelValues(outcome).Inc()
	}
}

// ObserveLookupLatency records the duration of a networked lookup.
func (m *Metrics) ObserveLookupLatency(d time.Duration) {
	if m != nil {
		m.LookupLatency.Observe(d.Seconds())
	}
}

// IncrementSubmit records a submission outcome.
func (m *Metrics) IncrementSubmit(outcome string) {
	if m != nil {
		m.SubmitOutcome.WithLabelValues(outcome).Inc()
	}
}

// IncrementLocalLogFailure records a swallowed local log failure.
func (m *Metrics) IncrementLocalLogFailure() {
	if m != nil {
		m.LocalLogFailures.Inc()
	}
}
