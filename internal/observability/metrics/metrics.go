// Package metrics exposes engine counters on a dedicated Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "incidentd"

// Metrics holds the engine's collectors.
type Metrics struct {
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	transitions        *prometheus.CounterVec
	events             *prometheus.CounterVec
	actionsProposed    *prometheus.CounterVec
	snoozeOps          *prometheus.CounterVec
	lookupFailures     *prometheus.CounterVec
	conflictRetries    *prometheus.CounterVec
	busDropped         prometheus.Counter
}

// New registers all collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluations_total",
			Help:      "Evaluation cycles by outcome.",
		}, []string{"outcome"}),
		evaluationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "evaluation_duration_seconds",
			Help:      "Wall time of an evaluation cycle including retries.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Incident status transitions.",
		}, []string{"from", "to"}),
		events: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "events_total",
			Help:      "Committed incident events by type.",
		}, []string{"type"}),
		actionsProposed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "actions_proposed_total",
			Help:      "Proposed actions by type.",
		}, []string{"type"}),
		snoozeOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "snooze",
			Name:      "operations_total",
			Help:      "Snooze operations by kind and outcome.",
		}, []string{"operation", "outcome"}),
		lookupFailures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "suppression",
			Name:      "lookup_failures_total",
			Help:      "Suppression lookups that failed and were treated as no suppression.",
		}, []string{"lookup"}),
		conflictRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "conflict_retries_total",
			Help:      "Operations rerun after losing a write race.",
		}, []string{"operation"}),
		busDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bus",
			Name:      "dropped_total",
			Help:      "Events dropped because the event bus was full.",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveEvaluation(outcome string, d time.Duration) {
	m.evaluations.WithLabelValues(outcome).Inc()
	m.evaluationDuration.Observe(d.Seconds())
}

func (m *Metrics) IncTransition(from, to string) {
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) IncEvent(eventType string) {
	m.events.WithLabelValues(eventType).Inc()
}

func (m *Metrics) IncActionProposed(actionType string) {
	m.actionsProposed.WithLabelValues(actionType).Inc()
}

func (m *Metrics) IncSnoozeOperation(operation, outcome string) {
	m.snoozeOps.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) IncLookupFailure(lookup string) {
	m.lookupFailures.WithLabelValues(lookup).Inc()
}

func (m *Metrics) IncConflictRetry(operation string) {
	m.conflictRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) IncBusDropped() {
	m.busDropped.Inc()
}
