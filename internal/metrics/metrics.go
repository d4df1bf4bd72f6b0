// Package metrics instruments the session core with Prometheus collectors.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "teachkit"

// Metrics holds all collectors of the session core
type Metrics struct {
	// Gateway
	GatewayRequests *prometheus.CounterVec
	GatewayLatency  *prometheus.HistogramVec

	// Flows
	FlowTransitions *prometheus.CounterVec
	FlowRejections  *prometheus.CounterVec

	// Enforcement
	ReconcilePasses  *prometheus.CounterVec
	SurfaceUpdates   prometheus.Counter
	SurfacesTracked  prometheus.Gauge
	PermissionDenied *prometheus.CounterVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		GatewayRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Backend calls by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		GatewayLatency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Backend call latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		FlowTransitions: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "transitions_total",
				Help:      "Flow state transitions by flow and target state",
			},
			[]string{"flow", "to"},
		),
		FlowRejections: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "flow",
				Name:      "validation_rejections_total",
				Help:      "Submissions rejected locally before any network call",
			},
			[]string{"flow", "rule"},
		),
		ReconcilePasses: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enforce",
				Name:      "reconcile_passes_total",
				Help:      "Reconciliation passes by trigger",
			},
			[]string{"trigger"},
		),
		SurfaceUpdates: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enforce",
				Name:      "surface_updates_total",
				Help:      "Decisions actually applied to surfaces",
			},
		),
		SurfacesTracked: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "enforce",
				Name:      "surfaces",
				Help:      "Currently registered surfaces",
			},
		),
		PermissionDenied: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "enforce",
				Name:      "permission_denied_total",
				Help:      "Guarded invocations rejected at invocation time",
			},
			[]string{"capability"},
		),
	}
}

// ObserveGateway records one backend call
func (m *Metrics) ObserveGateway(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(operation, outcome).Inc()
	m.GatewayLatency.WithLabelValues(operation).Observe(d.Seconds())
}

// Transition records a flow moving into a new state
func (m *Metrics) Transition(flow, to string) {
	if m == nil {
		return
	}
	m.FlowTransitions.WithLabelValues(flow, to).Inc()
}

// Rejected records a local validation rejection
func (m *Metrics) Rejected(flow, rule string) {
	if m == nil {
		return
	}
	m.FlowRejections.WithLabelValues(flow, rule).Inc()
}

// Reconciled records a reconciliation pass and how many surfaces it touched
func (m *Metrics) Reconciled(trigger string, applied int) {
	if m == nil {
		return
	}
	m.ReconcilePasses.WithLabelValues(trigger).Inc()
	m.SurfaceUpdates.Add(float64(applied))
}

// Surfaces sets the number of registered surfaces
func (m *Metrics) Surfaces(n int) {
	if m == nil {
		return
	}
	m.SurfacesTracked.Set(float64(n))
}

// Denied records a guard rejection
func (m *Metrics) Denied(capability string) {
	if m == nil {
		return
	}
	m.PermissionDenied.WithLabelValues(capability).Inc()
}
