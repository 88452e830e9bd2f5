package audit

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event trail.
type Metrics struct {
	EventsRecorded *prometheus.CounterVec
	AlertsRaised   prometheus.Counter
	StoreFailures  prometheus.Counter
	ForwardDropped prometheus.Counter
}

// NewMetrics creates and registers all audit metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsRecorded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_audit_events_total",
			Help: "Security events recorded, by severity",
		}, []string{"severity"}),
		AlertsRaised: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_audit_alerts_total",
			Help: "Alert hook invocations for high and critical events",
		}),
		StoreFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_audit_store_failures_total",
			Help: "Event appends rejected by the store",
		}),
		ForwardDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_audit_forward_dropped_total",
			Help: "Events dropped because the forward channel was full",
		}),
	}
}
