package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for admission control.
type Metrics struct {
	RequestsAllowed prometheus.Counter
	RequestsBlocked prometheus.Counter
	TrackedKeys     prometheus.Gauge
}

// New creates and registers all rate-limit metrics.
func New() *Metrics {
	return &Metrics{
		RequestsAllowed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_allowed_total",
			Help: "Total requests admitted by the rate limiter",
		}),
		RequestsBlocked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "gatekeeper_ratelimit_blocked_total",
			Help: "Total requests denied by the rate limiter",
		}),
		TrackedKeys: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gatekeeper_ratelimit_tracked_keys",
			Help: "Number of identities with active rate-limit window state",
		}),
	}
}
