package gatekeeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the request pipeline.
type Metrics struct {
	Requests        *prometheus.CounterVec
	BlockedByStage  *prometheus.CounterVec
	RequestDuration prometheus.Histogram
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_requests_total",
			Help: "Requests processed, by final security level",
		}, []string{"security_level"}),
		BlockedByStage: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gatekeeper_blocked_total",
			Help: "Requests blocked, by pipeline stage",
		}, []string{"stage"}),
		RequestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatekeeper_request_duration_seconds",
			Help:    "End-to-end pipeline latency including executor delegation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}
