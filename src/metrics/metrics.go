// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RegistryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "directreg",
		Name:      "registry_requests_total",
		Help:      "Requests sent to the transaction registry, by resource and outcome.",
	}, []string{"resource", "outcome"})

	RegistryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "directreg",
		Name:      "registry_request_duration_seconds",
		Help:      "Latency of registry requests.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"resource"})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "directreg",
		Name:      "uploads_total",
		Help:      "Upload submissions, by outcome.",
	}, []string{"outcome"})

	ViewRemounts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "directreg",
		Name:      "view_remounts_total",
		Help:      "View resets, by view.",
	}, []string{"view"})

	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "directreg",
		Name:      "active_sessions",
		Help:      "Browser sessions currently held in memory.",
	})
)

// Outcome labels.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeRejected = "rejected"
	OutcomeDecode   = "decode_error"
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
