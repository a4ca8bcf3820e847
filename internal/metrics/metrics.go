// Package metrics exposes prometheus instrumentation for the connector,
// grounded on the Golden-Signal metric style used throughout xg2g's worker
// and pipeline packages (promauto counter/histogram vectors, label sets kept
// small and stable).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ConnectionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hssorigin_connections_accepted_total",
		Help: "Total client connections accepted by the listener.",
	})

	ManifestRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hssorigin_manifest_requests_total",
			Help: "Manifest requests served, by outcome.",
		},
		[]string{"outcome"}, // ok, not_found, error
	)

	FragmentRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hssorigin_fragment_requests_total",
			Help: "Fragment requests served, by liveness-gate verdict.",
		},
		[]string{"verdict"}, // servable, too_old, not_yet_available, not_found
	)

	FragmentBytesStreamed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hssorigin_fragment_bytes_streamed_total",
		Help: "Total media payload bytes written to clients across all fragments.",
	})

	UpstreamDialFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hssorigin_upstream_dial_failures_total",
		Help: "Upstream dial attempts that did not yield a usable source.",
	})

	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hssorigin_connection_duration_seconds",
		Help:    "Wall-clock lifetime of a client connection, from accept to close.",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
	})
)

// ObserveConnectionDuration records the lifetime of one client connection.
func ObserveConnectionDuration(start time.Time) {
	ConnectionDuration.Observe(time.Since(start).Seconds())
}
