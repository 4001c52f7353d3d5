// Package metrics provides Prometheus instrumentation for the matching engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MatchedVolume cumulative underlying moved between buckets,
	// partitioned by asset, side and direction.
	MatchedVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchpool_matched_volume_total",
		Help: "Cumulative underlying moved by the matching engine",
	}, []string{"asset", "side", "op"})

	// EngineIterations queue iterations spent per operation.
	EngineIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchpool_engine_iterations_total",
		Help: "Sorted-queue iterations consumed by match operations",
	}, []string{"asset", "op"})

	// DeltaGrown underlying pushed into the delta on unmatch shortfall.
	DeltaGrown = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "matchpool_delta_grown_total",
		Help: "Underlying recorded as pool-backed delta",
	}, []string{"asset", "side"})

	// QueueSize current entries per sorted queue.
	QueueSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "matchpool_queue_size",
		Help: "Entries per matching queue",
	}, []string{"asset", "queue"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
