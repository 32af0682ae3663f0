// Package metrics exposes the Prometheus collectors for the cache,
// propagation engine, and risk aggregator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	cacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskgraph",
			Subsystem: "cache",
			Name:      "hits_total",
			Help:      "Total number of cache hits.",
		},
	)

	cacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskgraph",
			Subsystem: "cache",
			Name:      "misses_total",
			Help:      "Total number of cache misses.",
		},
	)

	cacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "riskgraph",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Total number of cache entries evicted by TTL expiry.",
		},
	)

	cacheSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "riskgraph",
			Subsystem: "cache",
			Name:      "entries",
			Help:      "Current number of entries held in the cache.",
		},
	)

	propagationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskgraph",
			Subsystem: "propagation",
			Name:      "duration_milliseconds",
			Help:      "Wall-clock duration of a single propagation run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 14),
		},
	)

	propagationNodes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "riskgraph",
			Subsystem: "propagation",
			Name:      "nodes_affected",
			Help:      "Number of nodes affected (excluding the source) per propagation run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	riskRecalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "riskgraph",
			Subsystem: "risk",
			Name:      "recalculations_total",
			Help:      "Total number of full risk recalculations run, by tenant.",
		},
		[]string{"tenant"},
	)
)

func init() {
	Registry.MustRegister(
		cacheHits,
		cacheMisses,
		cacheEvictions,
		cacheSize,
		propagationDuration,
		propagationNodes,
		riskRecalculations,
		collectors.NewGoCollector(),
	)
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { cacheMisses.Inc() }

// RecordCacheEviction increments the cache eviction counter.
func RecordCacheEviction() { cacheEvictions.Inc() }

// SetCacheSize sets the current cache entry gauge.
func SetCacheSize(size int) { cacheSize.Set(float64(size)) }

// RecordPropagation records the duration (in milliseconds) and affected
// node count of a completed propagation run.
func RecordPropagation(durationMillis float64, nodesAffected int) {
	propagationDuration.Observe(durationMillis)
	propagationNodes.Observe(float64(nodesAffected))
}

// RecordRiskRecalculation increments the risk recalculation counter for a
// tenant.
func RecordRiskRecalculation(tenant string) {
	riskRecalculations.WithLabelValues(tenant).Inc()
}

// Handler returns an http.Handler serving the application registry in
// Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
