// Package metrics exposes the service counters.
//
// Prometheus series, served by the chat server on /metrics:
//
//	cryptoguide_queries_total{kind}
//	cryptoguide_upstream_requests_total{kind,outcome}
//	cryptoguide_upstream_duration_seconds{kind}
//	cryptoguide_cache_lookups_total{result}
//	go_* and process_* system metrics
//
// Every observation is also emitted as a structured Metric, so registered
// handlers and CloudWatch see the same events.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptoguide/logger"
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	registry = prometheus.NewRegistry()

	queriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoguide_queries_total",
			Help: "Number of chat messages answered, by reply kind",
		},
		[]string{"kind"},
	)

	upstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoguide_upstream_requests_total",
			Help: "Number of market-data provider requests",
		},
		[]string{"kind", "outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cryptoguide_upstream_duration_seconds",
			Help:    "Latency of market-data provider requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cryptoguide_cache_lookups_total",
			Help: "Snapshot cache lookups by result",
		},
		[]string{"result"},
	)
)

func init() {
	registry.MustRegister(
		queriesTotal,
		upstreamRequests,
		upstreamDuration,
		cacheLookups,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
}

// ObserveQuery counts one answered message of the given kind
// (greeting, help, market).
func ObserveQuery(kind string) {
	queriesTotal.WithLabelValues(kind).Inc()
	logger.IncrementQuery()
	EmitMetric(nil, "assistant", "queries", 1, "counter", logger.Fields{"kind": kind, "unit": "count"})
}

// ObserveUpstream records one provider request. kind is snapshot or description.
func ObserveUpstream(kind string, err error, duration time.Duration) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	upstreamRequests.WithLabelValues(kind, outcome).Inc()
	upstreamDuration.WithLabelValues(kind).Observe(duration.Seconds())
	logger.IncrementUpstream(err != nil)
	EmitMetric(nil, "market", "upstream_latency_ms", float64(duration.Microseconds())/1000, "gauge", logger.Fields{
		"kind":    kind,
		"outcome": outcome,
		"unit":    "milliseconds",
	})
}

// ObserveCacheLookup counts one snapshot cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
	logger.IncrementCacheLookup(hit)
}
