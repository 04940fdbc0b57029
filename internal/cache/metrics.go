package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	hitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restate_query_cache_hits_total",
		Help: "Reads served from a fresh cache entry without a gateway call",
	})
	missesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restate_query_cache_misses_total",
		Help: "Reads that had to invoke the gateway synchronously",
	})
	staleServesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restate_query_cache_stale_serves_total",
		Help: "Reads served a stale value while a background refetch ran",
	})
	refetchesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restate_query_cache_refetches_total",
		Help: "Background refetches triggered by staleness, invalidation or focus regain",
	})
	retriesExhaustedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "restate_query_cache_retries_exhausted_total",
		Help: "Fetches that failed after the configured retry budget",
	})
	entriesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "restate_query_cache_entries",
		Help: "Number of live cache entries",
	})
)

func init() {
	prometheus.MustRegister(
		hitsTotal,
		missesTotal,
		staleServesTotal,
		refetchesTotal,
		retriesExhaustedTotal,
		entriesGauge,
	)
}
