package respcache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks memoized outcomes served without network activity.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "involves_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"store"}, // "memory", "redis"
	)

	// CacheMisses tracks lookups that fell through to the network.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "involves_cache_misses_total",
			Help: "Total number of response cache misses",
		},
		[]string{"store"},
	)

	// CacheErrors tracks store operation errors.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "involves_cache_errors_total",
			Help: "Total number of response cache operation errors",
		},
		[]string{"store", "operation"}, // operation: "get", "set"
	)
)
