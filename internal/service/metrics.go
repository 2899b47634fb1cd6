package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	searchCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_cache_hits_total",
		Help: "Total number of search responses served from the cache",
	})

	searchCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_cache_misses_total",
		Help: "Total number of search requests that missed the cache",
	})

	searchCorrections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_corrections_applied_total",
		Help: "Total number of searches re-run with a corrected query",
	})

	searchBackendFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "search_backend_fallbacks_total",
		Help: "Total number of searches that fell back from the external backend to the primary backend",
	})

	searchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "search_requests_total",
		Help: "Total number of search requests by backend",
	}, []string{"backend"})
)
