package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	filterRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slaskfacets_filter_requests_total",
		Help: "The total number of filter requests by outcome",
	}, []string{"outcome"})
	filterDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slaskfacets_filter_duration_seconds",
		Help:    "Time spent answering filter requests",
		Buckets: prometheus.DefBuckets,
	})
	facetFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_facet_failures_total",
		Help: "The total number of dimensions whose counts could not be computed",
	})
	facetCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_facet_cache_hits_total",
		Help: "Facet results served from cache",
	})
	facetCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_facet_cache_misses_total",
		Help: "Facet results computed",
	})
	noncesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slaskfacets_nonces_issued_total",
		Help: "The total number of issued widget nonces",
	})
)
