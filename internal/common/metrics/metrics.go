// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_requests_total",
			Help: "Total number of feed fetch cycles",
		},
		[]string{"mode"}, // "search" or "idle"
	)

	FeedStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "feed_stage_duration_seconds",
			Help: "Duration of each pipeline stage",
		},
		[]string{"stage"}, // query, normalize, postprocess, assemble
	)

	SourceQueryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_source_query_failures_total",
			Help: "Source queries that degraded to an empty contribution",
		},
		[]string{"source"}, // service_listings, jobs, carousel
	)

	ListingsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_listings_dropped_total",
			Help: "Listings excluded during normalization or post-processing",
		},
		[]string{"reason"}, // scan_error, missing_identity, no_coordinates, distance, rating
	)

	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Cache lookups by outcome",
		},
		[]string{"cache", "outcome"}, // session/carousel, hit/miss
	)

	StaleCyclesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_stale_cycles_discarded_total",
			Help: "Fetch cycles whose results arrived after a newer cycle settled",
		},
	)
)
