// Package metrics provides Prometheus metrics for the herald pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "herald"

var (
	// FeedFetches counts feed fetch attempts by source and result.
	FeedFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_fetches_total",
			Help:      "Total number of feed fetches",
		},
		[]string{"source", "result"},
	)

	// EntriesDiscovered counts unseen entries returned by feed polling.
	EntriesDiscovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_discovered_total",
			Help:      "Total number of new entries discovered",
		},
		[]string{"source"},
	)

	// EnrichmentResults counts enrichment outcomes (page fetched or degraded, image found or not).
	EnrichmentResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_results_total",
			Help:      "Total number of article enrichments",
		},
		[]string{"page", "image"},
	)

	// ProviderCalls counts summarization provider calls by provider and outcome.
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Total number of summarization provider calls",
		},
		[]string{"provider", "outcome"},
	)

	// PublishAttempts counts delivery attempts by mode and result.
	PublishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_attempts_total",
			Help:      "Total number of channel delivery attempts",
		},
		[]string{"mode", "result"},
	)

	// ArticlesPublished counts articles delivered and persisted.
	ArticlesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_published_total",
			Help:      "Total number of published articles",
		},
	)

	// ArticlesSkipped counts queued articles that were not published.
	ArticlesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "articles_skipped_total",
			Help:      "Total number of skipped articles",
		},
		[]string{"reason"},
	)

	// SeenLinks tracks the size of the in-memory seen-set.
	SeenLinks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "seen_links",
			Help:      "Number of normalized links known as published",
		},
	)
)
