// Package telemetry defines the service's prometheus metrics. Everything
// registers on the default registry and is served by the API's /metrics
// endpoint.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// IngestItems counts normalized items per source by outcome.
	IngestItems = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bricksage",
		Subsystem: "ingest",
		Name:      "items_total",
		Help:      "Items handled per source, labeled by outcome (stored, skipped).",
	}, []string{"source", "outcome"})

	// SourceRuns counts adapter invocations by terminal status.
	SourceRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bricksage",
		Subsystem: "ingest",
		Name:      "source_runs_total",
		Help:      "Adapter runs, labeled by status (ok, skipped, failed).",
	}, []string{"source", "status"})

	// IDCollisions counts items lacking a native id, which collapse onto
	// the per-source placeholder record.
	IDCollisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bricksage",
		Subsystem: "ingest",
		Name:      "id_collisions_total",
		Help:      "Items without a native id collapsing onto the placeholder record.",
	}, []string{"source"})

	// RebuildDuration observes wall time of full index rebuilds.
	RebuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bricksage",
		Subsystem: "index",
		Name:      "rebuild_seconds",
		Help:      "Wall time of full index rebuilds.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	// IndexRecords tracks the size of the published search index.
	IndexRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "bricksage",
		Subsystem: "index",
		Name:      "records",
		Help:      "Records in the published search index.",
	})

	// Queries counts answered questions by detected intent.
	Queries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bricksage",
		Subsystem: "search",
		Name:      "queries_total",
		Help:      "Answered queries, labeled by detected intent.",
	}, []string{"intent"})

	// QueryDuration observes end-to-end answer latency, synthesis included.
	QueryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "bricksage",
		Subsystem: "search",
		Name:      "query_seconds",
		Help:      "End-to-end answer latency.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})

	// CacheRequests counts answer cache lookups by result.
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bricksage",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Answer cache lookups, labeled by result (hit, miss).",
	}, []string{"result"})
)
