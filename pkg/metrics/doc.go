/*
Package metrics provides Prometheus metrics collection and exposition for graphd.

The metrics package defines and registers graphd's metrics using the Prometheus
client library, providing observability into shard state, import progress,
lookup/compaction latency, and hybrid search performance. Metrics are exposed
via an HTTP endpoint for scraping by Prometheus servers.

# Architecture

	┌──────────────────── METRICS SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │          Prometheus Registry                │          │
	│  │  - Global DefaultRegistry                   │          │
	│  │  - MustRegister at package init             │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Metric Categories                 │          │
	│  │                                              │          │
	│  │  Shard: shards, namespaces, chunks          │          │
	│  │  Import: jobs, triples written, skipped     │          │
	│  │  Lookup: range/full fetches, latency        │          │
	│  │  Compaction: duration, chunks merged        │          │
	│  │  Manifest sync: duration, conflicts         │          │
	│  │  Vector: insert/search duration (HNSW)      │          │
	│  │  Hybrid search: fused query duration        │          │
	│  │  Traversal: duration, entities visited      │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │          HTTP Metrics Endpoint               │          │
	│  │  - Path: /metrics                           │          │
	│  │  - Handler: promhttp.Handler()              │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Metric Registry:
  - Global Prometheus DefaultRegistry
  - All metrics registered at package init

Gauge Metrics:
  - Instant value that can go up or down (shard count, chunk count)
  - Collected periodically by pkg/shard's MetricsCollector, which lives
    there (not in this package) to avoid a metrics<->shard import cycle

Counter Metrics:
  - Monotonically increasing value (import jobs, triples written)
  - Updated inline at the call site that observed the event

Histogram Metrics:
  - Distribution of observed values (lookup latency, compaction duration)
  - Updated via the Timer helper or a direct Observe call

Timer Helper:
  - Convenience wrapper for timing operations: start, then observe
    duration to a histogram (with or without label values)

# Metrics Catalog

Shard Metrics:

graphd_shards_total{region}:
  - Type: Gauge
  - Description: Total shards by region

graphd_namespaces_total:
  - Type: Gauge
  - Description: Namespaces currently cached locally

graphd_chunks_total{namespace}:
  - Type: Gauge
  - Description: Persisted chunks by namespace

Import Metrics:

graphd_import_jobs_total{outcome}:
  - Type: Counter
  - Description: Import jobs by outcome (completed/failed)

graphd_import_triples_written_total:
  - Type: Counter
  - Description: Triples committed to chunks across all import jobs

graphd_import_lines_skipped_total:
  - Type: Counter
  - Description: Malformed import lines skipped

graphd_import_checkpoint_duration_seconds:
  - Type: Histogram
  - Description: Time to persist one import checkpoint

Lookup Metrics:

graphd_lookup_range_requests_total:
  - Type: Counter
  - Description: Suffix-range GETs issued by entity lookups

graphd_lookup_full_fetches_total:
  - Type: Counter
  - Description: Full-chunk fetches issued by entity lookups

graphd_lookup_latency_seconds:
  - Type: Histogram
  - Description: Entity lookup resolution time

Compaction Metrics:

graphd_compaction_duration_seconds:
  - Type: Histogram
  - Description: Compaction pass duration

graphd_chunks_merged_total:
  - Type: Counter
  - Description: Chunks merged by compaction

Manifest Sync Metrics:

graphd_manifest_sync_duration_seconds:
  - Type: Histogram
  - Description: Manifest sync pass duration

graphd_manifest_conflicts_total:
  - Type: Counter
  - Description: R2-wins manifest conflicts resolved

Vector Index Metrics:

graphd_vector_insert_duration_seconds / graphd_vector_search_duration_seconds:
  - Type: Histogram
  - Description: HNSW insert/search duration

Hybrid Search Metrics:

graphd_hybrid_search_duration_seconds{combiner}:
  - Type: Histogram
  - Description: Fused hybrid search duration, labeled by combiner
    ("weighted" or "rrf")

Traversal Metrics:

graphd_traversal_duration_seconds / graphd_traversal_entities_visited:
  - Type: Histogram
  - Description: Bounded-BFS traversal duration and visited-entity count

# Usage

Updating Gauge Metrics:

	import "github.com/cuemby/graphd/pkg/metrics"

	metrics.ChunksTotal.WithLabelValues("acme-kg").Set(42)

Updating Counter Metrics:

	metrics.ImportTriplesWrittenTotal.Add(float64(len(triples)))
	metrics.ImportJobsTotal.WithLabelValues("completed").Inc()

Recording Histogram Observations:

	timer := metrics.NewTimer()
	entity, found, stats, err := lookup.Get(ctx, id)
	timer.ObserveDuration(metrics.LookupLatency)

Using Timer with Labels:

	timer := metrics.NewTimer()
	fused, err := shard.HybridSearch(ctx, req)
	timer.ObserveDurationVec(metrics.HybridSearchDuration, combinerLabel)

# Integration Points

This package integrates with:

  - pkg/shard: periodic MetricsCollector sampling of chunk/namespace gauges
  - pkg/ingest: import job/checkpoint counters and histograms
  - pkg/lookup: range/full fetch counters and lookup latency
  - pkg/chunkstore: compaction duration and merged-chunk counter
  - pkg/manifest: sync duration and conflict counter
  - pkg/hnsw: vector insert/search duration
  - pkg/fusion: hybrid search duration
  - pkg/traverse: traversal duration and visited-entity histogram
  - Prometheus: scrapes /metrics

# Design Patterns

Package Init Registration:
  - All metrics registered in init(); MustRegister panics on duplicate
    registration, so metrics are available before main()

Label Discipline:
  - Use WithLabelValues for cardinality-bounded labels (namespace,
    region, outcome) — never entity IDs or timestamps

Timer Pattern:
  - Create timer at operation start, observe duration at the end;
    supports both plain histograms and label vectors

# See Also

  - Prometheus documentation: https://prometheus.io/docs/
  - Prometheus client library: https://github.com/prometheus/client_golang
  - Histogram best practices: https://prometheus.io/docs/practices/histograms/
*/
package metrics
