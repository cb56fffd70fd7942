package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Shard metrics
	ShardsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphd_shards_total",
			Help: "Total number of shards by region",
		},
		[]string{"region"},
	)

	NamespacesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "graphd_namespaces_total",
			Help: "Total number of namespaces currently cached locally",
		},
	)

	ChunksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "graphd_chunks_total",
			Help: "Total number of persisted chunks by namespace",
		},
		[]string{"namespace"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphd_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphd_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Import metrics
	ImportJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "graphd_import_jobs_total",
			Help: "Total number of import jobs by outcome",
		},
		[]string{"outcome"},
	)

	ImportTriplesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_import_triples_written_total",
			Help: "Total number of triples committed to chunks across all import jobs",
		},
	)

	ImportLinesSkippedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_import_lines_skipped_total",
			Help: "Total number of malformed import lines skipped",
		},
	)

	ImportCheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_import_checkpoint_duration_seconds",
			Help:    "Time taken to persist one import checkpoint in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Lookup/range-fetch metrics
	LookupRangeRequestsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_lookup_range_requests_total",
			Help: "Total number of suffix-range GETs issued by entity lookups",
		},
	)

	LookupFullFetchesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_lookup_full_fetches_total",
			Help: "Total number of full-chunk fetches issued by entity lookups",
		},
	)

	LookupLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_lookup_latency_seconds",
			Help:    "Time taken to resolve one entity lookup in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Chunk store / compaction metrics
	CompactionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_compaction_duration_seconds",
			Help:    "Time taken for a compaction pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ChunksMergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_chunks_merged_total",
			Help: "Total number of chunks merged by compaction",
		},
	)

	// Manifest sync metrics
	ManifestSyncDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_manifest_sync_duration_seconds",
			Help:    "Time taken for a manifest sync pass in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	ManifestConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "graphd_manifest_conflicts_total",
			Help: "Total number of R2-wins manifest conflicts resolved",
		},
	)

	// HNSW vector index metrics
	VectorInsertDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_vector_insert_duration_seconds",
			Help:    "Time taken to insert one vector into an HNSW index in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorSearchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_vector_search_duration_seconds",
			Help:    "Time taken for one HNSW search in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Hybrid search fusion metrics
	HybridSearchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "graphd_hybrid_search_duration_seconds",
			Help:    "Time taken for a fused hybrid search in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"combiner"},
	)

	// Traversal metrics
	TraversalDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_traversal_duration_seconds",
			Help:    "Time taken for one bounded-BFS traversal in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TraversalEntitiesVisited = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "graphd_traversal_entities_visited",
			Help:    "Number of entities visited per traversal",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200},
		},
	)
)

func init() {
	prometheus.MustRegister(ShardsTotal)
	prometheus.MustRegister(NamespacesTotal)
	prometheus.MustRegister(ChunksTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)

	prometheus.MustRegister(ImportJobsTotal)
	prometheus.MustRegister(ImportTriplesWrittenTotal)
	prometheus.MustRegister(ImportLinesSkippedTotal)
	prometheus.MustRegister(ImportCheckpointDuration)

	prometheus.MustRegister(LookupRangeRequestsTotal)
	prometheus.MustRegister(LookupFullFetchesTotal)
	prometheus.MustRegister(LookupLatency)

	prometheus.MustRegister(CompactionDuration)
	prometheus.MustRegister(ChunksMergedTotal)

	prometheus.MustRegister(ManifestSyncDuration)
	prometheus.MustRegister(ManifestConflictsTotal)

	prometheus.MustRegister(VectorInsertDuration)
	prometheus.MustRegister(VectorSearchDuration)

	prometheus.MustRegister(HybridSearchDuration)

	prometheus.MustRegister(TraversalDuration)
	prometheus.MustRegister(TraversalEntitiesVisited)
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
