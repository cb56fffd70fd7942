// Package shard binds every subsystem (blob store, durable KV,
// embedded SQL, manifest, chunk store, secondary indexes, HNSW
// vector indexes, hybrid fusion, traversal) into the one struct that
// serves a shard's data-plane operations.
package shard

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/chunkstore"
	"github.com/cuemby/graphd/pkg/fetch"
	"github.com/cuemby/graphd/pkg/fusion"
	"github.com/cuemby/graphd/pkg/hnsw"
	"github.com/cuemby/graphd/pkg/index"
	"github.com/cuemby/graphd/pkg/ingest"
	"github.com/cuemby/graphd/pkg/kv"
	"github.com/cuemby/graphd/pkg/lookup"
	"github.com/cuemby/graphd/pkg/manifest"
	"github.com/cuemby/graphd/pkg/metrics"
	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/traverse"
	"github.com/cuemby/graphd/pkg/types"
)

// Config tunes the subsystems a Shard wires together. Zero values
// fall back to each subsystem's own defaults.
type Config struct {
	Namespace  string
	SQLitePath string // ":memory:" for tests

	ChunkStore chunkstore.Config
	Manifest   manifest.Config
	Fetch      fetch.Config
	HNSW       hnsw.Config
	Ingest     ingest.WriterConfig

	// IngestMaxBufferSize caps an import job's line-reader buffer.
	// Zero keeps lines.Reader's default.
	IngestMaxBufferSize int
}

// Shard is one shard's fully wired data plane.
type Shard struct {
	cfg      Config
	locality Locality
	log      zerolog.Logger

	blobs blobstore.Store
	kv    kv.Store
	db    *sqlstore.Store

	manifests   *manifest.Store
	syncer      *manifest.Syncer
	chunks      *chunkstore.Store
	index       *index.Store
	resolver    *lookup.Lookup
	traverser   *traverse.Executor
	checkpoints *ingest.CheckpointManager

	vecMu    sync.Mutex
	vecIndex map[string]*hnsw.Index
}

// New constructs a Shard. blobs and kvStore are injected so tests can
// pass in-memory doubles and production wiring can pass
// blobstore.S3Store / kv.BoltKV.
func New(cfg Config, blobs blobstore.Store, kvStore kv.Store, locality Locality, log zerolog.Logger) (*Shard, error) {
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = ":memory:"
	}
	cfg.ChunkStore.Namespace = cfg.Namespace

	db, err := sqlstore.Open(cfg.SQLitePath)
	if err != nil {
		return nil, err
	}

	manifests, err := manifest.New(kvStore, cfg.Manifest)
	if err != nil {
		return nil, err
	}

	s := &Shard{
		cfg:         cfg,
		locality:    locality,
		log:         log.With().Str("component", "shard").Str("region", locality.Region()).Logger(),
		blobs:       blobs,
		kv:          kvStore,
		db:          db,
		manifests:   manifests,
		syncer:      manifest.NewSyncer(manifests, blobs),
		chunks:      chunkstore.New(db, cfg.ChunkStore, log),
		index:       index.New(db),
		checkpoints: ingest.NewCheckpointManager(kvStore),
		vecIndex:    make(map[string]*hnsw.Index),
	}
	s.resolver = lookup.New(manifests, blobs, log)
	s.traverser = traverse.New(s.resolver)
	return s, nil
}

// Close releases the shard's embedded database handle.
func (s *Shard) Close() error {
	return s.db.DB.Close()
}

// Ping verifies the shard's embedded SQL database is reachable, for
// readiness probes.
func (s *Shard) Ping(ctx context.Context) error {
	return s.db.DB.PingContext(ctx)
}

// Namespace reports the namespace this shard serves.
func (s *Shard) Namespace() string {
	return s.cfg.Namespace
}

// Locality reports this shard's placement locality.
func (s *Shard) LocalityInfo() Locality {
	return s.locality
}

// Write buffers triples into the chunk store and indexes them into
// the secondary indexes, auto-flushing the chunk buffer once it
// reaches its configured size.
func (s *Shard) Write(ctx context.Context, triples []types.Triple) error {
	s.chunks.Write(triples)
	if err := s.index.IndexTriples(ctx, triples); err != nil {
		return err
	}
	if s.chunks.ShouldAutoFlush() {
		if _, err := s.chunks.Flush(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Get resolves one entity by id via the manifest-backed lookup path
// over the blob store only; this shard's write buffer is not consulted
// (QueryBuffered reads the buffer and local chunks).
func (s *Shard) Get(ctx context.Context, entityID string) (lookup.Entity, bool, lookup.Stats, error) {
	timer := metrics.NewTimer()
	entity, found, stats, err := s.resolver.Get(ctx, entityID)
	timer.ObserveDuration(metrics.LookupLatency)
	metrics.LookupRangeRequestsTotal.Add(float64(stats.RangeRequests))
	metrics.LookupFullFetchesTotal.Add(float64(stats.FullFetches))
	return entity, found, stats, err
}

// QueryBuffered returns every triple this shard currently holds for
// subject, merging the in-memory write buffer with flushed chunks --
// distinct from Get, which resolves through the manifest/blob-store
// path for entities already durably published.
func (s *Shard) QueryBuffered(ctx context.Context, subject types.EntityId) ([]types.Triple, error) {
	return s.chunks.Query(ctx, subject)
}

// Compact merges small persisted chunks into fewer larger ones.
func (s *Shard) Compact(ctx context.Context) (int, error) {
	timer := metrics.NewTimer()
	merged, err := s.chunks.Compact(ctx)
	timer.ObserveDuration(metrics.CompactionDuration)
	metrics.ChunksMergedTotal.Add(float64(merged))
	return merged, err
}

// ChunkStats reports this shard's buffered/persisted chunk counters,
// for metrics collection (MetricsCollector in metrics_collector.go).
func (s *Shard) ChunkStats(ctx context.Context) (chunkstore.Stats, error) {
	return s.chunks.Stats(ctx)
}

// Sync reconciles this shard's manifest against the authoritative
// blob-store copy.
func (s *Shard) Sync(ctx context.Context, namespace string) manifest.Result {
	timer := metrics.NewTimer()
	result := s.syncer.FullSync(ctx, namespace)
	timer.ObserveDuration(metrics.ManifestSyncDuration)
	metrics.ManifestConflictsTotal.Add(float64(result.Conflicts))
	return result
}

// Traverse runs a bounded BFS from startID.
func (s *Shard) Traverse(ctx context.Context, startID string, depth int) (traverse.Result, error) {
	timer := metrics.NewTimer()
	result, err := s.traverser.Run(ctx, startID, depth)
	timer.ObserveDuration(metrics.TraversalDuration)
	metrics.TraversalEntitiesVisited.Observe(float64(result.Stats.EntitiesVisited))
	return result, err
}

// VectorIndex returns (constructing on first use) the HNSW index for
// predicate, backed by this shard's embedded SQL graph store and
// blob-store vector store.
func (s *Shard) VectorIndex(predicate string) *hnsw.Index {
	s.vecMu.Lock()
	defer s.vecMu.Unlock()
	if idx, ok := s.vecIndex[predicate]; ok {
		return idx
	}
	graph := hnsw.NewSQLGraphStore(s.db)
	vectors := hnsw.NewBlobVectorStore(s.blobs)
	idx := hnsw.New(predicate, s.cfg.HNSW, graph, vectors)
	s.vecIndex[predicate] = idx
	return idx
}

// InsertVector adds or replaces an entity's embedding for predicate
// in that predicate's HNSW index.
func (s *Shard) InsertVector(ctx context.Context, predicate, entityID string, vec []float32) error {
	timer := metrics.NewTimer()
	err := s.VectorIndex(predicate).Insert(ctx, entityID, vec)
	timer.ObserveDuration(metrics.VectorInsertDuration)
	return err
}

// HybridSearchRequest names one or more sources to fuse; any
// zero-value source is skipped.
type HybridSearchRequest struct {
	Limit int

	FTSQuery     string
	FTSPredicate string
	FTSWeight    float64

	VecPredicate string
	VecQuery     []float32
	VecWeight    float64

	GeoLat, GeoLng, GeoRadiusKm float64
	GeoWeight                   float64

	// UseRRF selects Reciprocal Rank Fusion instead of the default
	// weighted-average combiner.
	UseRRF bool
}

// HybridSearch runs each requested source, normalizes and fuses their
// rankings, and returns the combined top results.
func (s *Shard) HybridSearch(ctx context.Context, req HybridSearchRequest) ([]fusion.Fused, error) {
	combiner := "weighted"
	if req.UseRRF {
		combiner = "rrf"
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDurationVec(metrics.HybridSearchDuration, combiner)

	var sources []fusion.Source

	if req.FTSQuery != "" {
		hits, err := s.index.FTS().Search(ctx, req.FTSQuery, req.FTSPredicate, req.Limit)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fusion.Source{Name: "fts", Weight: orOne(req.FTSWeight), Results: ftsResults(hits)})
	}

	if req.VecPredicate != "" && len(req.VecQuery) > 0 {
		vecTimer := metrics.NewTimer()
		results, err := s.VectorIndex(req.VecPredicate).Search(ctx, req.VecQuery, req.Limit)
		vecTimer.ObserveDuration(metrics.VectorSearchDuration)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fusion.Source{Name: "vec", Weight: orOne(req.VecWeight), Results: vecResults(results)})
	}

	if req.GeoRadiusKm > 0 {
		hits, err := s.index.GEO().Radius(ctx, req.GeoLat, req.GeoLng, req.GeoRadiusKm)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fusion.Source{Name: "geo", Weight: orOne(req.GeoWeight), Results: geoResults(hits)})
	}

	if req.UseRRF {
		return fusion.ReciprocalRankFusion(sources, req.Limit), nil
	}
	return fusion.WeightedAverage(sources, req.Limit), nil
}

func orOne(w float64) float64 {
	if w <= 0 {
		return 1
	}
	return w
}

func ftsResults(hits []index.Hit) []fusion.SourceResult {
	out := make([]fusion.SourceResult, len(hits))
	for i, h := range hits {
		out[i] = fusion.SourceResult{EntityID: h.EntityID, Score: fusion.NormalizeBM25(h.Score), Rank: i + 1}
	}
	return out
}

func vecResults(results []hnsw.Result) []fusion.SourceResult {
	out := make([]fusion.SourceResult, len(results))
	for i, r := range results {
		out[i] = fusion.SourceResult{EntityID: r.EntityID, Score: 1 - r.Distance, Rank: i + 1}
	}
	return out
}

func geoResults(hits []index.GeoHit) []fusion.SourceResult {
	out := make([]fusion.SourceResult, len(hits))
	for i, h := range hits {
		out[i] = fusion.SourceResult{EntityID: h.EntityID, Score: fusion.NormalizeGeoDistance(h.DistKm), Rank: i + 1}
	}
	return out
}

// Import streams and ingests an external source into this shard's
// namespace, resuming from any existing checkpoint.
func (s *Shard) Import(ctx context.Context, jobID, sourceURL string) error {
	fetcher := fetch.New(http.DefaultClient, sourceURL, s.cfg.Fetch, s.log)
	writerCfg := s.cfg.Ingest
	writerCfg.Namespace = s.cfg.Namespace
	writer := ingest.New(s.blobs, writerCfg)
	job := ingest.NewJob(ingest.JobConfig{
		JobID:         jobID,
		Namespace:     s.cfg.Namespace,
		SourceURL:     sourceURL,
		MaxBufferSize: s.cfg.IngestMaxBufferSize,
	}, fetcher, writer, s.checkpoints, s.manifests, s.log)

	resumed, err := job.Resume(ctx)
	if err != nil {
		return err
	}
	if resumed {
		s.log.Info().Str("jobId", jobID).Msg("resuming import job from checkpoint")
	}
	if err := job.Run(ctx); err != nil {
		metrics.ImportJobsTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("import job %s: %w", jobID, err)
	}

	metrics.ImportJobsTotal.WithLabelValues("completed").Inc()
	metrics.ImportTriplesWrittenTotal.Add(float64(writer.State().TriplesWritten))
	metrics.ImportLinesSkippedTotal.Add(float64(job.Skipped()))
	return nil
}
