// Package config holds graphd's tunables as plain structs, one per
// subsystem: a struct passed to a constructor, overridable field by
// field, no reflection-based binder. Load starts from Defaults(),
// layers a graphd.yaml file (parsed with gopkg.in/yaml.v3) over them
// and GRAPHD_* environment variables over that; cmd/graphd then sets
// its flag values on the returned struct, so flags win over both.
package config

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cuemby/graphd/pkg/chunkstore"
	"github.com/cuemby/graphd/pkg/fetch"
	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/hnsw"
	"github.com/cuemby/graphd/pkg/ingest"
	"github.com/cuemby/graphd/pkg/manifest"
	"github.com/cuemby/graphd/pkg/shard"
)

// Ingest tunes the batched triple writer and checkpoint cadence.
type Ingest struct {
	BatchSize         int     `yaml:"batchSize"`
	MaxPendingBatches int     `yaml:"maxPendingBatches"`
	BloomCapacity     uint64  `yaml:"bloomCapacity"`
	BloomFPR          float64 `yaml:"bloomFpr"`
	MaxBufferSize     int     `yaml:"maxBufferSize"`
}

// Fetch tunes the resumable range-request source reader.
type Fetch struct {
	ChunkSize   uint64 `yaml:"chunkSize"`
	MaxRetries  int    `yaml:"maxRetries"`
	BaseDelayMs int    `yaml:"baseDelayMs"`
}

// Manifest tunes the manifest store's in-memory caches.
type Manifest struct {
	MaxCachedNamespaces     int `yaml:"maxCachedNamespaces"`
	MaxEntitiesPerNamespace int `yaml:"maxEntitiesPerNamespace"`
}

// Traverse tunes bounded-BFS depth limits.
type Traverse struct {
	MaxPathDepth     int `yaml:"maxPathDepth"`
	DefaultPathDepth int `yaml:"defaultPathDepth"`
}

// HNSW tunes the vector index's graph density and search beam.
type HNSW struct {
	M              int `yaml:"m"`
	EfConstruction int `yaml:"efConstruction"`
	Ef             int `yaml:"ef"`
}

// Chunkstore tunes the per-shard write buffer and compaction
// thresholds.
type Chunkstore struct {
	MaxBufferTriples          int    `yaml:"maxBufferTriples"`
	MinChunksForCompaction    int    `yaml:"minChunksForCompaction"`
	MinChunkSizeForCompaction uint64 `yaml:"minChunkSizeForCompaction"`
}

// Config is the full set of tunables a graphd shard process loads,
// one field group per subsystem. Defaults() sets the documented
// defaults; a field it leaves at zero (the Chunkstore group, for
// example) is filled in by that subsystem's own withDefaults().
type Config struct {
	Namespace  string `yaml:"namespace"`
	DataDir    string `yaml:"dataDir"`
	Locality   string `yaml:"locality"`

	Ingest     Ingest     `yaml:"ingest"`
	Fetch      Fetch      `yaml:"fetch"`
	Manifest   Manifest   `yaml:"manifest"`
	Traverse   Traverse   `yaml:"traverse"`
	HNSW       HNSW       `yaml:"hnsw"`
	Chunkstore Chunkstore `yaml:"chunkstore"`

	LogLevel  string `yaml:"logLevel"`
	LogJSON   bool   `yaml:"logJson"`
}

// Defaults returns a Config populated with graphd's documented
// defaults, before any file or environment overrides are applied.
func Defaults() Config {
	return Config{
		LogLevel: "info",
		Ingest: Ingest{
			BatchSize:     10_000,
			BloomFPR:      0.01,
			MaxBufferSize: 65_536,
		},
		Fetch: Fetch{
			ChunkSize:   10 * 1024 * 1024,
			MaxRetries:  3,
			BaseDelayMs: 1000,
		},
		Manifest: Manifest{
			MaxCachedNamespaces:     10,
			MaxEntitiesPerNamespace: 100_000,
		},
		Traverse: Traverse{
			MaxPathDepth:     100,
			DefaultPathDepth: 3,
		},
		HNSW: HNSW{
			M:              16,
			EfConstruction: 200,
			Ef:             10,
		},
	}
}

// Load starts from Defaults(), merges a graphd.yaml file at path (if
// it exists — a missing file is not an error), then merges GRAPHD_*
// environment variables over the result. Fields absent from the YAML
// document and unset environment variables leave the prior layer's
// value untouched; a field the YAML document sets, even to zero,
// replaces it.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, graphdberr.Wrap(graphdberr.CodeStorageRead, "read config file", err)
			}
		} else if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, graphdberr.Wrap(graphdberr.CodeCorruptFormat, "parse config file", err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv layers GRAPHD_* environment variables over cfg, field by
// field; a variable that is unset or does not parse leaves the field
// as it is.
func applyEnv(cfg *Config) {
	if v := os.Getenv("GRAPHD_NAMESPACE"); v != "" {
		cfg.Namespace = v
	}
	if v := os.Getenv("GRAPHD_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("GRAPHD_LOCALITY"); v != "" {
		cfg.Locality = v
	}
	if v := os.Getenv("GRAPHD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v, ok := envBool("GRAPHD_LOG_JSON"); ok {
		cfg.LogJSON = v
	}
	if v, ok := envInt("GRAPHD_INGEST_BATCH_SIZE"); ok {
		cfg.Ingest.BatchSize = v
	}
	if v, ok := envInt("GRAPHD_INGEST_MAX_PENDING_BATCHES"); ok {
		cfg.Ingest.MaxPendingBatches = v
	}
	if v, ok := envUint64("GRAPHD_INGEST_BLOOM_CAPACITY"); ok {
		cfg.Ingest.BloomCapacity = v
	}
	if v, ok := envFloat("GRAPHD_INGEST_BLOOM_FPR"); ok {
		cfg.Ingest.BloomFPR = v
	}
	if v, ok := envInt("GRAPHD_FETCH_MAX_RETRIES"); ok {
		cfg.Fetch.MaxRetries = v
	}
	if v, ok := envInt("GRAPHD_FETCH_BASE_DELAY_MS"); ok {
		cfg.Fetch.BaseDelayMs = v
	}
	if v, ok := envUint64("GRAPHD_FETCH_CHUNK_SIZE"); ok {
		cfg.Fetch.ChunkSize = v
	}
	if v, ok := envInt("GRAPHD_TRAVERSE_DEFAULT_PATH_DEPTH"); ok {
		cfg.Traverse.DefaultPathDepth = v
	}
	if v, ok := envInt("GRAPHD_TRAVERSE_MAX_PATH_DEPTH"); ok {
		cfg.Traverse.MaxPathDepth = v
	}
	if v, ok := envInt("GRAPHD_HNSW_M"); ok {
		cfg.HNSW.M = v
	}
	if v, ok := envInt("GRAPHD_HNSW_EF_CONSTRUCTION"); ok {
		cfg.HNSW.EfConstruction = v
	}
	if v, ok := envInt("GRAPHD_HNSW_EF"); ok {
		cfg.HNSW.Ef = v
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envUint64(key string) (uint64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envFloat(key string) (float64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ShardConfig translates the loaded Config into the shard.Config a
// Shard constructor expects, for the one namespace named by
// cfg.Namespace. sqlitePath is passed through unchanged as the
// shard's SQLite database path (tests pass ":memory:" this way).
func (cfg Config) ShardConfig(sqlitePath string) shard.Config {
	return shard.Config{
		Namespace:  cfg.Namespace,
		SQLitePath: sqlitePath,
		ChunkStore: chunkstore.Config{
			MaxBufferTriples:          cfg.Chunkstore.MaxBufferTriples,
			MinChunksForCompaction:    cfg.Chunkstore.MinChunksForCompaction,
			MinChunkSizeForCompaction: cfg.Chunkstore.MinChunkSizeForCompaction,
		},
		Manifest: manifest.Config{
			MaxCachedNamespaces:     cfg.Manifest.MaxCachedNamespaces,
			MaxEntitiesPerNamespace: cfg.Manifest.MaxEntitiesPerNamespace,
		},
		Fetch: fetch.Config{
			BaseDelay:  time.Duration(cfg.Fetch.BaseDelayMs) * time.Millisecond,
			MaxRetries: cfg.Fetch.MaxRetries,
			ChunkSize:  cfg.Fetch.ChunkSize,
		},
		HNSW: hnsw.Config{
			M:              cfg.HNSW.M,
			EfConstruction: cfg.HNSW.EfConstruction,
			EfSearch:       cfg.HNSW.Ef,
		},
		Ingest: ingest.WriterConfig{
			BatchSize:         cfg.Ingest.BatchSize,
			MaxPendingBatches: cfg.Ingest.MaxPendingBatches,
			BloomCapacity:     cfg.Ingest.BloomCapacity,
			BloomFPR:          cfg.Ingest.BloomFPR,
		},
		IngestMaxBufferSize: cfg.Ingest.MaxBufferSize,
	}
}

func envBool(key string) (bool, bool) {
	v := os.Getenv(key)
	if v == "" {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}
