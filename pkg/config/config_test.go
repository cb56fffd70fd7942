package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.Ingest.BatchSize != 10_000 {
		t.Errorf("Ingest.BatchSize = %d, want 10000", cfg.Ingest.BatchSize)
	}
	if cfg.Fetch.MaxRetries != 3 {
		t.Errorf("Fetch.MaxRetries = %d, want 3", cfg.Fetch.MaxRetries)
	}
	if cfg.HNSW.M != 16 {
		t.Errorf("HNSW.M = %d, want 16", cfg.HNSW.M)
	}
	if cfg.Traverse.DefaultPathDepth != 3 {
		t.Errorf("Traverse.DefaultPathDepth = %d, want 3", cfg.Traverse.DefaultPathDepth)
	}
}

func TestLoadMissingFileIsNotError(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err != nil {
		t.Fatalf("Load with missing file returned error: %v", err)
	}
	if cfg.Ingest.BatchSize != Defaults().Ingest.BatchSize {
		t.Errorf("missing file should fall back to Defaults(), got BatchSize=%d", cfg.Ingest.BatchSize)
	}
}

func TestLoadEmptyPathSkipsFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") returned error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Load(\"\") should return Defaults(), got LogLevel=%q", cfg.LogLevel)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphd.yaml")
	data := []byte("namespace: products\ningest:\n  batchSize: 500\nhnsw:\n  m: 32\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Namespace != "products" {
		t.Errorf("Namespace = %q, want products", cfg.Namespace)
	}
	if cfg.Ingest.BatchSize != 500 {
		t.Errorf("Ingest.BatchSize = %d, want 500", cfg.Ingest.BatchSize)
	}
	if cfg.HNSW.M != 32 {
		t.Errorf("HNSW.M = %d, want 32", cfg.HNSW.M)
	}
	// Fields the file doesn't mention keep their Defaults() value.
	if cfg.Fetch.MaxRetries != Defaults().Fetch.MaxRetries {
		t.Errorf("Fetch.MaxRetries should be untouched by a file that doesn't mention it")
	}
}

func TestLoadCorruptYAMLErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphd.yaml")
	if err := os.WriteFile(path, []byte("not: valid: yaml: ["), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for corrupt yaml, got nil")
	}
}

func TestApplyEnvOverridesFileAndDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graphd.yaml")
	if err := os.WriteFile(path, []byte("ingest:\n  batchSize: 500\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Setenv("GRAPHD_INGEST_BATCH_SIZE", "777")
	t.Setenv("GRAPHD_NAMESPACE", "from-env")
	t.Setenv("GRAPHD_LOG_JSON", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Ingest.BatchSize != 777 {
		t.Errorf("env should win over file, got BatchSize=%d", cfg.Ingest.BatchSize)
	}
	if cfg.Namespace != "from-env" {
		t.Errorf("Namespace = %q, want from-env", cfg.Namespace)
	}
	if !cfg.LogJSON {
		t.Error("LogJSON should be true from GRAPHD_LOG_JSON")
	}
}

func TestApplyEnvIgnoresUnsetAndMalformed(t *testing.T) {
	cfg := Defaults()
	t.Setenv("GRAPHD_HNSW_M", "not-a-number")

	applyEnv(&cfg)
	if cfg.HNSW.M != Defaults().HNSW.M {
		t.Errorf("malformed env value should be ignored, got HNSW.M=%d", cfg.HNSW.M)
	}
}

func TestShardConfigTranslation(t *testing.T) {
	cfg := Defaults()
	cfg.Namespace = "catalog"
	cfg.Ingest.MaxBufferSize = 4096

	sc := cfg.ShardConfig(":memory:")

	if sc.Namespace != "catalog" {
		t.Errorf("Namespace = %q, want catalog", sc.Namespace)
	}
	if sc.SQLitePath != ":memory:" {
		t.Errorf("SQLitePath = %q, want :memory:", sc.SQLitePath)
	}
	if sc.Fetch.BaseDelay != 1000*1_000_000 { // 1000ms in nanoseconds
		t.Errorf("Fetch.BaseDelay = %v, want 1s", sc.Fetch.BaseDelay)
	}
	if sc.HNSW.EfSearch != cfg.HNSW.Ef {
		t.Errorf("HNSW.EfSearch = %d, want %d", sc.HNSW.EfSearch, cfg.HNSW.Ef)
	}
	if sc.IngestMaxBufferSize != 4096 {
		t.Errorf("IngestMaxBufferSize = %d, want 4096", sc.IngestMaxBufferSize)
	}
}
