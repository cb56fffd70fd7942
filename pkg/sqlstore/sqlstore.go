// Package sqlstore is the shard-local embedded SQL engine: a single
// SQLite database, owned by graphd, holding the `chunks` blob table
// and the POS/OSP/FTS/GEO/VEC secondary-index tables plus HNSW graph
// storage. modernc.org/sqlite is used instead of a cgo driver so the
// shard binary stays a static, cross-compiled single file.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

// Store wraps a *sql.DB opened against the pure-Go SQLite driver and
// owns the shard's schema.
type Store struct {
	DB *sql.DB
}

// Open opens (creating and migrating if necessary) the shard database
// at path. Pass ":memory:" for ephemeral/test stores.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageWrite, "open sqlite", err)
	}
	db.SetMaxOpenConns(1) // single-writer shard discipline

	s := &Store{DB: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.DB.Close() }

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return graphdberr.Wrap(graphdberr.CodeStorageWrite, fmt.Sprintf("migrate: %s", stmt), err)
		}
	}
	return nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS schema_meta (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	// Primary blob table: one fat row per chunk. No per-triple primary
	// rows are ever written here.
	`CREATE TABLE IF NOT EXISTS chunks (
		id           TEXT PRIMARY KEY,
		namespace    TEXT NOT NULL,
		triple_count INTEGER NOT NULL,
		min_ts       INTEGER NOT NULL,
		max_ts       INTEGER NOT NULL,
		size_bytes   INTEGER NOT NULL,
		data         BLOB NOT NULL,
		created_at   INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_chunks_namespace ON chunks(namespace, min_ts, max_ts)`,

	// Optional mirror table for secondary indexes only: never the
	// primary store for a triple.
	`CREATE TABLE IF NOT EXISTS triples_mirror (
		subject   TEXT NOT NULL,
		predicate TEXT NOT NULL,
		value     TEXT,
		timestamp INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_triples_mirror_subject ON triples_mirror(subject)`,

	// POS: (predicate, valueHash) -> subject.
	`CREATE TABLE IF NOT EXISTS idx_pos (
		predicate  TEXT NOT NULL,
		value_hash TEXT NOT NULL,
		subject    TEXT NOT NULL,
		PRIMARY KEY (predicate, value_hash, subject)
	)`,
	// OSP: (objectRef[, predicate]) -> subject, reverse-reference lookup.
	`CREATE TABLE IF NOT EXISTS idx_osp (
		object_ref TEXT NOT NULL,
		predicate  TEXT NOT NULL,
		subject    TEXT NOT NULL,
		PRIMARY KEY (object_ref, predicate, subject)
	)`,
	// FTS: tokenized inverted index, one row per (term, entity, predicate).
	`CREATE TABLE IF NOT EXISTS idx_fts (
		term      TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		predicate TEXT NOT NULL,
		score     REAL NOT NULL,
		PRIMARY KEY (term, entity_id, predicate)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_fts_entity ON idx_fts(entity_id)`,
	// FTS document lengths, tracked separately so BM25 can normalize
	// for field length without re-tokenizing at query time.
	`CREATE TABLE IF NOT EXISTS idx_fts_doclen (
		entity_id TEXT NOT NULL,
		predicate TEXT NOT NULL,
		length    INTEGER NOT NULL,
		PRIMARY KEY (entity_id, predicate)
	)`,
	// GEO: geohash prefix -> entity.
	`CREATE TABLE IF NOT EXISTS idx_geo (
		geohash   TEXT NOT NULL,
		entity_id TEXT NOT NULL,
		lat       REAL NOT NULL,
		lng       REAL NOT NULL,
		PRIMARY KEY (geohash, entity_id)
	)`,
	// HNSW graph storage: one hnsw_nodes row per predicate-namespaced
	// node; edges are one hnsw_edges row per (layer, node, neighbor).
	`CREATE TABLE IF NOT EXISTS hnsw_nodes (
		predicate  TEXT NOT NULL,
		node_id    INTEGER NOT NULL,
		max_layer  INTEGER NOT NULL,
		entity_id  TEXT NOT NULL,
		PRIMARY KEY (predicate, node_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hnsw_nodes_entity ON hnsw_nodes(predicate, entity_id)`,
	`CREATE TABLE IF NOT EXISTS hnsw_edges (
		predicate TEXT NOT NULL,
		layer     INTEGER NOT NULL,
		node_id   INTEGER NOT NULL,
		neighbor  INTEGER NOT NULL,
		PRIMARY KEY (predicate, layer, node_id, neighbor)
	)`,
	`CREATE TABLE IF NOT EXISTS hnsw_meta (
		predicate    TEXT PRIMARY KEY,
		entry_point  INTEGER NOT NULL,
		max_layer    INTEGER NOT NULL,
		node_count   INTEGER NOT NULL
	)`,
}
