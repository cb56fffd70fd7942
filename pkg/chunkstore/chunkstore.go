// Package chunkstore implements the per-shard write path: an
// append-only in-memory triple buffer that flushes to blob-only rows
// in the embedded SQL engine, and a query path that merges the buffer
// with the persisted chunks. No per-triple row is ever written as a
// primary record — only fat, chunk-sized blobs.
package chunkstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cuemby/graphd/pkg/gcol"
	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

// Config bounds buffer size and compaction eligibility.
type Config struct {
	Namespace                string
	MaxBufferTriples         int
	MinChunksForCompaction   int
	MinChunkSizeForCompaction uint64
}

func (c Config) withDefaults() Config {
	if c.MaxBufferTriples <= 0 {
		c.MaxBufferTriples = 10_000
	}
	if c.MinChunksForCompaction <= 0 {
		c.MinChunksForCompaction = 4
	}
	if c.MinChunkSizeForCompaction == 0 {
		c.MinChunkSizeForCompaction = 512 * 1024
	}
	return c
}

// ChunkRow mirrors one row of the `chunks` table.
type ChunkRow struct {
	ID          string
	Namespace   string
	TripleCount uint32
	MinTime     uint64
	MaxTime     uint64
	SizeBytes   uint64
	CreatedAt   int64
}

// Stats summarizes the store's current state.
type Stats struct {
	BufferedTriples int
	ChunkCount      int
	TotalBytes      uint64
}

// Store is the per-shard write buffer plus its blob-chunked persistence.
type Store struct {
	db     *sqlstore.Store
	cfg    Config
	log    zerolog.Logger
	buffer []types.Triple
}

func New(db *sqlstore.Store, cfg Config, log zerolog.Logger) *Store {
	return &Store{db: db, cfg: cfg.withDefaults(), log: log.With().Str("component", "chunkstore").Logger()}
}

// Write appends triples to the in-memory buffer. No I/O occurs here.
func (s *Store) Write(triples []types.Triple) {
	s.buffer = append(s.buffer, triples...)
}

// ShouldAutoFlush reports whether the buffer has crossed its size bound.
func (s *Store) ShouldAutoFlush() bool {
	return len(s.buffer) >= s.cfg.MaxBufferTriples
}

// Flush encodes the buffer into one new chunk row, if non-empty, and
// clears the buffer on success. Returns "", nil when there was
// nothing to flush.
func (s *Store) Flush(ctx context.Context) (string, error) {
	return s.flush(ctx)
}

// ForceFlush is like Flush but is always called on hibernation or
// shutdown regardless of buffer size.
func (s *Store) ForceFlush(ctx context.Context) (string, error) {
	return s.flush(ctx)
}

func (s *Store) flush(ctx context.Context) (string, error) {
	if len(s.buffer) == 0 {
		return "", nil
	}

	buf, err := gcol.Encode(s.buffer, gcol.Version2)
	if err != nil {
		return "", graphdberr.Wrap(graphdberr.CodeCorruptFormat, "chunkstore: encode chunk", err)
	}

	minTime, maxTime := minMaxTimestamp(s.buffer)
	id := uuid.NewString()
	_, err = s.db.DB.ExecContext(ctx,
		`INSERT INTO chunks (id, namespace, triple_count, min_ts, max_ts, size_bytes, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.cfg.Namespace, len(s.buffer), minTime, maxTime, len(buf), buf, time.Now().UnixMilli())
	if err != nil {
		return "", graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: insert chunk row", err)
	}

	s.buffer = s.buffer[:0]
	return id, nil
}

// Query resolves a subject's current triples by merging the unflushed
// buffer with every persisted chunk of this store's namespace (each is
// decoded; chunks are not pre-filtered by min_ts/max_ts),
// newest-timestamp-wins per predicate and the buffer winning ties
// against chunks.
func (s *Store) Query(ctx context.Context, subject types.EntityId) ([]types.Triple, error) {
	newest := make(map[types.Predicate]types.Triple)
	apply := func(t types.Triple, bufferWins bool) {
		cur, ok := newest[t.Predicate]
		if !ok || t.Timestamp > cur.Timestamp || (bufferWins && t.Timestamp == cur.Timestamp) {
			newest[t.Predicate] = t
		}
	}

	for _, t := range s.buffer {
		if t.Subject == subject {
			apply(t, true)
		}
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, data FROM chunks WHERE namespace = ?`, s.cfg.Namespace)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: scan chunks", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: scan chunk row", err)
		}
		triples, err := gcol.Decode(data)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk", id).Msg("skipping corrupt chunk during query")
			continue
		}
		for _, t := range triples {
			if t.Subject == subject {
				apply(t, false)
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: iterate chunks", err)
	}

	out := make([]types.Triple, 0, len(newest))
	for _, t := range newest {
		out = append(out, t)
	}
	return out, nil
}

// List returns metadata for every persisted chunk in this namespace.
func (s *Store) List(ctx context.Context) ([]ChunkRow, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT id, namespace, triple_count, min_ts, max_ts, size_bytes, created_at
		 FROM chunks WHERE namespace = ? ORDER BY created_at`, s.cfg.Namespace)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: list chunks", err)
	}
	defer rows.Close()

	var out []ChunkRow
	for rows.Next() {
		var c ChunkRow
		if err := rows.Scan(&c.ID, &c.Namespace, &c.TripleCount, &c.MinTime, &c.MaxTime, &c.SizeBytes, &c.CreatedAt); err != nil {
			return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: scan chunk row", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Delete removes one chunk row by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.DB.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, id)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: delete chunk", err)
	}
	return nil
}

// Stats reports the buffer's current size and the namespace's
// persisted chunk footprint.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return Stats{}, err
	}
	st := Stats{BufferedTriples: len(s.buffer), ChunkCount: len(rows)}
	for _, r := range rows {
		st.TotalBytes += r.SizeBytes
	}
	return st, nil
}

// Compact merges small chunks into one larger chunk when at least
// MinChunksForCompaction chunks are each below
// MinChunkSizeForCompaction, preserving every subject's merged
// triples (testable property 6). Returns the number of source chunks
// that were merged (0 if compaction did not run).
func (s *Store) Compact(ctx context.Context) (int, error) {
	rows, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	var small []ChunkRow
	for _, r := range rows {
		if r.SizeBytes < s.cfg.MinChunkSizeForCompaction {
			small = append(small, r)
		}
	}
	if len(small) < s.cfg.MinChunksForCompaction {
		return 0, nil
	}

	merged := make(map[string]types.Triple) // keyed by subject|predicate, newest wins
	for _, r := range small {
		data, err := s.fetchChunkData(ctx, r.ID)
		if err != nil {
			return 0, err
		}
		triples, err := gcol.Decode(data)
		if err != nil {
			s.log.Warn().Err(err).Str("chunk", r.ID).Msg("skipping corrupt chunk during compaction")
			continue
		}
		for _, t := range triples {
			key := string(t.Subject) + "|" + string(t.Predicate)
			if cur, ok := merged[key]; !ok || t.Timestamp >= cur.Timestamp {
				merged[key] = t
			}
		}
	}

	out := make([]types.Triple, 0, len(merged))
	for _, t := range merged {
		out = append(out, t)
	}
	buf, err := gcol.Encode(out, gcol.Version2)
	if err != nil {
		return 0, graphdberr.Wrap(graphdberr.CodeCorruptFormat, "chunkstore: re-encode compacted chunk", err)
	}
	minTime, maxTime := minMaxTimestamp(out)

	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: begin compaction tx", err)
	}
	if err := s.runCompactionTx(ctx, tx, small, out, buf, minTime, maxTime); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: commit compaction", err)
	}
	return len(small), nil
}

func (s *Store) runCompactionTx(ctx context.Context, tx *sql.Tx, small []ChunkRow, out []types.Triple, buf []byte, minTime, maxTime uint64) error {
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO chunks (id, namespace, triple_count, min_ts, max_ts, size_bytes, data, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, s.cfg.Namespace, len(out), minTime, maxTime, len(buf), buf, time.Now().UnixMilli()); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: insert compacted chunk", err)
	}
	for _, r := range small {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE id = ?`, r.ID); err != nil {
			return graphdberr.Wrap(graphdberr.CodeStorageWrite, "chunkstore: delete source chunk", err)
		}
	}
	return nil
}

func (s *Store) fetchChunkData(ctx context.Context, id string) ([]byte, error) {
	var data []byte
	err := s.db.DB.QueryRowContext(ctx, `SELECT data FROM chunks WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "chunkstore: fetch chunk data", err)
	}
	return data, nil
}

func minMaxTimestamp(triples []types.Triple) (min, max uint64) {
	if len(triples) == 0 {
		return 0, 0
	}
	min, max = triples[0].Timestamp, triples[0].Timestamp
	for _, t := range triples[1:] {
		if t.Timestamp < min {
			min = t.Timestamp
		}
		if t.Timestamp > max {
			max = t.Timestamp
		}
	}
	return min, max
}
