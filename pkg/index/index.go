// Package index implements the pluggable secondary-index store: POS,
// OSP, FTS and GEO indexes over triples (vector search lives in
// pkg/hnsw), each backed by the shard's embedded SQL engine
// (pkg/sqlstore) as the hot path, with one combined zstd-compressed
// JSON snapshot of all four per namespace persisted to the blob store.
package index

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

// Store is the facade over every secondary index, composing POS, OSP,
// FTS and GEO sub-indexes on top of one shared SQL database.
type Store struct {
	db  *sqlstore.Store
	pos *posIndex
	osp *ospIndex
	fts *ftsIndex
	geo *geoIndex
}

func New(db *sqlstore.Store) *Store {
	return &Store{
		db:  db,
		pos: &posIndex{db: db},
		osp: &ospIndex{db: db},
		fts: &ftsIndex{db: db},
		geo: &geoIndex{db: db},
	}
}

// IndexTriple updates every applicable sub-index for one triple.
// Re-indexing the same triple is idempotent.
func (s *Store) IndexTriple(ctx context.Context, t types.Triple) error {
	if err := s.pos.index(ctx, t); err != nil {
		return err
	}
	if t.Object.IsRef() {
		if err := s.osp.index(ctx, t); err != nil {
			return err
		}
	}
	if t.Object.Tag == types.TagString {
		if err := s.fts.index(ctx, t); err != nil {
			return err
		}
	}
	if t.Object.Tag == types.TagGeoPoint {
		if err := s.geo.index(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// IndexTriples indexes a batch.
func (s *Store) IndexTriples(ctx context.Context, triples []types.Triple) error {
	for _, t := range triples {
		if err := s.IndexTriple(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// UnindexTriple removes one triple's entries from every sub-index.
func (s *Store) UnindexTriple(ctx context.Context, t types.Triple) error {
	if err := s.pos.unindex(ctx, t); err != nil {
		return err
	}
	if err := s.osp.unindex(ctx, t); err != nil {
		return err
	}
	if err := s.fts.unindex(ctx, t); err != nil {
		return err
	}
	return s.geo.unindex(ctx, t)
}

// POS exposes the (predicate, valueHash) -> subject query contract.
func (s *Store) POS() *posIndex { return s.pos }

// OSP exposes the reverse-reference query contract.
func (s *Store) OSP() *ospIndex { return s.osp }

// FTS exposes tokenized term search.
func (s *Store) FTS() *ftsIndex { return s.fts }

// GEO exposes geohash-bucketed spatial search.
func (s *Store) GEO() *geoIndex { return s.geo }

// ValueHash computes the POS value-hash key for a typed object,
// per-type: strings are hashed by their first 100 characters plus an
// FNV-1a tail (keeps the key bounded while still discriminating long
// values), numerics are stringified directly, and geo points use
// 6-decimal "lat,lng".
func ValueHash(o types.TypedObject) string {
	switch o.Tag {
	case types.TagString, types.TagURL, types.TagJSON, types.TagDate:
		return hashString(o.Str)
	case types.TagInt64:
		return strconv.FormatInt(o.Int64, 10)
	case types.TagFloat64:
		return strconv.FormatFloat(o.Float64, 'g', -1, 64)
	case types.TagBool:
		return strconv.FormatBool(o.Bool)
	case types.TagGeoPoint:
		return fmt.Sprintf("%.6f,%.6f", o.Geo.Lat, o.Geo.Lng)
	case types.TagTimestamp:
		return strconv.FormatInt(o.Time.UnixMilli(), 10)
	default:
		return ""
	}
}

func hashString(s string) string {
	prefix := s
	if len(prefix) > 100 {
		prefix = prefix[:100]
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return prefix + "#" + strconv.FormatUint(h.Sum64(), 16)
}

func wrapRead(op string, err error) error {
	if err == nil {
		return nil
	}
	return graphdberr.Wrap(graphdberr.CodeStorageRead, "index: "+op, err)
}

func wrapWrite(op string, err error) error {
	if err == nil {
		return nil
	}
	return graphdberr.Wrap(graphdberr.CodeStorageWrite, "index: "+op, err)
}

func normalizeRef(e types.EntityId) string { return strings.TrimSpace(string(e)) }
