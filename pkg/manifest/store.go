package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/kv"
	"github.com/cuemby/graphd/pkg/types"
)

const (
	defaultMaxCachedNamespaces    = 10
	defaultMaxEntitiesPerNS       = 100_000
	manifestRowPrefix             = "manifest:"
	entityRowPrefix               = "entity:"
	entityIndexRosterKeyPrefixFmt = "entityIndex:%s"
)

// Store is the shard-local manifest store: per-file manifest rows
// and entity-index rows backed by a KV store, with an in-memory
// per-namespace entity-index cache bounded by LRU eviction.
type Store struct {
	kv kv.Store

	mu                      sync.Mutex
	cache                   *lru.Cache[string, map[string]EntityIndexEntry]
	maxEntitiesPerNamespace int
}

// Config tunes the store's in-memory cache bounds.
type Config struct {
	MaxCachedNamespaces    int
	MaxEntitiesPerNamespace int
}

func (c Config) withDefaults() Config {
	if c.MaxCachedNamespaces <= 0 {
		c.MaxCachedNamespaces = defaultMaxCachedNamespaces
	}
	if c.MaxEntitiesPerNamespace <= 0 {
		c.MaxEntitiesPerNamespace = defaultMaxEntitiesPerNS
	}
	return c
}

// New constructs a Store over the given KV handle.
func New(store kv.Store, cfg Config) (*Store, error) {
	cfg = cfg.withDefaults()
	cache, err := lru.New[string, map[string]EntityIndexEntry](cfg.MaxCachedNamespaces)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageWrite, "build manifest LRU cache", err)
	}
	return &Store{kv: store, cache: cache, maxEntitiesPerNamespace: cfg.MaxEntitiesPerNamespace}, nil
}

func manifestKey(namespace, path string) string {
	return fmt.Sprintf("%s%s:%s", manifestRowPrefix, namespace, path)
}

func entityKey(entityID string) string {
	return entityRowPrefix + entityID
}

func rosterKey(namespace string) string {
	return fmt.Sprintf(entityIndexRosterKeyPrefixFmt, namespace)
}

// Get returns the manifest row for (namespace, path), if present.
func (s *Store) Get(ctx context.Context, namespace, path string) (Row, bool, error) {
	var row Row
	ok, err := s.kv.Get(ctx, manifestKey(namespace, path), &row)
	if err != nil {
		return Row{}, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "get manifest row", err)
	}
	return row, ok, nil
}

// Put upserts a manifest row.
func (s *Store) Put(ctx context.Context, row Row) error {
	row.UpdatedAt = time.Now().UnixMilli()
	if err := s.kv.Put(ctx, manifestKey(row.Namespace, row.Path), row); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "put manifest row", err)
	}
	return nil
}

// Delete removes a manifest row.
func (s *Store) Delete(ctx context.Context, namespace, path string) error {
	if err := s.kv.Delete(ctx, manifestKey(namespace, path)); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "delete manifest row", err)
	}
	return nil
}

// List returns every manifest row for a namespace.
func (s *Store) List(ctx context.Context, namespace string) ([]Row, error) {
	raw, err := s.kv.List(ctx, manifestRowPrefix+namespace+":")
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "list manifest rows", err)
	}
	rows := make([]Row, 0, len(raw))
	for _, v := range raw {
		var row Row
		if err := json.Unmarshal(v, &row); err != nil {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadEntityIndex returns the cached entity index for namespace,
// loading it from the KV roster on a cache miss.
func (s *Store) LoadEntityIndex(ctx context.Context, namespace string) (map[string]EntityIndexEntry, error) {
	s.mu.Lock()
	if m, ok := s.cache.Get(namespace); ok {
		s.mu.Unlock()
		return m, nil
	}
	s.mu.Unlock()

	var ids []string
	if _, err := s.kv.Get(ctx, rosterKey(namespace), &ids); err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "load entity roster", err)
	}

	out := make(map[string]EntityIndexEntry, len(ids))
	for _, id := range ids {
		var e EntityIndexEntry
		if ok, err := s.kv.Get(ctx, entityKey(id), &e); err == nil && ok {
			out[id] = e
		}
		if len(out) >= s.maxEntitiesPerNamespace {
			break
		}
	}

	s.mu.Lock()
	s.cache.Add(namespace, out)
	s.mu.Unlock()
	return out, nil
}

// PutEntityIndex batch-writes entries plus the namespace roster and
// refreshes the in-memory cache.
func (s *Store) PutEntityIndex(ctx context.Context, namespace string, entries []EntityIndexEntry) error {
	if len(entries) > s.maxEntitiesPerNamespace {
		entries = entries[:s.maxEntitiesPerNamespace]
	}

	batch := make(map[string]any, len(entries)+1)
	ids := make([]string, 0, len(entries))
	index := make(map[string]EntityIndexEntry, len(entries))
	for _, e := range entries {
		batch[entityKey(e.EntityID)] = e
		ids = append(ids, e.EntityID)
		index[e.EntityID] = e
	}
	batch[rosterKey(namespace)] = ids

	if err := s.kv.PutBatch(ctx, batch); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "put entity index batch", err)
	}

	s.mu.Lock()
	s.cache.Add(namespace, index)
	s.mu.Unlock()
	return nil
}

// LookupEntity resolves entityID to its index entry, extracting the
// namespace and ensuring that namespace's index is loaded.
func (s *Store) LookupEntity(ctx context.Context, entityID string) (EntityIndexEntry, bool, error) {
	ns := types.Namespace(types.EntityId(entityID))
	index, err := s.LoadEntityIndex(ctx, ns)
	if err != nil {
		return EntityIndexEntry{}, false, err
	}
	e, ok := index[entityID]
	return e, ok, nil
}
