package lookup

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/bloom"
	"github.com/cuemby/graphd/pkg/gcol"
	"github.com/cuemby/graphd/pkg/manifest"
	"github.com/cuemby/graphd/pkg/types"
)

// ManifestProvider resolves a namespace to its manifest, as cached
// locally by the shard's manifest store (pkg/manifest).
type ManifestProvider interface {
	ExportToR2Manifest(ctx context.Context, namespace string) (manifest.Manifest, bool, error)
}

// Stats accumulates per-lookup counters.
type Stats struct {
	RangeRequests   int
	FullFetches     int
	FooterCacheHits int
	R2FetchMs       int64
	DecodeMs        int64
	ChunksChecked   int
	TimeMs          int64
	Found           bool
}

type cachedFooter struct {
	footer   gcol.Footer
	index    []gcol.EntityIndexEntry
	fileSize uint64
}

// Lookup resolves entities within one shard's namespace manifests.
type Lookup struct {
	manifests ManifestProvider
	blobs     blobstore.Store
	log       zerolog.Logger

	mu     sync.Mutex
	footer map[string]cachedFooter // keyed by chunk path
}

func New(manifests ManifestProvider, blobs blobstore.Store, log zerolog.Logger) *Lookup {
	return &Lookup{
		manifests: manifests,
		blobs:     blobs,
		log:       log.With().Str("component", "lookup").Logger(),
		footer:    make(map[string]cachedFooter),
	}
}

// Get runs the V1 pipeline: combined-bloom reject, then per-chunk
// bloom narrowing, fetch, and full decode.
func (l *Lookup) Get(ctx context.Context, entityID string) (Entity, bool, Stats, error) {
	start := time.Now()
	var stats Stats
	ns := types.Namespace(types.EntityId(entityID))

	m, ok, err := l.manifests.ExportToR2Manifest(ctx, ns)
	if err != nil {
		return Entity{}, false, stats, err
	}
	if !ok {
		stats.TimeMs = time.Since(start).Milliseconds()
		return Entity{}, false, stats, nil
	}

	combined, err := bloom.Deserialize(m.CombinedBloom)
	if err == nil && combined.Count() > 0 && !combined.MightContainString(entityID) {
		stats.TimeMs = time.Since(start).Milliseconds()
		return Entity{}, false, stats, nil
	}

	var matched []types.Triple
	for _, ci := range m.Chunks {
		chunkBloom, err := bloom.Deserialize(ci.Bloom)
		if err == nil && chunkBloom.Count() > 0 && !chunkBloom.MightContainString(entityID) {
			continue
		}
		stats.ChunksChecked++

		fetchStart := time.Now()
		_, data, err := l.blobs.Get(ctx, ci.Path, nil)
		stats.R2FetchMs += time.Since(fetchStart).Milliseconds()
		if err != nil {
			l.log.Warn().Err(err).Str("chunk", ci.Path).Msg("skipping unreadable chunk")
			continue
		}

		decodeStart := time.Now()
		triples, err := gcol.Decode(data)
		stats.DecodeMs += time.Since(decodeStart).Milliseconds()
		if err != nil {
			l.log.Warn().Err(err).Str("chunk", ci.Path).Msg("skipping corrupt chunk")
			continue
		}
		for _, t := range triples {
			if string(t.Subject) == entityID {
				matched = append(matched, t)
			}
		}
	}

	stats.TimeMs = time.Since(start).Milliseconds()
	if len(matched) == 0 {
		return Entity{}, false, stats, nil
	}
	stats.Found = true
	return materialize(entityID, matched), true, stats, nil
}

// GetV2 runs the suffix-range fast path: a cached or freshly fetched
// footer+entity-index lets an absent entity be rejected without a
// full chunk fetch (testable property 3).
func (l *Lookup) GetV2(ctx context.Context, entityID, chunkPath string) (Entity, bool, Stats, error) {
	start := time.Now()
	var stats Stats

	cf, ok := l.cachedFooter(chunkPath)
	if ok {
		stats.FooterCacheHits++
	} else {
		fetchStart := time.Now()
		meta, tail, err := l.blobs.Get(ctx, chunkPath, &blobstore.RangeSpec{Suffix: u64ptr(gcol.SuffixRangeSize)})
		stats.R2FetchMs += time.Since(fetchStart).Milliseconds()
		stats.RangeRequests++
		if err != nil {
			stats.TimeMs = time.Since(start).Milliseconds()
			return Entity{}, false, stats, err
		}
		cf, err = l.parseAndCacheFooter(chunkPath, tail, meta.Size)
		if err != nil {
			stats.TimeMs = time.Since(start).Milliseconds()
			return Entity{}, false, stats, err
		}
	}

	entry, present := findEntityInIndex(cf.index, entityID)
	if !present {
		stats.TimeMs = time.Since(start).Milliseconds()
		return Entity{}, false, stats, nil
	}
	_ = entry

	fetchStart := time.Now()
	_, full, err := l.blobs.Get(ctx, chunkPath, nil)
	stats.R2FetchMs += time.Since(fetchStart).Milliseconds()
	stats.FullFetches++
	if err != nil {
		stats.TimeMs = time.Since(start).Milliseconds()
		return Entity{}, false, stats, err
	}

	decodeStart := time.Now()
	triples, found, err := gcol.DecodeEntity(full, entityID)
	stats.DecodeMs += time.Since(decodeStart).Milliseconds()
	stats.TimeMs = time.Since(start).Milliseconds()
	if err != nil {
		return Entity{}, false, stats, err
	}
	if !found {
		return Entity{}, false, stats, nil
	}
	stats.Found = true
	return materialize(entityID, triples), true, stats, nil
}

func (l *Lookup) cachedFooter(path string) (cachedFooter, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cf, ok := l.footer[path]
	return cf, ok
}

func (l *Lookup) parseAndCacheFooter(path string, tail []byte, fileSize uint64) (cachedFooter, error) {
	footer, index, err := gcol.ParseSuffixFooterAndIndex(tail, fileSize)
	if err != nil {
		return cachedFooter{}, err
	}
	cf := cachedFooter{footer: footer, index: index, fileSize: fileSize}
	l.mu.Lock()
	l.footer[path] = cf
	l.mu.Unlock()
	return cf, nil
}

// findEntityInIndex binary-searches entries, which are emitted sorted
// by EntityID.
func findEntityInIndex(entries []gcol.EntityIndexEntry, entityID string) (gcol.EntityIndexEntry, bool) {
	i := sort.Search(len(entries), func(i int) bool { return entries[i].EntityID >= entityID })
	if i < len(entries) && entries[i].EntityID == entityID {
		return entries[i], true
	}
	return gcol.EntityIndexEntry{}, false
}

func u64ptr(v uint64) *uint64 { return &v }
