// Package manifest implements the shard-local manifest store and its
// bidirectional sync against the authoritative blob-store manifest.
package manifest

import "github.com/cuemby/graphd/pkg/bloom"

// ChunkInfo describes one GraphCol chunk within a namespace's
// manifest.
type ChunkInfo struct {
	ID          string           `json:"id"`
	Path        string           `json:"path"`
	TripleCount uint32           `json:"tripleCount"`
	MinTime     uint64           `json:"minTime"`
	MaxTime     uint64           `json:"maxTime"`
	Bytes       uint64           `json:"bytes"`
	Bloom       bloom.Serialized `json:"bloom"`
}

// Manifest is the ground-truth JSON catalog for one namespace.
type Manifest struct {
	Namespace     string           `json:"namespace"`
	Version       string           `json:"version"`
	Chunks        []ChunkInfo      `json:"chunks"`
	CombinedBloom bloom.Serialized `json:"combinedBloom"`
	CreatedAt     int64            `json:"createdAt"`
}

// EntityIndexEntry locates one entity within one chunk's file, as
// recorded in the shard-local manifest store's entity roster.
type EntityIndexEntry struct {
	EntityID   string `json:"entityId"`
	FilePath   string `json:"filePath"`
	ByteOffset uint64 `json:"byteOffset"`
	ByteLength uint64 `json:"byteLength"`
}

// Row is the per-file manifest row persisted under
// `manifest:{namespace}:{path}`.
type Row struct {
	Namespace    string `json:"namespace"`
	Path         string `json:"path"`
	FooterOffset uint64 `json:"footerOffset"`
	FooterSize   uint64 `json:"footerSize"`
	EntityCount  uint32 `json:"entityCount"`
	Version      string `json:"version"`
	UpdatedAt    int64  `json:"updatedAt"`
}
