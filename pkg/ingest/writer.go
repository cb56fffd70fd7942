// Package ingest implements the batched triple writer and the
// resumable import checkpoint manager.
package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/bloom"
	"github.com/cuemby/graphd/pkg/gcol"
	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/manifest"
	"github.com/cuemby/graphd/pkg/types"
)

const defaultBatchSize = 10_000

// WriterState is the snapshottable portion of a Writer, embedded in
// an ingest Checkpoint for resume.
type WriterState struct {
	TriplesWritten uint64                  `json:"triplesWritten"`
	ChunksUploaded uint64                  `json:"chunksUploaded"`
	BytesUploaded  uint64                  `json:"bytesUploaded"`
	ChunkInfos     []manifest.ChunkInfo    `json:"chunkInfos"`
	CombinedBloom  bloom.Serialized        `json:"bloomState"`
}

// WriterConfig tunes batching and backpressure behavior.
type WriterConfig struct {
	Namespace         string
	BatchSize         int
	MaxPendingBatches int
	BloomCapacity     uint64
	BloomFPR          float64
}

func (c WriterConfig) withDefaults() WriterConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}
	if c.BloomCapacity == 0 {
		c.BloomCapacity = uint64(c.BatchSize)
	}
	if c.BloomFPR <= 0 {
		c.BloomFPR = 0.01
	}
	return c
}

// Writer buffers triples and flushes them as GraphCol chunks.
// Individual triples are never the unit of persistence — every flush
// produces exactly one chunk.
type Writer struct {
	blobs blobstore.Store
	cfg   WriterConfig

	buffer        []types.Triple
	combinedBloom *bloom.Filter
	pendingBatches int
	state         WriterState
}

// New constructs a Writer against the given blob store.
func New(blobs blobstore.Store, cfg WriterConfig) *Writer {
	cfg = cfg.withDefaults()
	return &Writer{
		blobs:         blobs,
		cfg:           cfg,
		combinedBloom: bloom.New(cfg.BloomCapacity, cfg.BloomFPR),
	}
}

// Write appends triples to the in-memory buffer. No I/O occurs here,
// and Write never flushes by itself: callers check ShouldAutoFlush
// (true once BatchSize is reached) and call Flush to persist.
func (w *Writer) Write(triples []types.Triple) {
	w.buffer = append(w.buffer, triples...)
	for _, t := range triples {
		w.combinedBloom.AddString(string(t.Subject))
	}
}

// IsBackpressured reports whether the writer has reached its
// configured pending-flush bound; callers should await before adding
// more triples.
func (w *Writer) IsBackpressured() bool {
	return w.cfg.MaxPendingBatches > 0 && w.pendingBatches >= w.cfg.MaxPendingBatches
}

// ShouldAutoFlush reports whether the buffer has reached BatchSize.
func (w *Writer) ShouldAutoFlush() bool {
	return len(w.buffer) >= w.cfg.BatchSize
}

// Flush encodes the current buffer (if non-empty) as one GraphCol
// chunk, uploads it, and advances committed counters only on success.
// A failed upload leaves the buffer untouched so a retried flush
// includes the same data.
func (w *Writer) Flush(ctx context.Context) (*manifest.ChunkInfo, error) {
	if len(w.buffer) == 0 {
		return nil, nil
	}

	w.pendingBatches++
	defer func() { w.pendingBatches-- }()

	encoded, err := gcol.Encode(w.buffer, gcol.Version2)
	if err != nil {
		return nil, err
	}

	chunkID := uuid.NewString()
	path := types.BlobPath(w.cfg.Namespace, chunkID)
	if err := w.blobs.Put(ctx, path, encoded, blobstore.PutOptions{ContentType: "application/octet-stream"}); err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeR2WriteFailed, fmt.Sprintf("upload chunk %s", chunkID), err)
	}

	minTS, maxTS := w.buffer[0].Timestamp, w.buffer[0].Timestamp
	chunkBloom := bloom.New(uint64(len(w.buffer)), w.cfg.BloomFPR)
	for _, t := range w.buffer {
		if t.Timestamp < minTS {
			minTS = t.Timestamp
		}
		if t.Timestamp > maxTS {
			maxTS = t.Timestamp
		}
		chunkBloom.AddString(string(t.Subject))
	}

	info := manifest.ChunkInfo{
		ID:          chunkID,
		Path:        path,
		TripleCount: uint32(len(w.buffer)),
		MinTime:     minTS,
		MaxTime:     maxTS,
		Bytes:       uint64(len(encoded)),
		Bloom:       chunkBloom.Serialize(),
	}

	w.state.TriplesWritten += uint64(len(w.buffer))
	w.state.ChunksUploaded++
	w.state.BytesUploaded += info.Bytes
	w.state.ChunkInfos = append(w.state.ChunkInfos, info)
	w.buffer = w.buffer[:0]

	return &info, nil
}

// Finalize flushes any remaining buffer and returns final totals.
// Idempotent: calling it on an empty writer returns zero totals.
func (w *Writer) Finalize(ctx context.Context) (WriterState, error) {
	if _, err := w.Flush(ctx); err != nil {
		return w.State(), err
	}
	return w.State(), nil
}

// State returns a snapshot of the writer's committed progress,
// suitable for embedding in a Checkpoint.
func (w *Writer) State() WriterState {
	s := w.state
	s.CombinedBloom = w.combinedBloom.Serialize()
	return s
}

// RestoreState re-establishes a writer's committed progress and
// combined bloom from a prior snapshot. The in-memory buffer is
// always empty after restore: uncommitted contents are never part of
// committed state.
func (w *Writer) RestoreState(s WriterState) error {
	w.state = s
	w.buffer = nil
	if len(s.CombinedBloom.Filter) == 0 {
		w.combinedBloom = bloom.New(w.cfg.BloomCapacity, w.cfg.BloomFPR)
		return nil
	}
	f, err := bloom.Deserialize(s.CombinedBloom)
	if err != nil {
		return graphdberr.Wrap(graphdberr.CodeInvalidCheckpoint, "restore combined bloom", err)
	}
	w.combinedBloom = f
	return nil
}
