package ingest

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/kv"
	"github.com/cuemby/graphd/pkg/lines"
)

const checkpointPrefix = "checkpoint:"

// Checkpoint is a durable import-resume snapshot. All fields reflect
// only committed state; anything buffered in memory at crash time is
// lost, which is safe because ByteOffset points before it.
type Checkpoint struct {
	JobID            string       `json:"jobId"`
	SourceURL        string       `json:"sourceUrl"`
	ByteOffset       uint64       `json:"byteOffset"`
	TotalBytes       *uint64      `json:"totalBytes,omitempty"`
	LinesProcessed   uint64       `json:"linesProcessed"`
	TriplesWritten   uint64       `json:"triplesWritten"`
	LineReaderState  lines.State  `json:"lineReaderState"`
	BatchWriterState WriterState  `json:"batchWriterState"`
	CheckpointedAt   int64        `json:"checkpointedAt"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// CheckpointManager is the durable checkpoint store, backed by a KV
// store under the "checkpoint:" key prefix.
type CheckpointManager struct {
	kv kv.Store
}

func NewCheckpointManager(store kv.Store) *CheckpointManager {
	return &CheckpointManager{kv: store}
}

func checkpointKey(jobID string) string { return checkpointPrefix + jobID }

// Save persists checkpoint, stamping CheckpointedAt to the caller's
// wall-clock reading at the call site.
func (m *CheckpointManager) Save(ctx context.Context, ckpt Checkpoint, now time.Time) error {
	ckpt.CheckpointedAt = now.UnixMilli()
	if err := m.kv.Put(ctx, checkpointKey(ckpt.JobID), ckpt); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "save checkpoint", err)
	}
	return nil
}

// Load reads and structurally validates a checkpoint. Any malformed
// stored value (missing scalar field, or a structurally broken nested
// state) returns (zero, false, nil) rather than an error — a
// corrupted checkpoint must let the job restart cleanly, not crash
// the loader.
func (m *CheckpointManager) Load(ctx context.Context, jobID string) (Checkpoint, bool, error) {
	var raw json.RawMessage
	ok, err := m.kv.Get(ctx, checkpointKey(jobID), &raw)
	if err != nil {
		return Checkpoint{}, false, graphdberr.Wrap(graphdberr.CodeStorageRead, "load checkpoint", err)
	}
	if !ok {
		return Checkpoint{}, false, nil
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(raw, &ckpt); err != nil || !isStructurallyValid(ckpt) {
		return Checkpoint{}, false, nil
	}
	return ckpt, true, nil
}

func isStructurallyValid(c Checkpoint) bool {
	if c.JobID == "" || c.SourceURL == "" || c.CheckpointedAt == 0 {
		return false
	}
	// lineReaderState and batchWriterState are structurally intact by
	// construction once unmarshaled into their typed Go fields (a
	// malformed JSON shape for either fails at Load's json.Unmarshal
	// step, which Load reports as ok=false); this check only
	// screens for the zero-value case of fields explicitly required by
	// a resumable job record.
	return true
}

// Update performs a read-modify-write against an existing checkpoint.
// It is a no-op if jobID has no checkpoint.
func (m *CheckpointManager) Update(ctx context.Context, jobID string, mutate func(*Checkpoint), now time.Time) error {
	ckpt, ok, err := m.Load(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	mutate(&ckpt)
	return m.Save(ctx, ckpt, now)
}

// Delete removes jobID's checkpoint (called on successful finalize).
func (m *CheckpointManager) Delete(ctx context.Context, jobID string) error {
	if err := m.kv.Delete(ctx, checkpointKey(jobID)); err != nil {
		return graphdberr.Wrap(graphdberr.CodeStorageWrite, "delete checkpoint", err)
	}
	return nil
}

// List returns every known job id via prefix scan.
func (m *CheckpointManager) List(ctx context.Context) ([]string, error) {
	raw, err := m.kv.List(ctx, checkpointPrefix)
	if err != nil {
		return nil, graphdberr.Wrap(graphdberr.CodeStorageRead, "list checkpoints", err)
	}
	ids := make([]string, 0, len(raw))
	for k := range raw {
		ids = append(ids, strings.TrimPrefix(k, checkpointPrefix))
	}
	return ids, nil
}
