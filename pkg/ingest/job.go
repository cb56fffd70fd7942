package ingest

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/rs/zerolog"

	"github.com/cuemby/graphd/pkg/bloom"
	"github.com/cuemby/graphd/pkg/fetch"
	"github.com/cuemby/graphd/pkg/lines"
	"github.com/cuemby/graphd/pkg/manifest"
	"github.com/cuemby/graphd/pkg/types"
)

// JobConfig names one import run: the source to stream from and the
// namespace its triples land in.
type JobConfig struct {
	JobID     string
	Namespace string
	SourceURL string

	// MaxBufferSize caps the line reader's partial-line buffer. Zero
	// keeps lines.Reader's own default.
	MaxBufferSize int
}

// Job drives one streaming/resumable import end to end: range-fetches
// a source, frames it into lines, parses each line into a triple, and
// hands triples to a Writer, persisting a Checkpoint often enough
// that a crash loses at most one in-flight batch.
type Job struct {
	cfg         JobConfig
	fetcher     *fetch.Fetcher
	writer      *Writer
	checkpoints *CheckpointManager
	manifests   *manifest.Store
	log         zerolog.Logger

	lineReader *lines.Reader
	offset     uint64
	skipped    uint64
}

// NewJob constructs a Job from its collaborators. fetcher and writer
// are already configured for cfg.SourceURL/cfg.Namespace by the
// caller (typically pkg/shard's wiring).
func NewJob(cfg JobConfig, fetcher *fetch.Fetcher, writer *Writer, checkpoints *CheckpointManager, manifests *manifest.Store, log zerolog.Logger) *Job {
	return &Job{
		cfg:         cfg,
		fetcher:     fetcher,
		writer:      writer,
		checkpoints: checkpoints,
		manifests:   manifests,
		log:         log.With().Str("component", "ingest.job").Str("jobId", cfg.JobID).Logger(),
		lineReader:  newLineReader(cfg),
	}
}

func newLineReader(cfg JobConfig) *lines.Reader {
	if cfg.MaxBufferSize <= 0 {
		return lines.New()
	}
	return lines.New(lines.WithMaxBufferSize(cfg.MaxBufferSize))
}

// Resume restores fetch offset, line-framing state, and writer
// progress from a previously saved Checkpoint, if one exists.
func (j *Job) Resume(ctx context.Context) (bool, error) {
	ckpt, ok, err := j.checkpoints.Load(ctx, j.cfg.JobID)
	if err != nil || !ok {
		return false, err
	}
	j.offset = ckpt.ByteOffset
	j.lineReader = newLineReader(j.cfg)
	j.lineReader.RestoreState(ckpt.LineReaderState)
	if err := j.writer.RestoreState(ckpt.BatchWriterState); err != nil {
		return false, err
	}
	j.log.Info().Uint64("offset", j.offset).Uint64("linesProcessed", ckpt.LinesProcessed).Msg("resumed import job")
	return true, nil
}

// Run streams the source to completion, flushing and checkpointing as
// it goes, then registers the finalized chunk set as this namespace's
// manifest.
func (j *Job) Run(ctx context.Context) error {
	linesProcessed := uint64(0)
	next := j.fetcher.Chunks(ctx, j.offset)
	for {
		r, ok, err := next()
		if err != nil {
			return err
		}
		if !ok {
			break
		}

		for _, raw := range j.lineReader.Feed(r.Data) {
			linesProcessed++
			j.ingestLine(raw)
		}

		if j.writer.ShouldAutoFlush() {
			if _, err := j.writer.Flush(ctx); err != nil {
				return err
			}
			// Checkpoint only right after a flush, so ByteOffset never
			// points past triples that are still only buffered.
			if err := j.saveCheckpoint(ctx, r.End+1, linesProcessed); err != nil {
				return err
			}
		}
	}

	for _, raw := range j.lineReader.Flush() {
		linesProcessed++
		j.ingestLine(raw)
	}

	if _, err := j.writer.Finalize(ctx); err != nil {
		return err
	}
	if err := j.checkpoints.Delete(ctx, j.cfg.JobID); err != nil {
		return err
	}

	return j.registerManifest(ctx)
}

// Skipped reports how many malformed lines this job has skipped so far.
func (j *Job) Skipped() uint64 {
	return j.skipped
}

func (j *Job) ingestLine(raw string) {
	t, err := ParseTripleLine([]byte(raw))
	if err != nil {
		j.skipped++
		j.log.Warn().Err(err).Msg("skipping malformed import line")
		return
	}
	j.writer.Write([]types.Triple{t})
}

func (j *Job) saveCheckpoint(ctx context.Context, byteOffset, linesProcessed uint64) error {
	ckpt := Checkpoint{
		JobID:            j.cfg.JobID,
		SourceURL:        j.cfg.SourceURL,
		ByteOffset:       byteOffset,
		LinesProcessed:   linesProcessed,
		TriplesWritten:   j.writer.State().TriplesWritten,
		LineReaderState:  j.lineReader.State(),
		BatchWriterState: j.writer.State(),
	}
	return j.checkpoints.Save(ctx, ckpt, time.Now())
}

func (j *Job) registerManifest(ctx context.Context) error {
	state := j.writer.State()
	m := manifest.Manifest{
		Namespace:     j.cfg.Namespace,
		Version:       manifestVersion(state.ChunkInfos, state.CombinedBloom),
		Chunks:        state.ChunkInfos,
		CombinedBloom: state.CombinedBloom,
		CreatedAt:     time.Now().UnixMilli(),
	}
	return j.manifests.ImportFromR2Manifest(ctx, m)
}

// manifestVersion derives a content-hash version string so a
// manifest's identity changes exactly when its chunk membership does,
// without depending on synchronized wall clocks across shards (Open
// Question decision, DESIGN.md).
func manifestVersion(chunks []manifest.ChunkInfo, combinedBloom bloom.Serialized) string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	sort.Strings(ids)

	h := xxhash.New()
	for _, id := range ids {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
	}
	_, _ = h.WriteString(combinedBloom.Filter)
	return fmt.Sprintf("%016x", h.Sum64())
}
