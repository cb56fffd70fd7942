package ingest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/bloom"
	"github.com/cuemby/graphd/pkg/fetch"
	"github.com/cuemby/graphd/pkg/kv"
	"github.com/cuemby/graphd/pkg/manifest"
)

func tripleLine(i int) string {
	return `{"subject":"https://ex.com/e/` + strconv.Itoa(i) + `","predicate":"name","timestamp":` +
		strconv.Itoa(i) + `,"object":{"type":"STRING","str":"v` + strconv.Itoa(i) + `"}}`
}

// sourceServer serves a fixed NDJSON body, always as a full 200
// response (ignoring Range), so fetch.Fetcher treats it as a single
// complete chunk.
func sourceServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestJobRunParsesLinesAndRegistersManifest(t *testing.T) {
	ctx := context.Background()
	var lines []string
	for i := 0; i < 5; i++ {
		lines = append(lines, tripleLine(i))
	}
	srv := sourceServer(t, strings.Join(lines, "\n")+"\n")

	blobs := blobstore.NewMemStore()
	store := kv.NewMemKV()
	manifests, err := manifest.New(store, manifest.Config{})
	require.NoError(t, err)
	checkpoints := NewCheckpointManager(store)
	writer := New(blobs, WriterConfig{Namespace: "ns", BatchSize: 100})
	fetcher := fetch.New(nil, srv.URL, fetch.Config{}, zerolog.Nop())

	job := NewJob(JobConfig{JobID: "job1", Namespace: "ns", SourceURL: srv.URL}, fetcher, writer, checkpoints, manifests, zerolog.Nop())
	require.NoError(t, job.Run(ctx))

	m, ok, err := manifests.ExportToR2Manifest(ctx, "ns")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ns", m.Namespace)
	assert.Len(t, m.Chunks, 1)
	assert.Equal(t, uint32(5), m.Chunks[0].TripleCount)
	assert.NotEmpty(t, m.Version)

	_, ok, err = checkpoints.Load(ctx, "job1")
	require.NoError(t, err)
	assert.False(t, ok, "checkpoint should be deleted after a successful run")
}

func TestJobRunSkipsMalformedLinesWithoutAborting(t *testing.T) {
	ctx := context.Background()
	body := tripleLine(0) + "\nnot json\n" + tripleLine(1) + "\n"
	srv := sourceServer(t, body)

	blobs := blobstore.NewMemStore()
	store := kv.NewMemKV()
	manifests, err := manifest.New(store, manifest.Config{})
	require.NoError(t, err)
	checkpoints := NewCheckpointManager(store)
	writer := New(blobs, WriterConfig{Namespace: "ns", BatchSize: 100})
	fetcher := fetch.New(nil, srv.URL, fetch.Config{}, zerolog.Nop())

	job := NewJob(JobConfig{JobID: "job2", Namespace: "ns", SourceURL: srv.URL}, fetcher, writer, checkpoints, manifests, zerolog.Nop())
	require.NoError(t, job.Run(ctx))

	m, ok, err := manifests.ExportToR2Manifest(ctx, "ns")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, m.Chunks, 1)
	assert.Equal(t, uint32(2), m.Chunks[0].TripleCount)
	assert.Equal(t, uint64(1), job.skipped)
}

func TestManifestVersionChangesWithChunkMembership(t *testing.T) {
	a := []manifest.ChunkInfo{{ID: "c1"}, {ID: "c2"}}
	b := []manifest.ChunkInfo{{ID: "c1"}, {ID: "c2"}, {ID: "c3"}}
	assert.NotEqual(t, manifestVersion(a, bloom.Serialized{}), manifestVersion(b, bloom.Serialized{}))
	assert.Equal(t, manifestVersion(a, bloom.Serialized{}), manifestVersion(append([]manifest.ChunkInfo{}, a...), bloom.Serialized{}))
}
