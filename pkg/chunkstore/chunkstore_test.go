package chunkstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/sqlstore"
	"github.com/cuemby/graphd/pkg/types"
)

func newStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, cfg, zerolog.Nop())
}

func tripleFor(subject string, n int) types.Triple {
	return types.Triple{
		Subject:   types.EntityId(subject),
		Predicate: "name",
		Object:    types.StringObject(subject),
		Timestamp: uint64(n + 1),
	}
}

func TestQueryMergesBufferAndFlushedChunks(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Config{Namespace: "ns"})

	s.Write([]types.Triple{tripleFor("e1", 0)})
	id, err := s.Flush(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	s.Write([]types.Triple{{Subject: "e1", Predicate: "age", Object: types.StringObject("30"), Timestamp: 2}})

	triples, err := s.Query(ctx, "e1")
	require.NoError(t, err)
	assert.Len(t, triples, 2)
}

func TestBufferWinsTiesAgainstFlushedChunk(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Config{Namespace: "ns"})

	s.Write([]types.Triple{{Subject: "e1", Predicate: "name", Object: types.StringObject("old"), Timestamp: 5}})
	_, err := s.Flush(ctx)
	require.NoError(t, err)

	s.Write([]types.Triple{{Subject: "e1", Predicate: "name", Object: types.StringObject("new"), Timestamp: 5}})

	triples, err := s.Query(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, triples, 1)
	assert.Equal(t, "new", triples[0].Object.Str)
}

func TestFlushOnEmptyBufferIsNoop(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Config{Namespace: "ns"})
	id, err := s.Flush(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestCompactionPreservesPerSubjectQueries(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Config{Namespace: "ns", MinChunksForCompaction: 4, MinChunkSizeForCompaction: 1 << 30})

	subjects := make([]string, 0, 400)
	for batch := 0; batch < 4; batch++ {
		var batchTriples []types.Triple
		for i := 0; i < 100; i++ {
			subj := fmt.Sprintf("batch%d_entity_%d", batch, i)
			batchTriples = append(batchTriples, tripleFor(subj, i))
			subjects = append(subjects, subj)
		}
		s.Write(batchTriples)
		_, err := s.Flush(ctx)
		require.NoError(t, err)
	}

	before, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, before, 4)

	expected := make(map[string][]types.Triple, len(subjects))
	for _, subj := range subjects {
		triples, err := s.Query(ctx, types.EntityId(subj))
		require.NoError(t, err)
		expected[subj] = triples
	}

	merged, err := s.Compact(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, merged)

	after, err := s.List(ctx)
	require.NoError(t, err)
	assert.Less(t, len(after), 4)

	for _, subj := range subjects {
		triples, err := s.Query(ctx, types.EntityId(subj))
		require.NoError(t, err)
		require.Len(t, triples, len(expected[subj]))
		assert.Equal(t, expected[subj][0].Object.Str, triples[0].Object.Str)
	}
}

func TestStatsReportsBufferAndChunkFootprint(t *testing.T) {
	ctx := context.Background()
	s := newStore(t, Config{Namespace: "ns"})
	s.Write([]types.Triple{tripleFor("e1", 0)})

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.BufferedTriples)
	assert.Equal(t, 0, st.ChunkCount)

	_, err = s.ForceFlush(ctx)
	require.NoError(t, err)

	st, err = s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, st.BufferedTriples)
	assert.Equal(t, 1, st.ChunkCount)
	assert.Greater(t, st.TotalBytes, uint64(0))
}
