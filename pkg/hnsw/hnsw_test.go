package hnsw

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/blobstore"
	"github.com/cuemby/graphd/pkg/sqlstore"
)

func newIndex(t *testing.T, dim int) *Index {
	t.Helper()
	db, err := sqlstore.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	graph := NewSQLGraphStore(db)
	vectors := NewBlobVectorStore(blobstore.NewMemStore())
	return New("embedding", Config{Dimension: dim, M: 8, EfConstruction: 32, EfSearch: 32, Metric: MetricCosine, RandomSeed: 42}, graph, vectors)
}

func randomVec(rng *rand.Rand, dim int) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = rng.Float32()
	}
	return vec
}

func TestInsertAndSearchFindsExactMatch(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, 8)
	rng := rand.New(rand.NewSource(1))

	var target []float32
	for i := 0; i < 50; i++ {
		vec := randomVec(rng, 8)
		entityID := "e" + string(rune('a'+i%26))
		require.NoError(t, idx.Insert(ctx, entityID, vec))
		if i == 25 {
			target = vec
		}
	}

	results, err := idx.Search(ctx, target, 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.InDelta(t, 0, results[0].Distance, 1e-9)
}

func TestSearchOnEmptyIndexReturnsNoResults(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, 4)
	results, err := idx.Search(ctx, []float32{0, 0, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestInsertRejectsDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, 4)
	err := idx.Insert(ctx, "e1", []float32{1, 2, 3})
	require.Error(t, err)
}

func TestDuplicateInsertIsNoOp(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, 4)
	rng := rand.New(rand.NewSource(3))

	first := randomVec(rng, 4)
	require.NoError(t, idx.Insert(ctx, "dup", first))

	countBefore, err := idx.graph.NodeCount(ctx, "embedding")
	require.NoError(t, err)

	// Re-inserting the same entity, even with a different vector, must
	// not mint a second node.
	require.NoError(t, idx.Insert(ctx, "dup", randomVec(rng, 4)))

	countAfter, err := idx.graph.NodeCount(ctx, "embedding")
	require.NoError(t, err)
	assert.Equal(t, countBefore, countAfter)

	id, ok, err := idx.graph.FindByEntityID(ctx, "embedding", "dup")
	require.NoError(t, err)
	require.True(t, ok)

	vec, ok, err := idx.vectors.GetVector(ctx, "embedding", id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, first, vec)
}

func TestDegreeStaysWithinBudget(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t, 4)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 40; i++ {
		require.NoError(t, idx.Insert(ctx, "e"+string(rune('a'+i)), randomVec(rng, 4)))
	}

	ids, err := idx.graph.AllNodeIDs(ctx, "embedding")
	require.NoError(t, err)
	for _, id := range ids {
		node, ok, err := idx.graph.GetNode(ctx, "embedding", id)
		require.NoError(t, err)
		require.True(t, ok)
		for layer, neighbors := range node.Connections {
			budget := idx.cfg.M
			if layer == 0 {
				budget = idx.cfg.M0()
			}
			assert.LessOrEqual(t, len(neighbors), budget)
		}
	}
}
