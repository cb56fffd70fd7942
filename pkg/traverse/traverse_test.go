package traverse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/graphd/pkg/lookup"
	"github.com/cuemby/graphd/pkg/types"
)

// fakeResolver is an in-memory graph keyed by entity id, letting
// traversal tests exercise BFS semantics without a real lookup/blob
// stack.
type fakeResolver struct {
	entities map[string]lookup.Entity
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{entities: make(map[string]lookup.Entity)}
}

func (f *fakeResolver) addEdge(from, predicate, to string) {
	e, ok := f.entities[from]
	if !ok {
		e = lookup.Entity{ID: from, Type: "Entity", Properties: map[string]types.TypedObject{}, Edges: map[string]types.TypedObject{}}
	}
	e.Edges[predicate] = types.RefObject(types.EntityId(to))
	f.entities[from] = e
}

func (f *fakeResolver) Get(_ context.Context, entityID string) (lookup.Entity, bool, lookup.Stats, error) {
	e, ok := f.entities[entityID]
	return e, ok, lookup.Stats{RangeRequests: 1}, nil
}

func TestRunClampsDepthAndDefaultsToStartOnNoEdges(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver()
	r.entities["lonely"] = lookup.Entity{ID: "lonely", Edges: map[string]types.TypedObject{}}

	exec := New(r)
	result, err := exec.Run(ctx, "lonely", DefaultPathDepth)
	require.NoError(t, err)
	assert.Equal(t, []string{"lonely"}, result.FinalIDs)
	assert.Equal(t, 1, result.Stats.EntitiesVisited)
}

func TestRunWalksMultipleHops(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver()
	// a -> b -> c -> d, depth 2 should stop at c.
	r.addEdge("a", "next", "b")
	r.addEdge("b", "next", "c")
	r.addEdge("c", "next", "d")

	exec := New(r)
	result, err := exec.Run(ctx, "a", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, result.FinalIDs)
	assert.Equal(t, 2, len(result.Stats.HopTimesMs))
	assert.Equal(t, 3, result.Stats.EntitiesVisited) // a (start), b, c
}

func TestRunTruncatesFanOutPerEntity(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver()
	for i := 0; i < 8; i++ {
		r.addEdge("hub", "edge"+string(rune('a'+i)), "n"+string(rune('a'+i)))
	}

	exec := New(r)
	result, err := exec.Run(ctx, "hub", 1)
	require.NoError(t, err)
	assert.Len(t, result.FinalIDs, maxFanOutPerEntity)
}

func TestExpandTruncatesFrontierPerHop(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver()
	// 15 frontier entries, each with its own outgoing edge -- only
	// the first maxFrontierPerHop should be resolved.
	var frontier []string
	for i := 0; i < 15; i++ {
		id := "src" + string(rune('a'+i))
		r.addEdge(id, "next", id+"_leaf")
		frontier = append(frontier, id)
	}

	exec := New(r)
	visited := map[string]bool{}
	for _, id := range frontier {
		visited[id] = true
	}
	stats := Stats{}
	next, err := exec.expand(ctx, frontier, visited, &stats)
	require.NoError(t, err)
	assert.Len(t, next, maxFrontierPerHop)
	assert.Equal(t, maxFrontierPerHop, stats.R2Fetches)
}

func TestRunRejectsEmptyStartID(t *testing.T) {
	ctx := context.Background()
	exec := New(newFakeResolver())
	_, err := exec.Run(ctx, "", 3)
	require.Error(t, err)
}

func TestRunClampsOversizedDepth(t *testing.T) {
	assert.Equal(t, MaxPathDepth, clampDepth(MaxPathDepth+50))
	assert.Equal(t, 0, clampDepth(-5))
}

func TestRunCapsFinalIDsToTwenty(t *testing.T) {
	ctx := context.Background()
	r := newFakeResolver()
	r.addEdge("root", "a", "h1")
	r.addEdge("root", "b", "h2")
	r.addEdge("root", "c", "h3")
	r.addEdge("root", "d", "h4")
	r.addEdge("root", "e", "h5")
	for i := 0; i < 5; i++ {
		hub := "h" + string(rune('1'+i))
		for j := 0; j < 5; j++ {
			r.addEdge(hub, "p"+string(rune('a'+j)), hub+"_leaf"+string(rune('a'+j)))
		}
	}

	exec := New(r)
	result, err := exec.Run(ctx, "root", 2)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.FinalIDs), 20)
}
