// Package hnsw implements approximate nearest-neighbor search over
// float32 vectors: hierarchical navigable small-world graph
// construction and search, with pluggable GraphStore/VectorStore
// persistence.
package hnsw

import (
	"context"
	"math"
	"math/rand"

	"github.com/cuemby/graphd/pkg/graphdberr"
)

// Metric selects the distance function used for both construction
// and search.
type Metric uint32

const (
	MetricL2 Metric = iota
	MetricInnerProduct
	MetricCosine
)

// Config holds construction/search parameters for one index
// (identified by predicate).
type Config struct {
	Dimension      int
	M              int // max degree at layers > 0
	EfConstruction int
	EfSearch       int
	ML             float64 // level generation factor; 0 means 1/ln(M)
	Metric         Metric
	RandomSeed     int64
}

func (c Config) withDefaults() Config {
	if c.M <= 0 {
		c.M = 16
	}
	if c.EfConstruction <= 0 {
		c.EfConstruction = 200
	}
	if c.EfSearch <= 0 {
		c.EfSearch = 64
	}
	if c.ML <= 0 {
		c.ML = 1 / math.Log(float64(c.M))
	}
	return c
}

// M0 is the layer-0 degree budget, conventionally 2*M.
func (c Config) M0() int { return c.M * 2 }

// Node is one persisted HNSW node: its external entity id, its
// maximum layer, and its per-layer adjacency (connections[l] is the
// neighbor list at layer l).
type Node struct {
	ID          uint32
	EntityID    string
	MaxLayer    int
	Connections [][]uint32
}

// GraphStore persists nodes and their connections, keyed by
// predicate (one HNSW graph per indexed predicate).
type GraphStore interface {
	GetNode(ctx context.Context, predicate string, id uint32) (Node, bool, error)
	PutNode(ctx context.Context, predicate string, n Node) error
	EntryPoint(ctx context.Context, predicate string) (nodeID uint32, maxLayer int, ok bool, err error)
	SetEntryPoint(ctx context.Context, predicate string, nodeID uint32, maxLayer int) error
	NodeCount(ctx context.Context, predicate string) (int, error)
	AllNodeIDs(ctx context.Context, predicate string) ([]uint32, error)
	FindByEntityID(ctx context.Context, predicate, entityID string) (nodeID uint32, ok bool, err error)
}

// VectorStore persists the raw float32 vector payload for a node,
// namespaced by predicate (default backing: the blob store).
type VectorStore interface {
	PutVector(ctx context.Context, predicate string, id uint32, vec []float32) error
	GetVector(ctx context.Context, predicate string, id uint32) ([]float32, bool, error)
}

// Index is one HNSW graph over one predicate's vectors.
type Index struct {
	predicate string
	cfg       Config
	graph     GraphStore
	vectors   VectorStore
	rng       *rand.Rand
}

func New(predicate string, cfg Config, graph GraphStore, vectors VectorStore) *Index {
	cfg = cfg.withDefaults()
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = 1
	}
	return &Index{
		predicate: predicate,
		cfg:       cfg,
		graph:     graph,
		vectors:   vectors,
		rng:       rand.New(rand.NewSource(seed)),
	}
}

func (idx *Index) drawLevel() int {
	u := idx.rng.Float64()
	for u == 0 {
		u = idx.rng.Float64()
	}
	return int(math.Floor(-math.Log(u) * idx.cfg.ML))
}

// Insert adds one entity's vector to the graph. A duplicate insert
// (an entityID already present in this predicate's graph) is a no-op.
func (idx *Index) Insert(ctx context.Context, entityID string, vec []float32) error {
	if len(vec) != idx.cfg.Dimension {
		return graphdberr.New(graphdberr.CodeInvalidRange, "hnsw: vector dimension mismatch")
	}

	if _, exists, err := idx.graph.FindByEntityID(ctx, idx.predicate, entityID); err != nil {
		return err
	} else if exists {
		return nil
	}

	count, err := idx.graph.NodeCount(ctx, idx.predicate)
	if err != nil {
		return err
	}
	id := uint32(count)
	level := idx.drawLevel()

	if err := idx.vectors.PutVector(ctx, idx.predicate, id, vec); err != nil {
		return err
	}

	entryID, entryMaxLayer, hasEntry, err := idx.graph.EntryPoint(ctx, idx.predicate)
	if err != nil {
		return err
	}
	if !hasEntry {
		node := Node{ID: id, EntityID: entityID, MaxLayer: level, Connections: make([][]uint32, level+1)}
		if err := idx.graph.PutNode(ctx, idx.predicate, node); err != nil {
			return err
		}
		return idx.graph.SetEntryPoint(ctx, idx.predicate, id, level)
	}

	cur := entryID
	curDist, err := idx.distanceTo(ctx, cur, vec)
	if err != nil {
		return err
	}
	for layer := entryMaxLayer; layer > level; layer-- {
		cur, curDist, err = idx.greedyDescend(ctx, cur, curDist, vec, layer)
		if err != nil {
			return err
		}
	}

	node := Node{ID: id, EntityID: entityID, MaxLayer: level, Connections: make([][]uint32, level+1)}
	entryPoints := []uint32{cur}
	for layer := min(level, entryMaxLayer); layer >= 0; layer-- {
		candidates, err := idx.searchLayer(ctx, vec, entryPoints, idx.cfg.EfConstruction, layer)
		if err != nil {
			return err
		}
		neighbors := selectNeighbors(candidates, idx.budgetFor(layer))
		node.Connections[layer] = neighbors

		for _, nb := range neighbors {
			if err := idx.addConnection(ctx, nb, layer, id); err != nil {
				return err
			}
		}
		entryPoints = neighborIDs(candidates)
	}

	if err := idx.graph.PutNode(ctx, idx.predicate, node); err != nil {
		return err
	}
	if level > entryMaxLayer {
		return idx.graph.SetEntryPoint(ctx, idx.predicate, id, level)
	}
	return nil
}

func (idx *Index) budgetFor(layer int) int {
	if layer == 0 {
		return idx.cfg.M0()
	}
	return idx.cfg.M
}

// addConnection adds a bidirectional edge from nb to id at layer,
// pruning nb's neighbor list back to budget if it overflows.
func (idx *Index) addConnection(ctx context.Context, nb uint32, layer int, id uint32) error {
	node, ok, err := idx.graph.GetNode(ctx, idx.predicate, nb)
	if err != nil || !ok {
		return err
	}
	for len(node.Connections) <= layer {
		node.Connections = append(node.Connections, nil)
	}
	node.Connections[layer] = append(node.Connections[layer], id)

	budget := idx.budgetFor(layer)
	if len(node.Connections[layer]) > budget {
		vec, ok, err := idx.vectors.GetVector(ctx, idx.predicate, nb)
		if err != nil || !ok {
			return err
		}
		candidates := make([]candidate, 0, len(node.Connections[layer]))
		for _, n := range node.Connections[layer] {
			d, err := idx.distanceTo(ctx, n, vec)
			if err != nil {
				return err
			}
			candidates = append(candidates, candidate{id: n, dist: d})
		}
		node.Connections[layer] = selectNeighbors(candidates, budget)
	}
	return idx.graph.PutNode(ctx, idx.predicate, node)
}

// Result is one search hit.
type Result struct {
	EntityID string
	Distance float64
}

// Search returns the approximate top-k nearest neighbors to query:
// greedy descent through the upper layers, then a beam search of
// width ef at layer 0.
func (idx *Index) Search(ctx context.Context, query []float32, k int) ([]Result, error) {
	entryID, entryMaxLayer, hasEntry, err := idx.graph.EntryPoint(ctx, idx.predicate)
	if err != nil {
		return nil, err
	}
	if !hasEntry {
		return nil, nil
	}

	cur := entryID
	curDist, err := idx.distanceTo(ctx, cur, query)
	if err != nil {
		return nil, err
	}
	for layer := entryMaxLayer; layer > 0; layer-- {
		cur, curDist, err = idx.greedyDescend(ctx, cur, curDist, query, layer)
		if err != nil {
			return nil, err
		}
	}

	candidates, err := idx.searchLayer(ctx, query, []uint32{cur}, idx.cfg.EfSearch, 0)
	if err != nil {
		return nil, err
	}
	sortByDistance(candidates)
	if len(candidates) > k {
		candidates = candidates[:k]
	}

	out := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		node, ok, err := idx.graph.GetNode(ctx, idx.predicate, c.id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		out = append(out, Result{EntityID: node.EntityID, Distance: c.dist})
	}
	return out, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
