package hnsw

import (
	"context"
	"math"
	"sort"
)

type candidate struct {
	id   uint32
	dist float64
}

// greedyDescend does a single-layer 1-NN walk from (cur, curDist)
// toward query, returning the local optimum at this layer.
func (idx *Index) greedyDescend(ctx context.Context, cur uint32, curDist float64, query []float32, layer int) (uint32, float64, error) {
	for {
		node, ok, err := idx.graph.GetNode(ctx, idx.predicate, cur)
		if err != nil {
			return cur, curDist, err
		}
		if !ok || layer >= len(node.Connections) {
			return cur, curDist, nil
		}
		improved := false
		for _, nb := range node.Connections[layer] {
			d, err := idx.distanceTo(ctx, nb, query)
			if err != nil {
				return cur, curDist, err
			}
			if d < curDist {
				cur, curDist = nb, d
				improved = true
			}
		}
		if !improved {
			return cur, curDist, nil
		}
	}
}

// searchLayer is a best-first beam search at one layer, starting from
// entryPoints, expanding via each visited node's neighbor list, and
// keeping at most ef candidates.
func (idx *Index) searchLayer(ctx context.Context, query []float32, entryPoints []uint32, ef, layer int) ([]candidate, error) {
	visited := make(map[uint32]bool)
	var candidates []candidate
	for _, ep := range entryPoints {
		if visited[ep] {
			continue
		}
		visited[ep] = true
		d, err := idx.distanceTo(ctx, ep, query)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, candidate{id: ep, dist: d})
	}

	frontier := append([]candidate(nil), candidates...)
	for len(frontier) > 0 {
		sortByDistance(frontier)
		best := frontier[0]
		frontier = frontier[1:]

		worstKept := worstDistance(candidates, ef)
		if best.dist > worstKept && len(candidates) >= ef {
			break
		}

		node, ok, err := idx.graph.GetNode(ctx, idx.predicate, best.id)
		if err != nil {
			return nil, err
		}
		if !ok || layer >= len(node.Connections) {
			continue
		}
		for _, nb := range node.Connections[layer] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			d, err := idx.distanceTo(ctx, nb, query)
			if err != nil {
				return nil, err
			}
			c := candidate{id: nb, dist: d}
			candidates = append(candidates, c)
			frontier = append(frontier, c)
		}
	}

	sortByDistance(candidates)
	if len(candidates) > ef {
		candidates = candidates[:ef]
	}
	return candidates, nil
}

func worstDistance(candidates []candidate, ef int) float64 {
	if len(candidates) == 0 {
		return math.Inf(1)
	}
	sorted := append([]candidate(nil), candidates...)
	sortByDistance(sorted)
	idx := ef - 1
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx].dist
}

// selectNeighbors picks the closest `budget` candidates by distance,
// a simpler alternative to a diversity-aware neighbor heuristic.
func selectNeighbors(candidates []candidate, budget int) []uint32 {
	sorted := append([]candidate(nil), candidates...)
	sortByDistance(sorted)
	if len(sorted) > budget {
		sorted = sorted[:budget]
	}
	out := make([]uint32, len(sorted))
	for i, c := range sorted {
		out[i] = c.id
	}
	return out
}

func neighborIDs(candidates []candidate) []uint32 {
	out := make([]uint32, len(candidates))
	for i, c := range candidates {
		out[i] = c.id
	}
	return out
}

func sortByDistance(candidates []candidate) {
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].dist < candidates[j].dist })
}

// distanceTo fetches node id's vector and computes its distance to
// query under the index's configured metric.
func (idx *Index) distanceTo(ctx context.Context, id uint32, query []float32) (float64, error) {
	vec, ok, err := idx.vectors.GetVector(ctx, idx.predicate, id)
	if err != nil {
		return 0, err
	}
	if !ok {
		return math.Inf(1), nil
	}
	return distance(idx.cfg.Metric, vec, query), nil
}

func distance(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricCosine:
		return cosineDistance(a, b)
	case MetricInnerProduct:
		return -dot(a, b)
	default:
		return euclideanDistance(a, b)
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}

func cosineDistance(a, b []float32) float64 {
	na, nb := norm(a), norm(b)
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot(a, b)/(na*nb)
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
