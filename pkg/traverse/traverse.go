// Package traverse implements the bounded breadth-first traversal
// executor: walks edges via pkg/lookup with hard per-hop caps so
// worst-case work stays bounded regardless of graph shape.
package traverse

import (
	"context"
	"time"

	"github.com/cuemby/graphd/pkg/graphdberr"
	"github.com/cuemby/graphd/pkg/lookup"
)

const (
	maxFrontierPerHop  = 10
	maxFanOutPerEntity = 5
	// MaxPathDepth bounds how deep a caller may request traversal.
	MaxPathDepth = 100
	// DefaultPathDepth is used when a caller doesn't specify depth.
	DefaultPathDepth = 3
	maxFinalIDs      = 20
)

// Resolver is the subset of pkg/lookup's interface traversal needs.
type Resolver interface {
	Get(ctx context.Context, entityID string) (lookup.Entity, bool, lookup.Stats, error)
}

// Stats accumulates per-traversal counters.
type Stats struct {
	TotalTimeMs     int64
	R2Fetches       int
	EntitiesVisited int
	HopTimesMs      []int64
}

// Result is one traversal's outcome.
type Result struct {
	StartID  string
	Depth    int
	FinalIDs []string
	Stats    Stats
}

// Executor runs bounded BFS over a Resolver.
type Executor struct {
	resolver Resolver
}

func New(resolver Resolver) *Executor {
	return &Executor{resolver: resolver}
}

// Run walks from startID out to depth hops (clamped to [0, MaxPathDepth]).
func (e *Executor) Run(ctx context.Context, startID string, depth int) (Result, error) {
	depth = clampDepth(depth)
	start := time.Now()

	if startID == "" {
		return Result{}, graphdberr.New(graphdberr.CodeInvalidRange, "traverse: empty start id")
	}

	visited := map[string]bool{startID: true}
	frontier := []string{startID}
	stats := Stats{}
	stats.EntitiesVisited = 1

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		hopStart := time.Now()
		next, err := e.expand(ctx, frontier, visited, &stats)
		stats.HopTimesMs = append(stats.HopTimesMs, time.Since(hopStart).Milliseconds())
		if err != nil {
			return Result{}, err
		}
		frontier = next
	}

	finalIDs := frontier
	if len(finalIDs) == 0 {
		finalIDs = []string{startID}
	}
	if len(finalIDs) > maxFinalIDs {
		finalIDs = finalIDs[:maxFinalIDs]
	}

	stats.TotalTimeMs = time.Since(start).Milliseconds()
	return Result{StartID: startID, Depth: depth, FinalIDs: finalIDs, Stats: stats}, nil
}

// expand resolves one hop: truncates the frontier to maxFrontierPerHop,
// fetches each entity, truncates its edges to maxFanOutPerEntity, and
// returns the deduplicated set of newly-visited neighbors.
func (e *Executor) expand(ctx context.Context, frontier []string, visited map[string]bool, stats *Stats) ([]string, error) {
	if len(frontier) > maxFrontierPerHop {
		frontier = frontier[:maxFrontierPerHop]
	}

	var next []string
	for _, id := range frontier {
		entity, found, lookupStats, err := e.resolver.Get(ctx, id)
		stats.R2Fetches += lookupStats.RangeRequests + lookupStats.FullFetches + lookupStats.ChunksChecked
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}

		fanOut := 0
		for _, obj := range sortedEdgeValues(entity.Edges) {
			if fanOut >= maxFanOutPerEntity {
				break
			}
			for _, target := range edgeTargets(obj) {
				if fanOut >= maxFanOutPerEntity {
					break
				}
				if visited[target] {
					continue
				}
				visited[target] = true
				stats.EntitiesVisited++
				next = append(next, target)
				fanOut++
			}
		}
	}
	return next, nil
}

func clampDepth(depth int) int {
	if depth < 0 {
		return 0
	}
	if depth > MaxPathDepth {
		return MaxPathDepth
	}
	return depth
}
