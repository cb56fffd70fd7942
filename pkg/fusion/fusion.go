// Package fusion combines ranked result lists from multiple search
// sources (FTS, VEC, GEO, ...) into one fused ranking, via either a
// weighted-average of normalized scores or Reciprocal Rank Fusion.
package fusion

import "sort"

// SourceResult is one source's scored hit, already ranked (Rank is
// 1-based position within that source's own result list).
type SourceResult struct {
	EntityID string
	Score    float64
	Rank     int
}

// Source names a ranked list plus the weight it contributes to a
// weighted-average fusion.
type Source struct {
	Name    string
	Weight  float64
	Results []SourceResult
}

// Fused is one entity's combined score across contributing sources.
type Fused struct {
	EntityID string
	Score    float64
}

const rrfK = 60

// NormalizeBM25 maps a raw BM25 score into [0, 1) via score/(score+k),
// k=1.
func NormalizeBM25(score float64) float64 {
	const k = 1
	if score < 0 {
		score = 0
	}
	return score / (score + k)
}

// NormalizeGeoDistance maps a geo distance (km) into (0, 1] via
// 1/(1+d); closer points score higher.
func NormalizeGeoDistance(distKm float64) float64 {
	if distKm < 0 {
		distKm = 0
	}
	return 1 / (1 + distKm)
}

// WeightedAverage fuses sources by averaging each entity's normalized
// scores, weighted by source weight, renormalizing over the weights
// of sources that actually contributed a score for that entity (so a
// missing source doesn't silently drag the average down).
func WeightedAverage(sources []Source, limit int) []Fused {
	type acc struct {
		weightedSum float64
		weightTotal float64
	}
	byEntity := make(map[string]*acc)

	for _, src := range sources {
		for _, r := range src.Results {
			a, ok := byEntity[r.EntityID]
			if !ok {
				a = &acc{}
				byEntity[r.EntityID] = a
			}
			a.weightedSum += r.Score * src.Weight
			a.weightTotal += src.Weight
		}
	}

	out := make([]Fused, 0, len(byEntity))
	for entityID, a := range byEntity {
		score := 0.0
		if a.weightTotal > 0 {
			score = a.weightedSum / a.weightTotal
		}
		out = append(out, Fused{EntityID: entityID, Score: score})
	}
	return sortAndTruncate(out, limit)
}

// ReciprocalRankFusion fuses sources by summing 1/(k+rank) across
// every source an entity appears in.
func ReciprocalRankFusion(sources []Source, limit int) []Fused {
	scores := make(map[string]float64)
	for _, src := range sources {
		for _, r := range src.Results {
			scores[r.EntityID] += 1.0 / float64(rrfK+r.Rank)
		}
	}

	out := make([]Fused, 0, len(scores))
	for entityID, score := range scores {
		out = append(out, Fused{EntityID: entityID, Score: score})
	}
	return sortAndTruncate(out, limit)
}

func sortAndTruncate(fused []Fused, limit int) []Fused {
	sort.Slice(fused, func(i, j int) bool { return fused[i].Score > fused[j].Score })
	if limit > 0 && len(fused) > limit {
		fused = fused[:limit]
	}
	return fused
}
