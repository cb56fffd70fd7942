package fusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBM25IsBoundedByOne(t *testing.T) {
	assert.InDelta(t, 0.5, NormalizeBM25(1), 1e-9)
	assert.Less(t, NormalizeBM25(1000), 1.0)
}

func TestNormalizeGeoDistance(t *testing.T) {
	assert.InDelta(t, 1.0, NormalizeGeoDistance(0), 1e-9)
	assert.InDelta(t, 0.5, NormalizeGeoDistance(1), 1e-9)
}

func TestWeightedAverageDedupesAndRenormalizes(t *testing.T) {
	sources := []Source{
		{Name: "fts", Weight: 1.0, Results: []SourceResult{{EntityID: "a", Score: 1.0, Rank: 1}}},
		{Name: "vec", Weight: 1.0, Results: []SourceResult{{EntityID: "a", Score: 0.5, Rank: 1}, {EntityID: "b", Score: 0.8, Rank: 2}}},
	}
	fused := WeightedAverage(sources, 10)
	scores := map[string]float64{}
	for _, f := range fused {
		scores[f.EntityID] = f.Score
	}
	assert.InDelta(t, 0.75, scores["a"], 1e-9) // (1.0+0.5)/2 across both sources
	assert.InDelta(t, 0.8, scores["b"], 1e-9)  // only vec contributed, renormalized to vec alone
}

func TestReciprocalRankFusionSumsAcrossSources(t *testing.T) {
	sources := []Source{
		{Name: "fts", Results: []SourceResult{{EntityID: "a", Rank: 1}, {EntityID: "b", Rank: 2}}},
		{Name: "vec", Results: []SourceResult{{EntityID: "a", Rank: 3}}},
	}
	fused := ReciprocalRankFusion(sources, 10)
	scores := make(map[string]float64)
	for _, f := range fused {
		scores[f.EntityID] = f.Score
	}
	expectedA := 1.0/61 + 1.0/63
	expectedB := 1.0 / 62
	assert.InDelta(t, expectedA, scores["a"], 1e-9)
	assert.InDelta(t, expectedB, scores["b"], 1e-9)
	assert.Greater(t, scores["a"], scores["b"])
}
