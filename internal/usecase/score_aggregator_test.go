package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
)

func completeSet(symbol string, version uint64, values [models.NumPillars]float64) [models.NumPillars]models.PillarScore {
	var out [models.NumPillars]models.PillarScore
	for i, p := range models.Pillars() {
		out[i] = models.PillarScore{Symbol: symbol, Pillar: p, Value: values[i], Version: version}
	}
	return out
}

func symbolsOf(entries []models.CompositeScore) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Symbol
	}
	return out
}

func TestAggregateEqualWeights(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	scores := completeSet("AAPL", 7, [models.NumPillars]float64{80, 60, 40, 100, 20})

	comp, err := agg.Aggregate("AAPL", 7, scores)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", comp.Symbol)
	assert.Equal(t, uint64(7), comp.Version)
	assert.InDelta(t, 60.0, comp.Value, 1e-9)
}

func TestAggregateCustomWeights(t *testing.T) {
	agg := NewScoreAggregator(Weights{
		models.PillarPrice:    2,
		models.PillarMomentum: 1,
		models.PillarVolume:   1,
	})
	scores := completeSet("TSLA", 3, [models.NumPillars]float64{100, 50, 25, 90, 90})

	comp, err := agg.Aggregate("TSLA", 3, scores)
	require.NoError(t, err)
	// (2*100 + 1*50 + 1*25) / 4, pillars with zero weight contribute nothing
	assert.InDelta(t, 68.75, comp.Value, 1e-9)
}

func TestAggregateInvalidWeightsFallBackToEqual(t *testing.T) {
	agg := NewScoreAggregator(Weights{models.PillarPrice: -5})
	scores := completeSet("IONQ", 1, [models.NumPillars]float64{100, 0, 0, 0, 0})

	comp, err := agg.Aggregate("IONQ", 1, scores)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, comp.Value, 1e-9)
}

func TestAggregateMissingPillar(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	scores := completeSet("NVDA", 5, [models.NumPillars]float64{10, 20, 30, 40, 50})
	scores[models.PillarVolume.Index()] = models.PillarScore{}

	_, err := agg.Aggregate("NVDA", 5, scores)
	var ise *models.IncompleteScoreSetError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "NVDA", ise.Symbol)
	assert.Contains(t, ise.Missing, models.PillarVolume)
	assert.Empty(t, ise.Stale)
}

func TestAggregateStaleScore(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	scores := completeSet("AMD", 9, [models.NumPillars]float64{10, 20, 30, 40, 50})
	scores[models.PillarMomentum.Index()].Version = 8

	_, err := agg.Aggregate("AMD", 9, scores)
	var ise *models.IncompleteScoreSetError
	require.ErrorAs(t, err, &ise)
	assert.Contains(t, ise.Stale, models.PillarMomentum)
	assert.Empty(t, ise.Missing)
}

func TestAggregateWrongSymbolCountsAsMissing(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	scores := completeSet("PLTR", 2, [models.NumPillars]float64{50, 50, 50, 50, 50})
	scores[models.PillarFloat.Index()].Symbol = "SOFI"

	_, err := agg.Aggregate("PLTR", 2, scores)
	var ise *models.IncompleteScoreSetError
	require.ErrorAs(t, err, &ise)
	assert.Contains(t, ise.Missing, models.PillarFloat)
}

func TestRankOrdersByScoreThenSymbol(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	entries := []models.CompositeScore{
		{Symbol: "BBB", Value: 70},
		{Symbol: "AAA", Value: 70},
		{Symbol: "CCC", Value: 90},
		{Symbol: "DDD", Value: 10},
	}

	ranked := agg.Rank(entries)

	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"CCC", "AAA", "BBB", "DDD"}, symbolsOf(ranked))
	for i, e := range ranked {
		assert.Equal(t, i+1, e.Rank)
	}
}

func TestRankIsDeterministicAcrossInputOrders(t *testing.T) {
	agg := NewScoreAggregator(EqualWeights())
	base := []models.CompositeScore{
		{Symbol: "GME", Value: 55.5},
		{Symbol: "AMC", Value: 55.5},
		{Symbol: "BB", Value: 81.25},
		{Symbol: "NOK", Value: 12},
		{Symbol: "KOSS", Value: 81.25},
	}
	permutations := [][]int{
		{0, 1, 2, 3, 4},
		{4, 3, 2, 1, 0},
		{2, 0, 4, 1, 3},
	}

	want := []string{"BB", "KOSS", "AMC", "GME", "NOK"}
	for _, perm := range permutations {
		in := make([]models.CompositeScore, len(base))
		for i, j := range perm {
			in[i] = base[j]
		}
		assert.Equal(t, want, symbolsOf(agg.Rank(in)))
	}
}
