package usecase

import (
	"sort"

	"PulseScan/internal/domain/models"
)

// Weights maps each pillar to its share of the composite. Unset pillars get
// weight zero only if any weight was set; a fully zero map means equal
// weighting.
type Weights map[models.Pillar]float64

// EqualWeights returns the default 1/5-per-pillar weighting.
func EqualWeights() Weights {
	w := make(Weights, models.NumPillars)
	for _, p := range models.Pillars() {
		w[p] = 1
	}
	return w
}

// ScoreAggregator combines five fresh pillar scores into a composite and
// ranks composites into a total order.
type ScoreAggregator struct {
	weights [models.NumPillars]float64
	total   float64
}

// NewScoreAggregator builds an aggregator from the given weights. Nil,
// empty, or non-positive-sum weights fall back to equal weighting.
func NewScoreAggregator(weights Weights) *ScoreAggregator {
	a := &ScoreAggregator{}
	sum := 0.0
	for _, p := range models.Pillars() {
		w := weights[p]
		if w < 0 {
			w = 0
		}
		a.weights[p.Index()] = w
		sum += w
	}
	if sum <= 0 {
		for i := range a.weights {
			a.weights[i] = 1
		}
		sum = models.NumPillars
	}
	a.total = sum
	return a
}

// Aggregate validates that all five slots hold fresh scores for version and
// combines them. A missing or stale slot fails the symbol for this cycle
// with *models.IncompleteScoreSetError; other symbols are unaffected.
func (a *ScoreAggregator) Aggregate(symbol string, version uint64, scores [models.NumPillars]models.PillarScore) (models.CompositeScore, error) {
	var missing, stale []models.Pillar
	for i, p := range models.Pillars() {
		s := scores[i]
		if s.Pillar != p || s.Symbol != symbol {
			missing = append(missing, p)
			continue
		}
		if s.Version != version {
			stale = append(stale, p)
		}
	}
	if len(missing) > 0 || len(stale) > 0 {
		return models.CompositeScore{}, &models.IncompleteScoreSetError{Symbol: symbol, Missing: missing, Stale: stale}
	}

	value := 0.0
	for i := range scores {
		value += a.weights[i] * scores[i].Value
	}
	return models.CompositeScore{
		Symbol:  symbol,
		Version: version,
		Pillars: scores,
		Value:   value / a.total,
	}, nil
}

// Rank orders composites by value descending, ties broken by symbol
// ascending, and stamps 1-based ranks. The secondary key guarantees a total
// order, so identical inputs always yield identical output.
func (a *ScoreAggregator) Rank(entries []models.CompositeScore) []models.CompositeScore {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value > entries[j].Value
		}
		return entries[i].Symbol < entries[j].Symbol
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
