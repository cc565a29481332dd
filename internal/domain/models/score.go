package models

// Pillar identifies one of the five scoring dimensions. The set is closed;
// the aggregator switches exhaustively over it.
type Pillar string

const (
	PillarPrice    Pillar = "price"
	PillarMomentum Pillar = "momentum"
	PillarVolume   Pillar = "volume"
	PillarCatalyst Pillar = "catalyst"
	PillarFloat    Pillar = "float"
)

// NumPillars is the size of the closed pillar set.
const NumPillars = 5

// Pillars returns all pillars in canonical order.
func Pillars() [NumPillars]Pillar {
	return [NumPillars]Pillar{PillarPrice, PillarMomentum, PillarVolume, PillarCatalyst, PillarFloat}
}

// Index returns the canonical slot of p, or -1 for an unknown pillar.
func (p Pillar) Index() int {
	switch p {
	case PillarPrice:
		return 0
	case PillarMomentum:
		return 1
	case PillarVolume:
		return 2
	case PillarCatalyst:
		return 3
	case PillarFloat:
		return 4
	default:
		return -1
	}
}

// IsValidPillar returns true if p names a known pillar.
func IsValidPillar(p Pillar) bool { return p.Index() >= 0 }

// Score bounds. All pillar values live in [ScoreMin, ScoreMax]; ScoreNeutral
// is the defined midpoint for formulas that have one, and
// ScoreInsufficient is the defined fallback when a pillar lacks data.
const (
	ScoreMin          = 0.0
	ScoreMax          = 100.0
	ScoreNeutral      = 50.0
	ScoreInsufficient = 0.0
)

// ClampScore bounds v to [ScoreMin, ScoreMax].
func ClampScore(v float64) float64 {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}

// PillarScore is one pillar's value for a symbol, bound to the state
// version it was computed from. It is fresh only while that version is
// still the symbol's current one.
type PillarScore struct {
	Symbol  string
	Pillar  Pillar
	Value   float64
	Version uint64
}

// CompositeScore combines the five pillar scores of one symbol for one
// cycle. Immutable once built; the next cycle supersedes it.
type CompositeScore struct {
	Symbol  string
	Version uint64
	Pillars [NumPillars]PillarScore
	Value   float64
	Rank    int // 1-based position after ranking
}

// PillarValue returns the value stored in p's canonical slot.
func (c CompositeScore) PillarValue(p Pillar) float64 {
	i := p.Index()
	if i < 0 {
		return 0
	}
	return c.Pillars[i].Value
}
