package models

// StateSnapshot is an immutable view of one symbol's rolling state at a
// fixed version. Window slices are copies ordered oldest first; evaluators
// may read them freely without racing ingestion.
type StateSnapshot struct {
	Symbol         string
	Version        uint64
	Prices         []float64
	Volumes        []float64
	SessionVolume  float64 // cumulative volume since state creation
	BaselineVolume float64 // expected volume per tick interval; 0 = no baseline
	FloatShares    float64 // shares outstanding; 0 = unknown
	Catalysts      []CatalystEvent
	LastTimestamp  int64 // unix seconds of the newest accepted tick
	FirstTimestamp int64
}

// HasPriceHistory reports whether at least n price points are present.
func (s StateSnapshot) HasPriceHistory(n int) bool {
	return len(s.Prices) >= n
}

// LastPrice returns the most recent price, or 0 when no tick was accepted.
func (s StateSnapshot) LastPrice() float64 {
	if len(s.Prices) == 0 {
		return 0
	}
	return s.Prices[len(s.Prices)-1]
}

// LastVolume returns the most recent volume delta, or 0 when empty.
func (s StateSnapshot) LastVolume() float64 {
	if len(s.Volumes) == 0 {
		return 0
	}
	return s.Volumes[len(s.Volumes)-1]
}
