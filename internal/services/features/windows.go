package features

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// RateOfChange computes the percent change from the first to the last of
// the trailing lookback samples. ok is false with fewer than two samples in
// the window or a non-positive starting value.
func RateOfChange(prices []float64, lookback int) (roc float64, ok bool) {
	if lookback < 2 {
		lookback = 2
	}
	if len(prices) < 2 {
		return 0, false
	}
	w := prices
	if len(w) > lookback {
		w = w[len(w)-lookback:]
	}
	first, last := w[0], w[len(w)-1]
	if first <= 0 {
		return 0, false
	}
	return (last - first) / first * 100, true
}

// Bounds returns the low and high of the samples. ok is false for an empty
// slice.
func Bounds(samples []float64) (low, high float64, ok bool) {
	if len(samples) == 0 {
		return 0, 0, false
	}
	return floats.Min(samples), floats.Max(samples), true
}

// TrailingMean averages all samples except the final one, the usual
// baseline for judging the latest sample. ok is false when fewer than two
// samples exist.
func TrailingMean(samples []float64) (mean float64, ok bool) {
	if len(samples) < 2 {
		return 0, false
	}
	return stat.Mean(samples[:len(samples)-1], nil), true
}

// RelativeVolume divides latest by baseline, guarding the zero baseline.
func RelativeVolume(latest, baseline float64) (rvol float64, ok bool) {
	if baseline <= 0 {
		return 0, false
	}
	return latest / baseline, true
}
