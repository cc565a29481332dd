package pillars

import "time"

// Config carries the numeric bands for all five evaluators. Zero values
// fall back to the defaults below.
type Config struct {
	Price    PriceConfig
	Momentum MomentumConfig
	Volume   VolumeConfig
	Catalyst CatalystConfig
	Float    FloatConfig
}

type PriceConfig struct {
	MinPrice  float64 // band gate: below scores 0
	MaxPrice  float64 // band gate: above scores 0
	MinPoints int     // minimum price history
}

type MomentumConfig struct {
	LookbackTicks int
	MaxROCPct     float64 // percent move mapped to a full-range score swing
}

type VolumeConfig struct {
	RVolTarget float64 // relative volume that earns the maximum score
}

type CatalystConfig struct {
	FreshAge  time.Duration // full tier up to this age
	RecentAge time.Duration // 3/4 tier up to this age, half beyond
}

type FloatConfig struct {
	SmallMax  float64 // shares; at or below scores 100
	MediumMax float64 // shares; at or below scores 60
}

// DefaultConfig returns the scanner's stock bands: $2–$20 price gate, 10%
// momentum swing, 5x relative-volume target, 20M/100M float breaks.
func DefaultConfig() Config {
	return Config{
		Price:    PriceConfig{MinPrice: 2.0, MaxPrice: 20.0, MinPoints: 3},
		Momentum: MomentumConfig{LookbackTicks: 10, MaxROCPct: 10.0},
		Volume:   VolumeConfig{RVolTarget: 5.0},
		Catalyst: CatalystConfig{FreshAge: 6 * time.Hour, RecentAge: 12 * time.Hour},
		Float:    FloatConfig{SmallMax: 20_000_000, MediumMax: 100_000_000},
	}
}
