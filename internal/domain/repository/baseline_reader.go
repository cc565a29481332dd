package repository

import "context"

// BaselineReader provides read-only access to historical volume aggregates
// used to warm the volume-pillar baselines.
type BaselineReader interface {
	AvgDailyVolume(ctx context.Context, symbol string, window BaselineWindow) (float64, error)
	AvgDailyVolumes(ctx context.Context, symbols []string, window BaselineWindow) (map[string]float64, error)
}
