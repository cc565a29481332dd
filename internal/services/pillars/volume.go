package pillars

import (
	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
	"PulseScan/internal/services/features"
)

// VolumeEvaluator scores the latest interval volume against a baseline:
// the warm historical baseline when the snapshot carries one, otherwise the
// trailing mean of the volume window. A symbol with no usable baseline
// scores the insufficient-data fallback, never a division fault.
type VolumeEvaluator struct {
	cfg VolumeConfig
}

func NewVolumeEvaluator(cfg VolumeConfig) *VolumeEvaluator {
	if cfg.RVolTarget <= 0 {
		cfg.RVolTarget = DefaultConfig().Volume.RVolTarget
	}
	return &VolumeEvaluator{cfg: cfg}
}

func (e *VolumeEvaluator) Pillar() models.Pillar { return models.PillarVolume }

func (e *VolumeEvaluator) Evaluate(snap models.StateSnapshot) models.PillarScore {
	score := models.PillarScore{Symbol: snap.Symbol, Pillar: models.PillarVolume, Version: snap.Version}

	baseline := snap.BaselineVolume
	if baseline <= 0 {
		if m, ok := features.TrailingMean(snap.Volumes); ok {
			baseline = m
		}
	}
	rvol, ok := features.RelativeVolume(snap.LastVolume(), baseline)
	if !ok {
		score.Value = models.ScoreInsufficient
		return score
	}
	score.Value = models.ClampScore(models.ScoreMax * rvol / e.cfg.RVolTarget)
	return score
}

var _ domsvc.PillarEvaluator = (*VolumeEvaluator)(nil)
