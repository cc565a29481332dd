package pillars

import (
	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
	"PulseScan/internal/services/features"
)

// MomentumEvaluator maps the rate of change over the lookback window onto
// the score range: a flat series sits at the neutral midpoint, a move of
// MaxROCPct or better pins the score at its bound.
type MomentumEvaluator struct {
	cfg MomentumConfig
}

func NewMomentumEvaluator(cfg MomentumConfig) *MomentumEvaluator {
	d := DefaultConfig().Momentum
	if cfg.LookbackTicks < 2 {
		cfg.LookbackTicks = d.LookbackTicks
	}
	if cfg.MaxROCPct <= 0 {
		cfg.MaxROCPct = d.MaxROCPct
	}
	return &MomentumEvaluator{cfg: cfg}
}

func (e *MomentumEvaluator) Pillar() models.Pillar { return models.PillarMomentum }

func (e *MomentumEvaluator) Evaluate(snap models.StateSnapshot) models.PillarScore {
	score := models.PillarScore{Symbol: snap.Symbol, Pillar: models.PillarMomentum, Version: snap.Version}

	roc, ok := features.RateOfChange(snap.Prices, e.cfg.LookbackTicks)
	if !ok {
		score.Value = models.ScoreInsufficient
		return score
	}
	score.Value = models.ClampScore(models.ScoreNeutral + models.ScoreNeutral*(roc/e.cfg.MaxROCPct))
	return score
}

var _ domsvc.PillarEvaluator = (*MomentumEvaluator)(nil)
