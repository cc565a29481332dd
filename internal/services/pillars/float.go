package pillars

import (
	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
)

// FloatEvaluator scores the supply side: small floats move hardest, so they
// take the top band. Unknown float is insufficient data, not an error.
type FloatEvaluator struct {
	cfg FloatConfig
}

func NewFloatEvaluator(cfg FloatConfig) *FloatEvaluator {
	d := DefaultConfig().Float
	if cfg.SmallMax <= 0 {
		cfg.SmallMax = d.SmallMax
	}
	if cfg.MediumMax <= cfg.SmallMax {
		cfg.MediumMax = 5 * cfg.SmallMax
	}
	return &FloatEvaluator{cfg: cfg}
}

func (e *FloatEvaluator) Pillar() models.Pillar { return models.PillarFloat }

func (e *FloatEvaluator) Evaluate(snap models.StateSnapshot) models.PillarScore {
	score := models.PillarScore{Symbol: snap.Symbol, Pillar: models.PillarFloat, Version: snap.Version}

	switch {
	case snap.FloatShares <= 0:
		score.Value = models.ScoreInsufficient
	case snap.FloatShares <= e.cfg.SmallMax:
		score.Value = 100
	case snap.FloatShares <= e.cfg.MediumMax:
		score.Value = 60
	default:
		score.Value = 25
	}
	return score
}

var _ domsvc.PillarEvaluator = (*FloatEvaluator)(nil)
