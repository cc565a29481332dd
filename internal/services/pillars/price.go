package pillars

import (
	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
	"PulseScan/internal/services/features"
)

// PriceEvaluator scores where the last price sits inside its recent
// window, gated by the configured tradable band.
type PriceEvaluator struct {
	cfg PriceConfig
}

func NewPriceEvaluator(cfg PriceConfig) *PriceEvaluator {
	if cfg.MinPoints <= 0 {
		cfg.MinPoints = DefaultConfig().Price.MinPoints
	}
	return &PriceEvaluator{cfg: cfg}
}

func (e *PriceEvaluator) Pillar() models.Pillar { return models.PillarPrice }

func (e *PriceEvaluator) Evaluate(snap models.StateSnapshot) models.PillarScore {
	score := models.PillarScore{Symbol: snap.Symbol, Pillar: models.PillarPrice, Version: snap.Version}

	if !snap.HasPriceHistory(e.cfg.MinPoints) {
		score.Value = models.ScoreInsufficient
		return score
	}
	last := snap.LastPrice()
	if last < e.cfg.MinPrice || (e.cfg.MaxPrice > 0 && last > e.cfg.MaxPrice) {
		score.Value = models.ScoreMin
		return score
	}

	low, high, ok := features.Bounds(snap.Prices)
	if !ok {
		score.Value = models.ScoreInsufficient
		return score
	}
	if high == low {
		score.Value = models.ScoreNeutral
		return score
	}
	score.Value = models.ClampScore(models.ScoreMax * (last - low) / (high - low))
	return score
}

var _ domsvc.PillarEvaluator = (*PriceEvaluator)(nil)
