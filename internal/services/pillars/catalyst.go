package pillars

import (
	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
)

// CatalystEvaluator maps retained news events to discrete tiers with a
// recency step-down. Ages are measured against the snapshot's own last tick
// time so the score is a pure function of state, not of the wall clock.
type CatalystEvaluator struct {
	cfg CatalystConfig
}

func NewCatalystEvaluator(cfg CatalystConfig) *CatalystEvaluator {
	if cfg.FreshAge <= 0 {
		cfg.FreshAge = DefaultConfig().Catalyst.FreshAge
	}
	if cfg.RecentAge <= cfg.FreshAge {
		cfg.RecentAge = 2 * cfg.FreshAge
	}
	return &CatalystEvaluator{cfg: cfg}
}

func (e *CatalystEvaluator) Pillar() models.Pillar { return models.PillarCatalyst }

func categoryTier(c models.CatalystCategory) float64 {
	switch c {
	case models.CatalystEarnings, models.CatalystFDA:
		return 100
	case models.CatalystMNA:
		return 90
	case models.CatalystContracts:
		return 80
	case models.CatalystGuidance:
		return 70
	default:
		return 0
	}
}

func (e *CatalystEvaluator) Evaluate(snap models.StateSnapshot) models.PillarScore {
	score := models.PillarScore{Symbol: snap.Symbol, Pillar: models.PillarCatalyst, Version: snap.Version}

	freshSecs := int64(e.cfg.FreshAge.Seconds())
	recentSecs := int64(e.cfg.RecentAge.Seconds())

	best := 0.0
	for _, ev := range snap.Catalysts {
		tier := categoryTier(ev.Category)
		if tier == 0 {
			continue
		}
		age := snap.LastTimestamp - ev.Timestamp
		switch {
		case age <= freshSecs:
			// full tier
		case age <= recentSecs:
			tier *= 0.75
		default:
			tier *= 0.5
		}
		if tier > best {
			best = tier
		}
	}
	score.Value = models.ClampScore(best)
	return score
}

var _ domsvc.PillarEvaluator = (*CatalystEvaluator)(nil)
