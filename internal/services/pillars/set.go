package pillars

import domsvc "PulseScan/internal/domain/service"

// NewSet builds the five evaluators in canonical slot order from one config
// (each constructor fills its own unset fields).
func NewSet(cfg Config) domsvc.EvaluatorSet {
	return domsvc.EvaluatorSet{
		NewPriceEvaluator(cfg.Price),
		NewMomentumEvaluator(cfg.Momentum),
		NewVolumeEvaluator(cfg.Volume),
		NewCatalystEvaluator(cfg.Catalyst),
		NewFloatEvaluator(cfg.Float),
	}
}
