package service

import "PulseScan/internal/domain/models"

// PillarEvaluator scores one dimension of a symbol's state. Implementations
// must be pure and total: no I/O, no shared mutable state, a defined
// fallback score for missing data, and identical output for an identical
// snapshot version.
type PillarEvaluator interface {
	Pillar() models.Pillar
	Evaluate(snap models.StateSnapshot) models.PillarScore
}

// EvaluatorSet is the closed collection of the five pillar evaluators in
// canonical order. Slot i holds the evaluator whose Pillar().Index() == i.
type EvaluatorSet [models.NumPillars]PillarEvaluator
