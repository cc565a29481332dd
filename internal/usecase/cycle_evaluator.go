package usecase

import (
	"context"
	"sync"

	"PulseScan/internal/domain/models"
	domsvc "PulseScan/internal/domain/service"
	"PulseScan/internal/service/scorecache"
)

// SymbolScores is one symbol's five pillar scores at a fixed version, plus
// cache bookkeeping for the cycle counters.
type SymbolScores struct {
	Symbol      string
	Version     uint64
	Scores      [models.NumPillars]models.PillarScore
	CacheHits   int
	CacheMisses int
}

// CycleEvaluator runs the evaluator set over a batch of snapshots on a
// bounded worker pool. Evaluators are pure and snapshots immutable, so
// workers share nothing but the score cache, which synchronizes itself.
type CycleEvaluator struct {
	evaluators domsvc.EvaluatorSet
	cache      *scorecache.Cache
	workers    int
}

const defaultEvalWorkers = 8

func NewCycleEvaluator(set domsvc.EvaluatorSet, cache *scorecache.Cache, workers int) *CycleEvaluator {
	if workers <= 0 {
		workers = defaultEvalWorkers
	}
	return &CycleEvaluator{evaluators: set, cache: cache, workers: workers}
}

type evalJob struct {
	index int
	snap  models.StateSnapshot
}

type evalResult struct {
	index   int
	scores  SymbolScores
	skipped bool
}

// EvaluateAll scores every snapshot, honoring ctx: once the deadline hits,
// remaining symbols are reported as skipped instead of evaluated. Completed
// results come back in input order.
func (e *CycleEvaluator) EvaluateAll(ctx context.Context, snaps []models.StateSnapshot) (done []SymbolScores, skipped []string) {
	if len(snaps) == 0 {
		return nil, nil
	}

	workers := e.workers
	if workers > len(snaps) {
		workers = len(snaps)
	}

	jobs := make(chan evalJob, len(snaps))
	results := make(chan evalResult, len(snaps))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				select {
				case <-ctx.Done():
					results <- evalResult{index: job.index, skipped: true}
				default:
					results <- evalResult{index: job.index, scores: e.evaluateSymbol(job.snap)}
				}
			}
		}()
	}

	for i, snap := range snaps {
		jobs <- evalJob{index: i, snap: snap}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	ordered := make([]evalResult, len(snaps))
	for res := range results {
		ordered[res.index] = res
	}

	for i, res := range ordered {
		if res.skipped {
			skipped = append(skipped, snaps[i].Symbol)
			continue
		}
		done = append(done, res.scores)
	}
	return done, skipped
}

// evaluateSymbol runs all five pillars for one snapshot through the cache.
func (e *CycleEvaluator) evaluateSymbol(snap models.StateSnapshot) SymbolScores {
	out := SymbolScores{Symbol: snap.Symbol, Version: snap.Version}
	for i, ev := range e.evaluators {
		ev := ev
		score, hit := e.cache.GetOrCompute(snap.Symbol, ev.Pillar(), snap.Version, func() models.PillarScore {
			return ev.Evaluate(snap)
		})
		out.Scores[i] = score
		if hit {
			out.CacheHits++
		} else {
			out.CacheMisses++
		}
	}
	return out
}
