package usecase

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	applogger "PulseScan/pkg/logger"
)

// SchedulerConfig bounds one scan cycle. Zero values fall back to defaults.
type SchedulerConfig struct {
	Interval     time.Duration // cycle cadence
	CycleBudget  time.Duration // hard deadline per cycle
	IngestBudget time.Duration // slice of the budget given to Poll
}

const (
	defaultInterval     = time.Second
	defaultCycleBudget  = 500 * time.Millisecond
	defaultIngestBudget = 100 * time.Millisecond
)

// ScanScheduler drives the scan loop: ingest provider ticks, evaluate the
// universe, aggregate, emit. One cycle at a time; a cycle that is still
// running when the next is due causes a skip, never an overlap.
type ScanScheduler struct {
	cfg       SchedulerConfig
	provider  drepo.TickProvider
	store     *state.Store
	evaluator *CycleEvaluator
	agg       *ScoreAggregator
	emitter   *ResultEmitter
	metrics   drepo.Metrics
	l         *applogger.Logger

	phase    atomic.Int32
	running  atomic.Bool
	seq      atomic.Uint64
	latestMu sync.RWMutex
	latest   *models.ScanResult

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScanScheduler creates the cycle driver.
func NewScanScheduler(
	cfg SchedulerConfig,
	provider drepo.TickProvider,
	store *state.Store,
	evaluator *CycleEvaluator,
	agg *ScoreAggregator,
	emitter *ResultEmitter,
	metrics drepo.Metrics,
) *ScanScheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.CycleBudget <= 0 {
		cfg.CycleBudget = defaultCycleBudget
	}
	if cfg.IngestBudget <= 0 || cfg.IngestBudget > cfg.CycleBudget {
		cfg.IngestBudget = defaultIngestBudget
	}
	return &ScanScheduler{
		cfg:       cfg,
		provider:  provider,
		store:     store,
		evaluator: evaluator,
		agg:       agg,
		emitter:   emitter,
		metrics:   metrics,
		stopCh:    make(chan struct{}),
	}
}

// SetLogger injects a structured logger.
func (s *ScanScheduler) SetLogger(l *applogger.Logger) { s.l = l }

// Start launches the cycle loop. It returns immediately; cycles run until
// ctx is canceled or Stop is called.
func (s *ScanScheduler) Start(ctx context.Context) error {
	s.wg.Add(1)
	go s.loop(ctx)
	return nil
}

// Stop halts the loop and waits for an in-flight cycle to finish.
func (s *ScanScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
	s.wg.Wait()
}

// Phase reports where the scheduler currently is inside a cycle.
func (s *ScanScheduler) Phase() models.CyclePhase {
	return models.CyclePhase(s.phase.Load())
}

// Latest returns the most recently emitted scan result (nil before the
// first cycle completes).
func (s *ScanScheduler) Latest() *models.ScanResult {
	s.latestMu.RLock()
	defer s.latestMu.RUnlock()
	return s.latest
}

func (s *ScanScheduler) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			if !s.running.CompareAndSwap(false, true) {
				s.metrics.RecordCycleSkipped()
				if s.l != nil {
					s.l.Warn("cycle still running, skipping this interval")
				}
				continue
			}
			s.wg.Add(1)
			go func() {
				defer s.wg.Done()
				defer s.running.Store(false)
				s.RunCycle(ctx)
			}()
		}
	}
}

// RunCycle executes exactly one scan cycle and returns its result. The
// cycle never fails as a whole: provider loss and deadline overruns degrade
// the result instead of aborting it.
func (s *ScanScheduler) RunCycle(ctx context.Context) *models.ScanResult {
	start := time.Now()
	cycleID := uuid.NewString()
	seq := s.seq.Add(1)

	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleBudget)
	defer cancel()

	status := models.CycleOK
	reason := ""
	var counters models.CycleCounters

	s.phase.Store(int32(models.PhaseIngesting))
	accepted, rejected, perr := s.ingest(cycleCtx)
	counters.TicksAccepted = accepted
	counters.TicksRejected = rejected
	if perr != nil {
		status = models.CycleDegraded
		reason = "provider_unavailable"
		s.metrics.RecordError("provider")
		if s.l != nil {
			s.l.Warn("provider unavailable, scanning stale state",
				applogger.String("cycle", cycleID),
				applogger.Error(perr),
			)
		}
	}

	s.phase.Store(int32(models.PhaseEvaluating))
	symbols := s.store.ActiveSymbols()
	snaps := make([]models.StateSnapshot, 0, len(symbols))
	for _, sym := range symbols {
		if snap, ok := s.store.Snapshot(sym); ok {
			snaps = append(snaps, snap)
		}
	}
	scored, skipped := s.evaluator.EvaluateAll(cycleCtx, snaps)
	for _, sc := range scored {
		counters.CacheHits += sc.CacheHits
		counters.CacheMisses += sc.CacheMisses
	}
	if len(skipped) > 0 {
		status = models.CycleDegraded
		if reason == "" {
			reason = "deadline_exceeded"
		}
		derr := &models.DeadlineExceededError{CycleID: cycleID, Phase: models.PhaseEvaluating, Budget: s.cfg.CycleBudget.String()}
		s.metrics.RecordError("deadline")
		if s.l != nil {
			s.l.Warn("cycle over budget, symbols skipped",
				applogger.String("cycle", cycleID),
				applogger.Int("evaluated", len(scored)),
				applogger.String("skipped", strings.Join(skipped, ",")),
				applogger.Error(derr),
			)
		}
	}

	s.phase.Store(int32(models.PhaseAggregating))
	entries := make([]models.CompositeScore, 0, len(scored))
	for _, sc := range scored {
		comp, err := s.agg.Aggregate(sc.Symbol, sc.Version, sc.Scores)
		if err != nil {
			// One symbol's defect never poisons the rest of the cycle.
			s.metrics.RecordError("aggregate")
			var ise *models.IncompleteScoreSetError
			if s.l != nil && errors.As(err, &ise) {
				s.l.Error("score set incomplete", applogger.String("symbol", sc.Symbol), applogger.Error(err))
			}
			skipped = append(skipped, sc.Symbol)
			continue
		}
		entries = append(entries, comp)
	}
	entries = s.agg.Rank(entries)
	sort.Strings(skipped)

	result := &models.ScanResult{
		CycleID:   cycleID,
		Seq:       seq,
		StartedAt: start,
		Status:    status,
		Reason:    reason,
		Entries:   entries,
		Skipped:   skipped,
		Counters:  counters,
	}

	s.phase.Store(int32(models.PhaseEmitted))
	result.Duration = time.Since(start)
	// Emission runs on the parent context: a partial result from a blown
	// budget must still reach consumers.
	if err := s.emitter.Emit(ctx, result); err != nil {
		if s.l != nil {
			s.l.Error("emit failed", applogger.String("cycle", cycleID), applogger.Error(err))
		}
	}

	s.latestMu.Lock()
	s.latest = result
	s.latestMu.Unlock()

	s.metrics.RecordCycle(string(status), result.Duration.Seconds())
	s.phase.Store(int32(models.PhaseIdle))
	return result
}

// ingest drains whatever the provider has ready within the ingest budget
// and applies it to the store. Invalid ticks are dropped and counted, never
// fatal.
func (s *ScanScheduler) ingest(ctx context.Context) (accepted, rejected int, err error) {
	if !s.provider.IsConnected() {
		return 0, 0, &models.ProviderUnavailableError{Provider: "feed"}
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.IngestBudget)
	defer cancel()

	ticks, perr := s.provider.Poll(pollCtx)
	if perr != nil {
		return 0, 0, &models.ProviderUnavailableError{Provider: "feed", Err: perr}
	}

	for _, t := range ticks {
		if ierr := s.store.Ingest(t); ierr != nil {
			rejected++
			s.metrics.RecordTickRejected(rejectReason(ierr))
			if s.l != nil {
				s.l.Debug("tick rejected", applogger.Error(ierr))
			}
			continue
		}
		accepted++
		s.metrics.RecordTickIngested(t.Source, t.Symbol)
	}
	return accepted, rejected, nil
}

func rejectReason(err error) string {
	var ite *models.InvalidTickError
	if errors.As(err, &ite) {
		switch {
		case strings.Contains(ite.Reason, "out-of-order"):
			return "out_of_order"
		case strings.Contains(ite.Reason, "price"):
			return "bad_price"
		case strings.Contains(ite.Reason, "volume"):
			return "bad_volume"
		case strings.Contains(ite.Reason, "timestamp"):
			return "bad_timestamp"
		default:
			return "invalid"
		}
	}
	return "unknown"
}
