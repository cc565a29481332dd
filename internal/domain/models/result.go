package models

import "time"

// CycleStatus marks how a scan cycle completed.
type CycleStatus string

const (
	CycleOK       CycleStatus = "ok"
	CycleDegraded CycleStatus = "degraded"
)

// CyclePhase tracks where the scheduler is inside one cycle.
type CyclePhase int32

const (
	PhaseIdle CyclePhase = iota
	PhaseIngesting
	PhaseEvaluating
	PhaseAggregating
	PhaseEmitted
)

func (p CyclePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseIngesting:
		return "ingesting"
	case PhaseEvaluating:
		return "evaluating"
	case PhaseAggregating:
		return "aggregating"
	case PhaseEmitted:
		return "emitted"
	default:
		return "unknown"
	}
}

// CycleCounters carries per-cycle ingest/evaluation bookkeeping surfaced in
// the ScanResult and in metrics.
type CycleCounters struct {
	TicksAccepted int
	TicksRejected int
	CacheHits     int
	CacheMisses   int
}

// ScanResult is the ordered outcome of one scan cycle. Immutable; one per
// completed cycle.
type ScanResult struct {
	CycleID   string
	Seq       uint64
	StartedAt time.Time
	Duration  time.Duration
	Status    CycleStatus
	Reason    string // empty unless degraded
	Entries   []CompositeScore
	Skipped   []string // symbols not evaluated before the deadline
	Counters  CycleCounters
}

// Top returns the first n entries (the full set when n exceeds it).
func (r *ScanResult) Top(n int) []CompositeScore {
	if n <= 0 || n >= len(r.Entries) {
		return r.Entries
	}
	return r.Entries[:n]
}

// Entry returns the composite score for symbol, if present this cycle.
func (r *ScanResult) Entry(symbol string) (CompositeScore, bool) {
	for _, e := range r.Entries {
		if e.Symbol == symbol {
			return e, true
		}
	}
	return CompositeScore{}, false
}
