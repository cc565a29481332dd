package models

import "fmt"

// InvalidTickError reports a tick that failed ingest validation. The tick
// is dropped and logged; the cycle continues.
type InvalidTickError struct {
	Symbol string
	Reason string
}

func (e *InvalidTickError) Error() string {
	return fmt.Sprintf("invalid tick for %q: %s", e.Symbol, e.Reason)
}

// NewInvalidTickError builds an InvalidTickError with a formatted reason.
func NewInvalidTickError(symbol, format string, a ...interface{}) *InvalidTickError {
	return &InvalidTickError{Symbol: symbol, Reason: fmt.Sprintf(format, a...)}
}

// IncompleteScoreSetError reports aggregation invoked without five fresh
// pillar scores. Fatal to that symbol's result for the cycle only.
type IncompleteScoreSetError struct {
	Symbol  string
	Missing []Pillar
	Stale   []Pillar
}

func (e *IncompleteScoreSetError) Error() string {
	return fmt.Sprintf("incomplete score set for %q: missing=%v stale=%v", e.Symbol, e.Missing, e.Stale)
}

// ProviderUnavailableError reports that the ingestion phase could not reach
// the tick provider. The cycle proceeds on stale state, marked degraded.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s unavailable: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("provider %s unavailable", e.Provider)
}

func (e *ProviderUnavailableError) Unwrap() error { return e.Err }

// DeadlineExceededError reports a cycle that overran its budget. A partial
// result is emitted, marked degraded, never silently truncated.
type DeadlineExceededError struct {
	CycleID string
	Phase   CyclePhase
	Budget  string
}

func (e *DeadlineExceededError) Error() string {
	return fmt.Sprintf("cycle %s exceeded %s budget in phase %s", e.CycleID, e.Budget, e.Phase)
}
