package state

import (
	"sort"
	"sync"
	"time"

	"PulseScan/internal/domain/models"
)

// Config bounds the per-symbol windows. Zero values fall back to defaults.
type Config struct {
	PriceWindow       int
	VolumeWindow      int
	CatalystRetention time.Duration
	MaxCatalysts      int
}

const (
	defaultPriceWindow       = 64
	defaultVolumeWindow      = 64
	defaultCatalystRetention = 24 * time.Hour
	defaultMaxCatalysts      = 8
)

// Store owns all mutable per-symbol state. Every mutation goes through
// Ingest/SetFloat/AddCatalyst; readers only ever see immutable snapshots.
// Writes to different symbols never contend with each other.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*symbolEntry
	cfg     Config
}

type symbolEntry struct {
	mu             sync.Mutex
	version        uint64
	prices         *window
	volumes        *window
	sessionVolume  float64
	baselineVolume float64
	floatShares    float64
	catalysts      []models.CatalystEvent
	firstTS        int64
	lastTS         int64
}

// NewStore creates a Store with the given window bounds.
func NewStore(cfg Config) *Store {
	if cfg.PriceWindow <= 0 {
		cfg.PriceWindow = defaultPriceWindow
	}
	if cfg.VolumeWindow <= 0 {
		cfg.VolumeWindow = defaultVolumeWindow
	}
	if cfg.CatalystRetention <= 0 {
		cfg.CatalystRetention = defaultCatalystRetention
	}
	if cfg.MaxCatalysts <= 0 {
		cfg.MaxCatalysts = defaultMaxCatalysts
	}
	return &Store{entries: make(map[string]*symbolEntry), cfg: cfg}
}

// Ingest validates and applies one tick. Accepted ticks advance the
// symbol's version by exactly one. Rejections return *models.
// InvalidTickError and leave state untouched.
func (s *Store) Ingest(t *models.Tick) error {
	if t == nil {
		return models.NewInvalidTickError("", "nil tick")
	}
	if t.Symbol == "" {
		return models.NewInvalidTickError("", "empty symbol")
	}
	if t.Timestamp <= 0 {
		return models.NewInvalidTickError(t.Symbol, "timestamp %d not positive", t.Timestamp)
	}
	if t.Price <= 0 {
		return models.NewInvalidTickError(t.Symbol, "price %.4f not positive", t.Price)
	}
	if t.Volume < 0 {
		return models.NewInvalidTickError(t.Symbol, "negative volume %.2f", t.Volume)
	}

	e := s.entry(t.Symbol)
	e.mu.Lock()
	defer e.mu.Unlock()

	// Out-of-order ticks are dropped to preserve per-symbol time
	// monotonicity. Equal timestamps are fine at second resolution.
	if t.Timestamp < e.lastTS {
		return models.NewInvalidTickError(t.Symbol, "out-of-order timestamp %d < %d", t.Timestamp, e.lastTS)
	}

	e.prices.push(t.Price)
	e.volumes.push(t.Volume)
	e.sessionVolume += t.Volume
	if e.firstTS == 0 {
		e.firstTS = t.Timestamp
	}
	e.lastTS = t.Timestamp

	if t.Catalyst != nil && t.Catalyst.Category.IsScorable() {
		e.appendCatalyst(*t.Catalyst, s.cfg)
	}

	e.version++
	return nil
}

// AddCatalyst attaches a news event to a symbol outside the tick flow
// (news side-channel). Unscorable categories are dropped silently; an
// applied event advances the version like any other mutation.
func (s *Store) AddCatalyst(symbol string, ev models.CatalystEvent) error {
	if symbol == "" {
		return models.NewInvalidTickError("", "empty symbol")
	}
	if !ev.Category.IsScorable() {
		return nil
	}
	e := s.entry(symbol)
	e.mu.Lock()
	defer e.mu.Unlock()
	e.appendCatalyst(ev, s.cfg)
	e.version++
	return nil
}

// SetFloat overwrites a symbol's shares outstanding. Stale cached scores
// must not survive a float change, so the version advances.
func (s *Store) SetFloat(symbol string, shares float64) {
	if symbol == "" || shares < 0 {
		return
	}
	e := s.entry(symbol)
	e.mu.Lock()
	e.floatShares = shares
	e.version++
	e.mu.Unlock()
}

// SetBaseline overwrites a symbol's expected per-interval volume. Baselines
// are state, not ambient lookup, so that a snapshot version pins every
// input the volume pillar reads.
func (s *Store) SetBaseline(symbol string, avgIntervalVolume float64) {
	if symbol == "" || avgIntervalVolume < 0 {
		return
	}
	e := s.entry(symbol)
	e.mu.Lock()
	e.baselineVolume = avgIntervalVolume
	e.version++
	e.mu.Unlock()
}

// Snapshot returns an immutable copy of a symbol's state at its current
// version. Catalyst retention is applied lazily here, measured against the
// symbol's own last tick time so the result is a pure function of state.
func (s *Store) Snapshot(symbol string) (models.StateSnapshot, bool) {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if !ok {
		return models.StateSnapshot{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	snap := models.StateSnapshot{
		Symbol:         symbol,
		Version:        e.version,
		Prices:         e.prices.values(),
		Volumes:        e.volumes.values(),
		SessionVolume:  e.sessionVolume,
		BaselineVolume: e.baselineVolume,
		FloatShares:    e.floatShares,
		FirstTimestamp: e.firstTS,
		LastTimestamp:  e.lastTS,
	}
	cutoff := e.lastTS - int64(s.cfg.CatalystRetention/time.Second)
	for _, ev := range e.catalysts {
		if ev.Timestamp >= cutoff {
			snap.Catalysts = append(snap.Catalysts, ev)
		}
	}
	return snap, true
}

// Version returns the current version for a symbol (0 when unknown).
func (s *Store) Version(symbol string) uint64 {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	e.mu.Lock()
	v := e.version
	e.mu.Unlock()
	return v
}

// ActiveSymbols returns all tracked symbols sorted ascending. The fixed
// order keeps every downstream pass over the universe reproducible.
func (s *Store) ActiveSymbols() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.entries))
	for sym := range s.entries {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Len returns the number of tracked symbols.
func (s *Store) Len() int {
	s.mu.RLock()
	n := len(s.entries)
	s.mu.RUnlock()
	return n
}

// Remove drops a symbol entirely (universe shrink).
func (s *Store) Remove(symbol string) {
	s.mu.Lock()
	delete(s.entries, symbol)
	s.mu.Unlock()
}

func (s *Store) entry(symbol string) *symbolEntry {
	s.mu.RLock()
	e, ok := s.entries[symbol]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[symbol]; ok {
		return e
	}
	e = &symbolEntry{
		prices:  newWindow(s.cfg.PriceWindow),
		volumes: newWindow(s.cfg.VolumeWindow),
	}
	s.entries[symbol] = e
	return e
}

// appendCatalyst prunes expired events relative to the entry's last tick,
// caps the slice, and appends. Caller holds e.mu.
func (e *symbolEntry) appendCatalyst(ev models.CatalystEvent, cfg Config) {
	cutoff := e.lastTS - int64(cfg.CatalystRetention/time.Second)
	kept := e.catalysts[:0]
	for _, old := range e.catalysts {
		if old.Timestamp >= cutoff {
			kept = append(kept, old)
		}
	}
	e.catalysts = kept
	if len(e.catalysts) >= cfg.MaxCatalysts {
		e.catalysts = e.catalysts[len(e.catalysts)-cfg.MaxCatalysts+1:]
	}
	e.catalysts = append(e.catalysts, ev)
}
