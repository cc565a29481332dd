package universe

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	applogger "PulseScan/pkg/logger"
)

// Service owns the scanned symbol set. It is the single place where
// operator input (config, API) meets the feed: symbols are normalized
// here, subscriptions follow set membership, and removed symbols have
// their state dropped so they stop appearing in results.
type Service struct {
	provider drepo.TickProvider
	store    *state.Store
	baseline drepo.BaselineSource
	floats   drepo.FloatSource
	l        *applogger.Logger

	mu      sync.RWMutex
	symbols map[string]struct{}
}

// Option configures optional warm sources.
type Option func(*Service)

// WithBaselineWarm warms volume baselines for symbols added at runtime.
func WithBaselineWarm(b drepo.BaselineSource) Option {
	return func(s *Service) { s.baseline = b }
}

// WithFloatWarm resolves share float for symbols added at runtime.
func WithFloatWarm(f drepo.FloatSource) Option {
	return func(s *Service) { s.floats = f }
}

// New creates the universe service seeded with the configured symbols.
func New(provider drepo.TickProvider, store *state.Store, initial []string, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		store:    store,
		symbols:  make(map[string]struct{}, len(initial)),
	}
	for _, sym := range initial {
		if n := normalize(sym); n != "" {
			s.symbols[n] = struct{}{}
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetLogger injects a structured logger.
func (s *Service) SetLogger(l *applogger.Logger) { s.l = l }

// Start subscribes the feed to the seeded symbol set.
func (s *Service) Start(ctx context.Context) error {
	syms := s.Symbols()
	if len(syms) == 0 {
		return nil
	}
	if err := s.provider.Subscribe(ctx, syms); err != nil {
		return fmt.Errorf("subscribe universe: %w", err)
	}
	if s.l != nil {
		s.l.Info("universe subscribed", applogger.Int("symbols", len(syms)))
	}
	return nil
}

// Add subscribes new symbols and warms their baselines and float. Symbols
// already tracked are ignored. The set is only updated once the feed
// accepts the subscription.
func (s *Service) Add(ctx context.Context, symbols []string) ([]string, error) {
	added := s.missing(symbols)
	if len(added) == 0 {
		return nil, nil
	}
	if err := s.provider.Subscribe(ctx, added); err != nil {
		return nil, fmt.Errorf("subscribe %v: %w", added, err)
	}

	s.mu.Lock()
	for _, sym := range added {
		s.symbols[sym] = struct{}{}
	}
	s.mu.Unlock()

	s.warm(ctx, added)
	if s.l != nil {
		s.l.Info("symbols added", applogger.Any("symbols", added))
	}
	return added, nil
}

// Remove unsubscribes symbols and drops their scan state. Unknown symbols
// are ignored.
func (s *Service) Remove(ctx context.Context, symbols []string) ([]string, error) {
	removed := s.present(symbols)
	if len(removed) == 0 {
		return nil, nil
	}
	if err := s.provider.Unsubscribe(ctx, removed); err != nil {
		return nil, fmt.Errorf("unsubscribe %v: %w", removed, err)
	}

	s.mu.Lock()
	for _, sym := range removed {
		delete(s.symbols, sym)
	}
	s.mu.Unlock()

	for _, sym := range removed {
		s.store.Remove(sym)
	}
	if s.l != nil {
		s.l.Info("symbols removed", applogger.Any("symbols", removed))
	}
	return removed, nil
}

// Resync re-asserts the subscription for the whole set. Subscriptions are
// idempotent upstream, so this is safe to run on a schedule as a hedge
// against feed reconnects.
func (s *Service) Resync(ctx context.Context) error {
	syms := s.Symbols()
	if len(syms) == 0 {
		return nil
	}
	if err := s.provider.Subscribe(ctx, syms); err != nil {
		return fmt.Errorf("resync universe: %w", err)
	}
	return nil
}

// Symbols returns the tracked set sorted ascending.
func (s *Service) Symbols() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out = append(out, sym)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Contains reports whether the symbol is part of the universe.
func (s *Service) Contains(symbol string) bool {
	s.mu.RLock()
	_, ok := s.symbols[normalize(symbol)]
	s.mu.RUnlock()
	return ok
}

// Len returns the universe size.
func (s *Service) Len() int {
	s.mu.RLock()
	n := len(s.symbols)
	s.mu.RUnlock()
	return n
}

func (s *Service) warm(ctx context.Context, symbols []string) {
	if s.baseline != nil {
		if err := s.baseline.Warm(ctx, symbols); err != nil && s.l != nil {
			s.l.Warn("baseline warm on add failed", applogger.Error(err))
		}
	}
	if s.floats == nil {
		return
	}
	for _, sym := range symbols {
		if _, err := s.floats.FloatShares(ctx, sym); err != nil && s.l != nil {
			s.l.Debug("float warm miss", applogger.String("symbol", sym), applogger.Error(err))
		}
	}
}

// missing normalizes and returns the symbols not yet tracked, deduplicated
// and sorted.
func (s *Service) missing(symbols []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		n := normalize(sym)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := s.symbols[n]; !ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

// present normalizes and returns the symbols currently tracked.
func (s *Service) present(symbols []string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		n := normalize(sym)
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		if _, ok := s.symbols[n]; ok {
			out = append(out, n)
		}
	}
	sort.Strings(out)
	return out
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
