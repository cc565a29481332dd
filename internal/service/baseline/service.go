package baseline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	domrepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	pkgcache "PulseScan/pkg/cache"
	applogger "PulseScan/pkg/logger"
)

// Config shapes how daily volume history becomes per-interval baselines.
type Config struct {
	Window        domrepo.BaselineWindow
	ScanInterval  time.Duration // cycle cadence the baseline is scaled to
	SessionLength time.Duration // regular trading session length
	CacheTTL      time.Duration
	CacheKey      string
}

// Service warms relative-volume baselines: average daily volume from
// ClickHouse, scaled down to the scan interval, cached in the layered
// cache as a msgpack snapshot, and pushed into symbol state so scores pin
// the baseline they were computed against.
type Service struct {
	reader  domrepo.BaselineReader
	cache   pkgcache.Service
	store   *state.Store
	metrics domrepo.Metrics
	cfg     Config
	l       *applogger.Logger

	mu  sync.RWMutex
	avg map[string]float64 // per-interval expected volume
}

var _ domrepo.BaselineSource = (*Service)(nil)

// New creates the baseline service.
func New(reader domrepo.BaselineReader, cache pkgcache.Service, store *state.Store, metrics domrepo.Metrics, cfg Config) *Service {
	if !domrepo.IsValidBaselineWindow(cfg.Window) {
		cfg.Window = domrepo.DefaultBaselineWindow()
	}
	if cfg.ScanInterval <= 0 {
		cfg.ScanInterval = time.Second
	}
	if cfg.SessionLength <= 0 {
		cfg.SessionLength = 6*time.Hour + 30*time.Minute
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 24 * time.Hour
	}
	if cfg.CacheKey == "" {
		cfg.CacheKey = "baseline:snapshot"
	}
	return &Service{
		reader:  reader,
		cache:   cache,
		store:   store,
		metrics: metrics,
		cfg:     cfg,
		avg:     make(map[string]float64),
	}
}

// SetLogger injects a structured logger.
func (s *Service) SetLogger(l *applogger.Logger) { s.l = l }

// Lookup implements BaselineSource.
func (s *Service) Lookup(ctx context.Context, symbol string) (float64, bool) {
	s.mu.RLock()
	v, ok := s.avg[symbol]
	s.mu.RUnlock()
	return v, ok
}

// Warm implements BaselineSource: pulls daily averages for the given
// symbols, scales them to the scan interval, and applies them to state and
// cache. Symbols without history are left as they are; the volume pillar
// falls back to its trailing in-session mean for those.
func (s *Service) Warm(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	daily, err := s.reader.AvgDailyVolumes(ctx, symbols, s.cfg.Window)
	if err != nil {
		s.metrics.RecordError("baseline_warm")
		return fmt.Errorf("warm baselines: %w", err)
	}

	scale := s.intervalsPerSession()
	s.mu.Lock()
	for sym, v := range daily {
		s.avg[sym] = v / scale
	}
	snap := make(map[string]float64, len(s.avg))
	for k, v := range s.avg {
		snap[k] = v
	}
	s.mu.Unlock()

	for sym, v := range daily {
		s.store.SetBaseline(sym, v/scale)
	}
	s.persist(ctx, snap)

	if s.l != nil {
		s.l.Info("volume baselines warmed",
			applogger.Int("requested", len(symbols)),
			applogger.Int("found", len(daily)),
			applogger.String("window", string(s.cfg.Window)),
		)
	}
	return nil
}

// Restore loads the last persisted snapshot, so a restart does not scan a
// whole session with cold baselines. Returns how many symbols came back.
func (s *Service) Restore(ctx context.Context) int {
	if s.cache == nil {
		return 0
	}
	var raw string
	if err := s.cache.Get(ctx, s.cfg.CacheKey, &raw); err != nil {
		return 0 // cold cache; the next warm rebuilds it
	}
	var snap map[string]float64
	if err := msgpack.Unmarshal([]byte(raw), &snap); err != nil {
		if s.l != nil {
			s.l.Warn("baseline snapshot unreadable", applogger.Error(err))
		}
		return 0
	}

	s.mu.Lock()
	for k, v := range snap {
		s.avg[k] = v
	}
	s.mu.Unlock()
	for k, v := range snap {
		s.store.SetBaseline(k, v)
	}

	if s.l != nil {
		s.l.Info("volume baselines restored", applogger.Int("symbols", len(snap)))
	}
	return len(snap)
}

func (s *Service) persist(ctx context.Context, snap map[string]float64) {
	if s.cache == nil {
		return
	}
	b, err := msgpack.Marshal(snap)
	if err != nil {
		if s.l != nil {
			s.l.Warn("baseline snapshot marshal failed", applogger.Error(err))
		}
		return
	}
	if err := s.cache.Set(ctx, s.cfg.CacheKey, string(b), s.cfg.CacheTTL); err != nil {
		if s.l != nil {
			s.l.Warn("baseline snapshot cache write failed", applogger.Error(err))
		}
	}
}

func (s *Service) intervalsPerSession() float64 {
	iv := s.cfg.ScanInterval.Seconds()
	if iv <= 0 {
		iv = 1
	}
	n := s.cfg.SessionLength.Seconds() / iv
	if n < 1 {
		n = 1
	}
	return n
}
