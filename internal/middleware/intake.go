package middleware

import (
	"fmt"
	"sync"
	"time"

	"PulseScan/internal/domain/models"
	domrepo "PulseScan/internal/domain/repository"
)

// TickIntake is a middleware between push transports (WebSocket, Kafka) and
// the pull-based scan loop. It validates, optionally throttles and
// transforms, and buffers ticks until the next cycle drains them.
type TickIntake struct {
	metrics  domrepo.Metrics
	maxRPS   int
	bufSize  int
	bufCh    chan *models.Tick
	mu       sync.Mutex
	lastSeen map[string]time.Time // per-symbol last accepted time
	// simple format transform hook (optional)
	transform func(*models.Tick) *models.Tick
	// metrics
	depthGauge   func(int)
	throttleWarn func(string)
}

type IntakeOption func(*TickIntake)

// WithMaxRPS sets the max ticks per second per symbol. Zero disables
// throttling, which is the default: dropped ticks understate session volume.
func WithMaxRPS(n int) IntakeOption {
	return func(p *TickIntake) {
		if n > 0 {
			p.maxRPS = n
		}
	}
}

// WithBufferSize sets the intake buffer capacity.
func WithBufferSize(n int) IntakeOption {
	return func(p *TickIntake) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithTransform sets a transformation hook to normalize tick format.
func WithTransform(fn func(*models.Tick) *models.Tick) IntakeOption {
	return func(p *TickIntake) { p.transform = fn }
}

// NewTickIntake creates a new intake buffer.
func NewTickIntake(metrics domrepo.Metrics, opts ...IntakeOption) *TickIntake {
	p := &TickIntake{
		metrics:  metrics,
		bufSize:  4096, // default buffer
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan *models.Tick, p.bufSize)
	// metrics hooks using domain metrics if available
	p.depthGauge = func(n int) { p.metrics.RecordLatency("intake_buffer_depth", float64(n)) }
	p.throttleWarn = func(sym string) { p.metrics.RecordError("intake_throttle_" + sym) }
	return p
}

// Push validates, throttles, and buffers one tick. A full buffer drops the
// incoming tick rather than blocking the transport's read loop.
func (p *TickIntake) Push(t *models.Tick) error {
	now := time.Now()
	if err := validateTick(t); err != nil {
		p.metrics.RecordTickRejected("intake_invalid")
		return err
	}
	if p.transform != nil {
		t = p.transform(t)
		if err := validateTick(t); err != nil {
			p.metrics.RecordTickRejected("intake_transform_invalid")
			return err
		}
	}
	if !p.allow(t.Symbol, now) {
		// throttled; record and drop silently
		p.metrics.RecordError("intake_throttle")
		if p.throttleWarn != nil {
			p.throttleWarn(t.Symbol)
		}
		return nil
	}

	select {
	case p.bufCh <- t:
		if p.depthGauge != nil {
			p.depthGauge(len(p.bufCh))
		}
	default:
		p.metrics.RecordError("intake_buffer_full")
	}
	return nil
}

// Drain returns every buffered tick without blocking, in arrival order.
// max <= 0 means no cap.
func (p *TickIntake) Drain(max int) []*models.Tick {
	n := len(p.bufCh)
	if max > 0 && n > max {
		n = max
	}
	if n == 0 {
		return nil
	}
	out := make([]*models.Tick, 0, n)
	for i := 0; i < n; i++ {
		select {
		case t := <-p.bufCh:
			out = append(out, t)
		default:
			return out
		}
	}
	return out
}

// Depth reports how many ticks are currently buffered.
func (p *TickIntake) Depth() int { return len(p.bufCh) }

func validateTick(t *models.Tick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Timestamp <= 0 {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Price <= 0 || t.Volume < 0 {
		return fmt.Errorf("bad price/volume")
	}
	return nil
}

func (p *TickIntake) allow(symbol string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// simple throttle: ensure at most maxRPS per second
	last := p.lastSeen[symbol]
	if last.IsZero() {
		p.lastSeen[symbol] = now
		return true
	}
	if now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[symbol] = now
	return true
}
