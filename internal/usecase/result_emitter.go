package usecase

import (
	"context"
	"fmt"
	"time"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	applogger "PulseScan/pkg/logger"
)

// Emitter backends. "both" publishes and persists; "log" only logs, which
// is the development default.
const (
	BackendKafka      = "kafka"
	BackendClickHouse = "clickhouse"
	BackendBoth       = "both"
	BackendLog        = "log"
)

// ResultEmitter routes a completed ScanResult to the configured backend.
type ResultEmitter struct {
	pub     drepo.ResultPublisher
	store   drepo.ResultStore
	metrics drepo.Metrics
	backend string
	l       *applogger.Logger
}

// NewResultEmitter creates a new ResultEmitter instance.
func NewResultEmitter(pub drepo.ResultPublisher, store drepo.ResultStore, metrics drepo.Metrics, backend string) *ResultEmitter {
	if backend == "" {
		backend = BackendLog
	}
	return &ResultEmitter{pub: pub, store: store, metrics: metrics, backend: backend}
}

// SetLogger injects a structured logger.
func (p *ResultEmitter) SetLogger(l *applogger.Logger) { p.l = l }

// Emit publishes one scan result to the configured backend. Emission
// failures are cycle metadata, never a reason to halt scanning.
func (p *ResultEmitter) Emit(ctx context.Context, r *models.ScanResult) error {
	if r == nil {
		return fmt.Errorf("scan result is nil")
	}

	start := time.Now()
	var err error

	switch p.backend {
	case BackendKafka:
		err = p.pub.Publish(ctx, r)
	case BackendClickHouse:
		err = p.store.Store(ctx, r)
	case BackendBoth:
		// Sinks are independent; a broker failure must not cost the row.
		err = p.pub.Publish(ctx, r)
		if serr := p.store.Store(ctx, r); serr != nil && err == nil {
			err = serr
		}
	case BackendLog:
		p.logResult(r)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}

	if err != nil {
		p.metrics.RecordError("emit")
		return fmt.Errorf("emit scan result: %w", err)
	}

	for _, e := range r.Entries {
		p.metrics.RecordComposite(e.Symbol, e.Value)
	}
	p.metrics.RecordLatency("emit", time.Since(start).Seconds())
	return nil
}

func (p *ResultEmitter) logResult(r *models.ScanResult) {
	if p.l == nil {
		return
	}
	for _, e := range r.Top(3) {
		p.l.Info("scan leader",
			applogger.String("cycle", r.CycleID),
			applogger.Int("rank", e.Rank),
			applogger.String("symbol", e.Symbol),
			applogger.Float64("score", e.Value),
		)
	}
}

// Close closes underlying resources if available.
func (p *ResultEmitter) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
