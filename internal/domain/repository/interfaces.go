package repository

import (
	"context"
	"time"

	"PulseScan/internal/domain/models"
)

// TickProvider is the capability contract every market-data source
// implements. Poll drains whatever ticks are available before ctx's
// deadline; it never blocks past it. Reconnection policy lives in the
// concrete provider, not in the scan core.
type TickProvider interface {
	Connect(ctx context.Context) error
	Poll(ctx context.Context) ([]*models.Tick, error)
	Subscribe(ctx context.Context, symbols []string) error
	Unsubscribe(ctx context.Context, symbols []string) error
	Close() error
	IsConnected() bool
}

// ResultPublisher pushes completed scan results to downstream consumers.
type ResultPublisher interface {
	Publish(ctx context.Context, r *models.ScanResult) error
	Close() error
}

// ResultStore persists scan results and serves history queries.
type ResultStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	Store(ctx context.Context, r *models.ScanResult) error
	QuerySymbol(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.CompositeScore, error)
	Health(ctx context.Context) error // ping
	Close() error
}

// BaselineSource serves trailing average-volume baselines used by the
// volume pillar. Lookup returns expected volume per tick interval; ok is
// false when no baseline exists for the symbol.
type BaselineSource interface {
	Lookup(ctx context.Context, symbol string) (avgIntervalVolume float64, ok bool)
	Warm(ctx context.Context, symbols []string) error
}

// FloatSource resolves shares outstanding per symbol; 0 means unknown.
type FloatSource interface {
	FloatShares(ctx context.Context, symbol string) (float64, error)
}

type Metrics interface {
	RecordTickIngested(source, symbol string)
	RecordTickRejected(reason string)
	RecordCycle(status string, seconds float64)
	RecordCycleSkipped()
	RecordCacheHit(pillar string)
	RecordCacheMiss(pillar string)
	RecordComposite(symbol string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
