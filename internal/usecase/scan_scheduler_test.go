package usecase

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/service/scorecache"
	"PulseScan/internal/service/state"
	"PulseScan/internal/services/pillars"
)

type fakeFeed struct {
	mu        sync.Mutex
	connected bool
	batches   [][]*models.Tick
	pollErr   error
	pollDelay time.Duration
}

func (f *fakeFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

func (f *fakeFeed) Poll(ctx context.Context) ([]*models.Tick, error) {
	if f.pollDelay > 0 {
		time.Sleep(f.pollDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pollErr != nil {
		return nil, f.pollErr
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	b := f.batches[0]
	f.batches = f.batches[1:]
	return b, nil
}

func (f *fakeFeed) Subscribe(ctx context.Context, symbols []string) error   { return nil }
func (f *fakeFeed) Unsubscribe(ctx context.Context, symbols []string) error { return nil }

func (f *fakeFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *fakeFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

type fakeMetrics struct {
	ingested   atomic.Int64
	rejected   atomic.Int64
	cycles     atomic.Int64
	cycleSkips atomic.Int64
	cacheHits  atomic.Int64
	cacheMiss  atomic.Int64
	composites atomic.Int64
	errs       atomic.Int64
	latencies  atomic.Int64
}

func (m *fakeMetrics) RecordTickIngested(source, symbol string)   { m.ingested.Add(1) }
func (m *fakeMetrics) RecordTickRejected(reason string)           { m.rejected.Add(1) }
func (m *fakeMetrics) RecordCycle(status string, seconds float64) { m.cycles.Add(1) }
func (m *fakeMetrics) RecordCycleSkipped()                        { m.cycleSkips.Add(1) }
func (m *fakeMetrics) RecordCacheHit(pillar string)               { m.cacheHits.Add(1) }
func (m *fakeMetrics) RecordCacheMiss(pillar string)              { m.cacheMiss.Add(1) }
func (m *fakeMetrics) RecordComposite(symbol string, score float64) {
	m.composites.Add(1)
}
func (m *fakeMetrics) RecordError(kind string)                  { m.errs.Add(1) }
func (m *fakeMetrics) RecordLatency(op string, seconds float64) { m.latencies.Add(1) }

func tickBatch(symbol string, n int, startTS int64, price float64) []*models.Tick {
	out := make([]*models.Tick, n)
	for i := 0; i < n; i++ {
		out[i] = &models.Tick{
			Symbol:    symbol,
			Timestamp: startTS + int64(i),
			Price:     price + 0.05*float64(i),
			Volume:    500,
			Source:    "replay",
		}
	}
	return out
}

func newTestScheduler(feed *fakeFeed, m *fakeMetrics, cfg SchedulerConfig) *ScanScheduler {
	store := state.NewStore(state.Config{})
	ev := NewCycleEvaluator(pillars.NewSet(pillars.DefaultConfig()), scorecache.New(0), 4)
	agg := NewScoreAggregator(EqualWeights())
	em := NewResultEmitter(nil, nil, m, BackendLog)
	return NewScanScheduler(cfg, feed, store, ev, agg, em, m)
}

func TestRunCycleHappyPath(t *testing.T) {
	batch := append(tickBatch("AAA", 12, 1000, 5), tickBatch("BBB", 12, 1000, 8)...)
	feed := &fakeFeed{connected: true, batches: [][]*models.Tick{batch}}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{})

	res := sched.RunCycle(context.Background())

	require.NotNil(t, res)
	assert.Equal(t, models.CycleOK, res.Status)
	assert.Empty(t, res.Reason)
	assert.EqualValues(t, 1, res.Seq)
	assert.NotEmpty(t, res.CycleID)
	assert.Equal(t, 24, res.Counters.TicksAccepted)
	assert.Zero(t, res.Counters.TicksRejected)
	assert.Empty(t, res.Skipped)

	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, 2, res.Entries[1].Rank)
	assert.GreaterOrEqual(t, res.Entries[0].Value, res.Entries[1].Value)

	assert.Same(t, res, sched.Latest())
	assert.Equal(t, models.PhaseIdle, sched.Phase())
	assert.EqualValues(t, 1, m.cycles.Load())
	assert.EqualValues(t, 24, m.ingested.Load())
}

func TestRunCycleRepeatIsIdentical(t *testing.T) {
	batch := append(tickBatch("AAA", 12, 1000, 5), tickBatch("BBB", 12, 1000, 8)...)
	feed := &fakeFeed{connected: true, batches: [][]*models.Tick{batch}}
	sched := newTestScheduler(feed, &fakeMetrics{}, SchedulerConfig{})

	first := sched.RunCycle(context.Background())
	second := sched.RunCycle(context.Background())

	// No new ticks arrived, so versions are unchanged and the second cycle
	// must reproduce the first one score for score, rank for rank.
	assert.Equal(t, first.Entries, second.Entries)
	assert.Equal(t, models.NumPillars*2, second.Counters.CacheHits)
	assert.Zero(t, second.Counters.CacheMisses)
	assert.Equal(t, first.Seq+1, second.Seq)
	assert.NotEqual(t, first.CycleID, second.CycleID)
}

func TestRunCycleProviderDisconnectedDegrades(t *testing.T) {
	batch := tickBatch("AAA", 12, 1000, 5)
	feed := &fakeFeed{connected: true, batches: [][]*models.Tick{batch}}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{})

	warm := sched.RunCycle(context.Background())
	require.Equal(t, models.CycleOK, warm.Status)

	feed.mu.Lock()
	feed.connected = false
	feed.mu.Unlock()

	res := sched.RunCycle(context.Background())

	assert.Equal(t, models.CycleDegraded, res.Status)
	assert.Equal(t, "provider_unavailable", res.Reason)
	// Scanning keeps going on the state it already has.
	require.Len(t, res.Entries, 1)
	assert.Equal(t, warm.Entries[0].Value, res.Entries[0].Value)
	assert.EqualValues(t, 1, m.errs.Load())
}

func TestRunCyclePollErrorDegrades(t *testing.T) {
	feed := &fakeFeed{connected: true, pollErr: errors.New("stream reset")}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{})

	res := sched.RunCycle(context.Background())

	assert.Equal(t, models.CycleDegraded, res.Status)
	assert.Equal(t, "provider_unavailable", res.Reason)
	assert.Empty(t, res.Entries)
	assert.EqualValues(t, 1, m.errs.Load())
}

func TestRunCycleCountsRejectedTicks(t *testing.T) {
	batch := []*models.Tick{
		{Symbol: "AAA", Timestamp: 1000, Price: 5, Volume: 100, Source: "replay"},
		{Symbol: "AAA", Timestamp: 1001, Price: 0, Volume: 100, Source: "replay"},  // bad price
		{Symbol: "AAA", Timestamp: 900, Price: 5.1, Volume: 100, Source: "replay"}, // out of order
		{Symbol: "AAA", Timestamp: 1002, Price: 5.2, Volume: 100, Source: "replay"},
	}
	feed := &fakeFeed{connected: true, batches: [][]*models.Tick{batch}}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{})

	res := sched.RunCycle(context.Background())

	assert.Equal(t, models.CycleOK, res.Status)
	assert.Equal(t, 2, res.Counters.TicksAccepted)
	assert.Equal(t, 2, res.Counters.TicksRejected)
	assert.EqualValues(t, 2, m.rejected.Load())
}

func TestRunCycleCanceledBudgetSkipsSymbols(t *testing.T) {
	batch := append(tickBatch("AAA", 12, 1000, 5), tickBatch("BBB", 12, 1000, 8)...)
	feed := &fakeFeed{connected: true, batches: [][]*models.Tick{batch}}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := sched.RunCycle(ctx)

	// Ingest still lands (the fake ignores ctx), but evaluation cannot run,
	// so the cycle degrades and names every symbol it left behind.
	assert.Equal(t, models.CycleDegraded, res.Status)
	assert.Equal(t, "deadline_exceeded", res.Reason)
	assert.Empty(t, res.Entries)
	assert.Equal(t, []string{"AAA", "BBB"}, res.Skipped)
	assert.Same(t, res, sched.Latest())
}

func TestSchedulerSkipsOverlappingCycles(t *testing.T) {
	feed := &fakeFeed{connected: true, pollDelay: 60 * time.Millisecond}
	m := &fakeMetrics{}
	sched := newTestScheduler(feed, m, SchedulerConfig{
		Interval:     10 * time.Millisecond,
		CycleBudget:  500 * time.Millisecond,
		IngestBudget: 100 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, sched.Start(ctx))
	time.Sleep(100 * time.Millisecond)
	cancel()
	sched.Stop()

	assert.GreaterOrEqual(t, m.cycleSkips.Load(), int64(1))
}
