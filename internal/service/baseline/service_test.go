package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"PulseScan/internal/domain/models"
	domrepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	pkgcache "PulseScan/pkg/cache"
)

type fakeReader struct {
	volumes   map[string]float64
	err       error
	gotWindow domrepo.BaselineWindow
}

func (r *fakeReader) AvgDailyVolume(ctx context.Context, symbol string, w domrepo.BaselineWindow) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	v, ok := r.volumes[symbol]
	if !ok {
		return 0, errors.New("no history")
	}
	return v, nil
}

func (r *fakeReader) AvgDailyVolumes(ctx context.Context, symbols []string, w domrepo.BaselineWindow) (map[string]float64, error) {
	r.gotWindow = w
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]float64)
	for _, s := range symbols {
		if v, ok := r.volumes[s]; ok {
			out[s] = v
		}
	}
	return out, nil
}

type memCache struct {
	mu sync.Mutex
	m  map[string]string
}

func newMemCache() *memCache { return &memCache{m: make(map[string]string)} }

func (c *memCache) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.m[key] = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.m[key] = string(b)
	}
	return nil
}

func (c *memCache) Get(ctx context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	raw, ok := c.m[key]
	c.mu.Unlock()
	if !ok {
		return pkgcache.ErrCacheMiss
	}
	if sp, ok := dest.(*string); ok {
		*sp = raw
		return nil
	}
	return json.Unmarshal([]byte(raw), dest)
}

func (c *memCache) Delete(ctx context.Context, keys ...string) error         { return nil }
func (c *memCache) Exists(ctx context.Context, keys ...string) (bool, error) { return false, nil }

type nullMetrics struct{}

func (nullMetrics) RecordTickIngested(source, symbol string)     {}
func (nullMetrics) RecordTickRejected(reason string)             {}
func (nullMetrics) RecordCycle(status string, seconds float64)   {}
func (nullMetrics) RecordCycleSkipped()                          {}
func (nullMetrics) RecordCacheHit(pillar string)                 {}
func (nullMetrics) RecordCacheMiss(pillar string)                {}
func (nullMetrics) RecordComposite(symbol string, score float64) {}
func (nullMetrics) RecordError(kind string)                      {}
func (nullMetrics) RecordLatency(op string, seconds float64)     {}

func TestWarmScalesDailyVolumeToScanInterval(t *testing.T) {
	// 6.5h session at 1s cadence = 23400 intervals per day
	reader := &fakeReader{volumes: map[string]float64{"AAA": 23400 * 100}}
	store := state.NewStore(state.Config{})
	svc := New(reader, newMemCache(), store, nullMetrics{}, Config{
		Window:        domrepo.BW30d,
		ScanInterval:  time.Second,
		SessionLength: 6*time.Hour + 30*time.Minute,
	})

	require.NoError(t, svc.Warm(context.Background(), []string{"AAA", "ZZZ"}))

	v, ok := svc.Lookup(context.Background(), "AAA")
	require.True(t, ok)
	assert.InDelta(t, 100.0, v, 1e-9)

	_, ok = svc.Lookup(context.Background(), "ZZZ")
	assert.False(t, ok)

	snap, ok := store.Snapshot("AAA")
	require.True(t, ok)
	assert.InDelta(t, 100.0, snap.BaselineVolume, 1e-9)
}

func TestWarmBumpsStateVersion(t *testing.T) {
	reader := &fakeReader{volumes: map[string]float64{"AAA": 23400}}
	store := state.NewStore(state.Config{})
	require.NoError(t, store.Ingest(&models.Tick{Symbol: "AAA", Timestamp: 1000, Price: 5, Volume: 10}))
	before := store.Version("AAA")

	svc := New(reader, newMemCache(), store, nullMetrics{}, Config{ScanInterval: time.Second})
	require.NoError(t, svc.Warm(context.Background(), []string{"AAA"}))

	assert.Greater(t, store.Version("AAA"), before)
}

func TestWarmPersistsMsgpackSnapshot(t *testing.T) {
	reader := &fakeReader{volumes: map[string]float64{"AAA": 23400, "BBB": 46800}}
	cache := newMemCache()
	svc := New(reader, cache, state.NewStore(state.Config{}), nullMetrics{}, Config{
		ScanInterval:  time.Second,
		SessionLength: 6*time.Hour + 30*time.Minute,
		CacheKey:      "baseline:test",
	})

	require.NoError(t, svc.Warm(context.Background(), []string{"AAA", "BBB"}))

	raw, ok := cache.m["baseline:test"]
	require.True(t, ok)
	var snap map[string]float64
	require.NoError(t, msgpack.Unmarshal([]byte(raw), &snap))
	assert.Len(t, snap, 2)
	assert.InDelta(t, 1.0, snap["AAA"], 1e-9)
	assert.InDelta(t, 2.0, snap["BBB"], 1e-9)
}

func TestRestoreReloadsSnapshotIntoState(t *testing.T) {
	cache := newMemCache()
	reader := &fakeReader{volumes: map[string]float64{"AAA": 23400}}
	first := New(reader, cache, state.NewStore(state.Config{}), nullMetrics{}, Config{ScanInterval: time.Second})
	require.NoError(t, first.Warm(context.Background(), []string{"AAA"}))

	// fresh process: empty reader, warm never ran
	store := state.NewStore(state.Config{})
	second := New(&fakeReader{}, cache, store, nullMetrics{}, Config{ScanInterval: time.Second})

	n := second.Restore(context.Background())
	assert.Equal(t, 1, n)

	v, ok := second.Lookup(context.Background(), "AAA")
	require.True(t, ok)
	assert.InDelta(t, 1.0, v, 1e-9)

	snap, ok := store.Snapshot("AAA")
	require.True(t, ok)
	assert.InDelta(t, 1.0, snap.BaselineVolume, 1e-9)
}

func TestRestoreColdCacheIsQuiet(t *testing.T) {
	svc := New(&fakeReader{}, newMemCache(), state.NewStore(state.Config{}), nullMetrics{}, Config{})
	assert.Zero(t, svc.Restore(context.Background()))
}

func TestWarmPropagatesReaderError(t *testing.T) {
	reader := &fakeReader{err: errors.New("clickhouse down")}
	svc := New(reader, newMemCache(), state.NewStore(state.Config{}), nullMetrics{}, Config{})

	err := svc.Warm(context.Background(), []string{"AAA"})
	assert.ErrorContains(t, err, "clickhouse down")
	_, ok := svc.Lookup(context.Background(), "AAA")
	assert.False(t, ok)
}

func TestInvalidWindowFallsBackToDefault(t *testing.T) {
	reader := &fakeReader{volumes: map[string]float64{}}
	svc := New(reader, newMemCache(), state.NewStore(state.Config{}), nullMetrics{}, Config{Window: "fortnight"})

	require.NoError(t, svc.Warm(context.Background(), []string{"AAA"}))
	assert.Equal(t, domrepo.BW30d, reader.gotWindow)
}
