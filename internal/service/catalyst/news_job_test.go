package catalyst

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/service/state"
)

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

func seedTick(t *testing.T, store *state.Store, symbol string, ts int64) {
	t.Helper()
	require.NoError(t, store.Ingest(&models.Tick{Symbol: symbol, Timestamp: ts, Price: 5, Volume: 100}))
}

func TestHandleAppliesScorableNews(t *testing.T) {
	store := state.NewStore(state.Config{})
	seedTick(t, store, "SAVA", 1_700_000_000)
	job := NewNewsJob(store, nullMetrics{})

	payload := map[string]interface{}{
		"symbol":   "SAVA",
		"category": "fda",
		"headline": "phase 3 readout positive",
		"t":        float64(1_700_000_100),
	}
	require.NoError(t, job.Handle(context.Background(), payload))

	snap, ok := store.Snapshot("SAVA")
	require.True(t, ok)
	require.Len(t, snap.Catalysts, 1)
	assert.Equal(t, models.CatalystFDA, snap.Catalysts[0].Category)
	assert.Equal(t, int64(1_700_000_100), snap.Catalysts[0].Timestamp)
}

func TestHandleNormalizesMillisecondTimestamps(t *testing.T) {
	store := state.NewStore(state.Config{})
	seedTick(t, store, "SAVA", 1_700_000_000)
	job := NewNewsJob(store, nullMetrics{})

	payload := json.RawMessage(`{"symbol":"SAVA","category":"earnings","headline":"beat","t":1700000100000}`)
	require.NoError(t, job.Handle(context.Background(), payload))

	snap, _ := store.Snapshot("SAVA")
	require.Len(t, snap.Catalysts, 1)
	assert.Equal(t, int64(1_700_000_100), snap.Catalysts[0].Timestamp)
}

func TestHandleDropsUnscorableCategoriesQuietly(t *testing.T) {
	store := state.NewStore(state.Config{})
	seedTick(t, store, "GME", 1_700_000_000)
	before := store.Version("GME")
	job := NewNewsJob(store, nullMetrics{})

	payload := map[string]interface{}{
		"symbol":   "GME",
		"category": "social",
		"headline": "trending on forums",
		"t":        float64(1_700_000_100),
	}
	require.NoError(t, job.Handle(context.Background(), payload))

	snap, _ := store.Snapshot("GME")
	assert.Empty(t, snap.Catalysts)
	assert.Equal(t, before, store.Version("GME"))
}

func TestHandleRejectsMalformedPayloads(t *testing.T) {
	job := NewNewsJob(state.NewStore(state.Config{}), nullMetrics{})

	assert.Error(t, job.Handle(context.Background(), map[string]interface{}{"category": "fda", "t": float64(1)}))
	assert.Error(t, job.Handle(context.Background(), map[string]interface{}{"symbol": "GME", "category": "fda"}))
	assert.Error(t, job.Handle(context.Background(), 42))
}

func TestJobRouting(t *testing.T) {
	job := NewNewsJob(state.NewStore(state.Config{}), nullMetrics{})
	assert.Equal(t, "catalyst-news", job.Name())
	assert.Equal(t, MessageType, job.Type())
}
