package middleware

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
)

type countingMetrics struct {
	rejected atomic.Int64
	errs     atomic.Int64
}

func (m *countingMetrics) RecordTickIngested(source, symbol string)     {}
func (m *countingMetrics) RecordTickRejected(reason string)             { m.rejected.Add(1) }
func (m *countingMetrics) RecordCycle(status string, seconds float64)   {}
func (m *countingMetrics) RecordCycleSkipped()                          {}
func (m *countingMetrics) RecordCacheHit(pillar string)                 {}
func (m *countingMetrics) RecordCacheMiss(pillar string)                {}
func (m *countingMetrics) RecordComposite(symbol string, score float64) {}
func (m *countingMetrics) RecordError(kind string)                      { m.errs.Add(1) }
func (m *countingMetrics) RecordLatency(op string, seconds float64)     {}

func validTick(symbol string, ts int64) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: ts, Price: 5, Volume: 100, Source: "ws"}
}

func TestPushAndDrainPreservesArrivalOrder(t *testing.T) {
	in := NewTickIntake(&countingMetrics{})

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, in.Push(validTick("AAA", i)))
	}

	got := in.Drain(0)
	require.Len(t, got, 5)
	for i, tk := range got {
		assert.Equal(t, int64(i+1), tk.Timestamp)
	}
	assert.Zero(t, in.Depth())
	assert.Nil(t, in.Drain(0))
}

func TestPushRejectsInvalidTicks(t *testing.T) {
	m := &countingMetrics{}
	in := NewTickIntake(m)

	bad := []*models.Tick{
		nil,
		{Symbol: "", Timestamp: 1, Price: 5, Volume: 1},
		{Symbol: "AAA", Timestamp: 0, Price: 5, Volume: 1},
		{Symbol: "AAA", Timestamp: 1, Price: 0, Volume: 1},
		{Symbol: "AAA", Timestamp: 1, Price: 5, Volume: -1},
	}
	for _, tk := range bad {
		assert.Error(t, in.Push(tk))
	}
	assert.Zero(t, in.Depth())
	assert.EqualValues(t, len(bad), m.rejected.Load())
}

func TestPushDropsWhenBufferFull(t *testing.T) {
	m := &countingMetrics{}
	in := NewTickIntake(m, WithBufferSize(2))

	require.NoError(t, in.Push(validTick("AAA", 1)))
	require.NoError(t, in.Push(validTick("AAA", 2)))
	require.NoError(t, in.Push(validTick("AAA", 3))) // no room, dropped

	got := in.Drain(0)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[1].Timestamp)
	assert.EqualValues(t, 1, m.errs.Load())
}

func TestThrottlePerSymbol(t *testing.T) {
	in := NewTickIntake(&countingMetrics{}, WithMaxRPS(1))

	require.NoError(t, in.Push(validTick("AAA", 1)))
	require.NoError(t, in.Push(validTick("AAA", 2))) // inside the window, dropped
	require.NoError(t, in.Push(validTick("BBB", 1))) // other symbols unaffected

	assert.Equal(t, 2, in.Depth())
}

func TestThrottleDisabledByDefault(t *testing.T) {
	in := NewTickIntake(&countingMetrics{})

	for i := int64(1); i <= 100; i++ {
		require.NoError(t, in.Push(validTick("AAA", i)))
	}
	assert.Equal(t, 100, in.Depth())
}

func TestTransformHookRuns(t *testing.T) {
	in := NewTickIntake(&countingMetrics{}, WithTransform(func(tk *models.Tick) *models.Tick {
		tk.Symbol = "NORM:" + tk.Symbol
		return tk
	}))

	require.NoError(t, in.Push(validTick("aaa", 1)))
	got := in.Drain(1)
	require.Len(t, got, 1)
	assert.Equal(t, "NORM:aaa", got[0].Symbol)
}

func TestDrainCapsBatchSize(t *testing.T) {
	in := NewTickIntake(&countingMetrics{})
	for i := int64(1); i <= 10; i++ {
		require.NoError(t, in.Push(validTick("AAA", i)))
	}

	assert.Len(t, in.Drain(4), 4)
	assert.Equal(t, 6, in.Depth())
}

func TestConcurrentPushIsSafe(t *testing.T) {
	in := NewTickIntake(&countingMetrics{}, WithBufferSize(10000))

	var wg sync.WaitGroup
	start := time.Now().Unix()
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			sym := string(rune('A' + g))
			for i := int64(0); i < 200; i++ {
				_ = in.Push(validTick(sym, start+i))
			}
		}(g)
	}
	wg.Wait()

	assert.Equal(t, 8*200, in.Depth())
}
