package state

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
)

func tick(symbol string, ts int64, price, volume float64) *models.Tick {
	return &models.Tick{Symbol: symbol, Timestamp: ts, Price: price, Volume: volume, Source: "test"}
}

func TestIngestValidation(t *testing.T) {
	tests := []struct {
		name string
		tick *models.Tick
	}{
		{"nil tick", nil},
		{"empty symbol", tick("", 100, 5, 1)},
		{"zero timestamp", tick("ABC", 0, 5, 1)},
		{"zero price", tick("ABC", 100, 0, 1)},
		{"negative price", tick("ABC", 100, -1.5, 1)},
		{"negative volume", tick("ABC", 100, 5, -1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(Config{})
			err := s.Ingest(tt.tick)
			require.Error(t, err)
			var ite *models.InvalidTickError
			assert.True(t, errors.As(err, &ite))
			assert.Equal(t, 0, s.Len())
		})
	}
}

func TestVersionCountsAcceptedTicks(t *testing.T) {
	s := NewStore(Config{PriceWindow: 4, VolumeWindow: 4})

	var accepted uint64
	prev := uint64(0)
	for i := 0; i < 50; i++ {
		ts := int64(1000 + i)
		if i%7 == 3 {
			ts = 500 // out of order, must be dropped
		}
		err := s.Ingest(tick("ABC", ts, 10+float64(i)*0.01, 100))
		if err == nil {
			accepted++
		} else {
			var ite *models.InvalidTickError
			require.True(t, errors.As(err, &ite))
		}
		v := s.Version("ABC")
		assert.GreaterOrEqual(t, v, prev)
		prev = v
	}
	assert.Equal(t, accepted, s.Version("ABC"))
	assert.Less(t, accepted, uint64(50))
}

func TestEqualTimestampAccepted(t *testing.T) {
	s := NewStore(Config{})
	require.NoError(t, s.Ingest(tick("ABC", 1000, 10, 1)))
	require.NoError(t, s.Ingest(tick("ABC", 1000, 10.01, 2)))
	assert.Equal(t, uint64(2), s.Version("ABC"))
}

func TestWindowEviction(t *testing.T) {
	s := NewStore(Config{PriceWindow: 3, VolumeWindow: 3})
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Ingest(tick("ABC", int64(1000+i), float64(i+1), float64(10*(i+1)))))
	}
	snap, ok := s.Snapshot("ABC")
	require.True(t, ok)
	assert.Equal(t, []float64{3, 4, 5}, snap.Prices)
	assert.Equal(t, []float64{30, 40, 50}, snap.Volumes)
	assert.Equal(t, 150.0, snap.SessionVolume) // session total survives eviction
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(Config{})
	require.NoError(t, s.Ingest(tick("ABC", 1000, 10, 1)))
	snap, ok := s.Snapshot("ABC")
	require.True(t, ok)
	snap.Prices[0] = 999

	again, _ := s.Snapshot("ABC")
	assert.Equal(t, 10.0, again.Prices[0])
}

func TestCatalystRetentionLazyFilter(t *testing.T) {
	s := NewStore(Config{CatalystRetention: time.Hour})
	base := int64(100000)
	require.NoError(t, s.Ingest(&models.Tick{
		Symbol: "ABC", Timestamp: base, Price: 5, Volume: 1,
		Catalyst: &models.CatalystEvent{Category: models.CatalystEarnings, Headline: "beat", Timestamp: base},
	}))

	// Advance the symbol's clock past retention with plain ticks.
	require.NoError(t, s.Ingest(tick("ABC", base+1800, 5.1, 1)))
	snap, _ := s.Snapshot("ABC")
	require.Len(t, snap.Catalysts, 1)

	require.NoError(t, s.Ingest(tick("ABC", base+3700, 5.2, 1)))
	snap, _ = s.Snapshot("ABC")
	assert.Empty(t, snap.Catalysts)
}

func TestUnscorableCatalystDropped(t *testing.T) {
	s := NewStore(Config{})
	require.NoError(t, s.Ingest(&models.Tick{
		Symbol: "ABC", Timestamp: 1000, Price: 5, Volume: 1,
		Catalyst: &models.CatalystEvent{Category: models.CatalystRumor, Timestamp: 1000},
	}))
	snap, _ := s.Snapshot("ABC")
	assert.Empty(t, snap.Catalysts)

	require.NoError(t, s.AddCatalyst("ABC", models.CatalystEvent{Category: models.CatalystSocial, Timestamp: 1000}))
	assert.Equal(t, uint64(1), s.Version("ABC")) // no version bump for dropped event
}

func TestAddCatalystBumpsVersion(t *testing.T) {
	s := NewStore(Config{})
	require.NoError(t, s.Ingest(tick("ABC", 1000, 5, 1)))
	require.NoError(t, s.AddCatalyst("ABC", models.CatalystEvent{Category: models.CatalystFDA, Headline: "approval", Timestamp: 1000}))
	assert.Equal(t, uint64(2), s.Version("ABC"))

	snap, _ := s.Snapshot("ABC")
	require.Len(t, snap.Catalysts, 1)
	assert.Equal(t, models.CatalystFDA, snap.Catalysts[0].Category)
}

func TestSetFloatBumpsVersion(t *testing.T) {
	s := NewStore(Config{})
	require.NoError(t, s.Ingest(tick("ABC", 1000, 5, 1)))
	s.SetFloat("ABC", 18_000_000)
	assert.Equal(t, uint64(2), s.Version("ABC"))

	snap, _ := s.Snapshot("ABC")
	assert.Equal(t, 18_000_000.0, snap.FloatShares)
}

func TestActiveSymbolsSorted(t *testing.T) {
	s := NewStore(Config{})
	for _, sym := range []string{"ZZZ", "AAA", "MMM"} {
		require.NoError(t, s.Ingest(tick(sym, 1000, 5, 1)))
	}
	assert.Equal(t, []string{"AAA", "MMM", "ZZZ"}, s.ActiveSymbols())

	s.Remove("MMM")
	assert.Equal(t, []string{"AAA", "ZZZ"}, s.ActiveSymbols())
}

func TestConcurrentIngestDistinctSymbols(t *testing.T) {
	s := NewStore(Config{PriceWindow: 16, VolumeWindow: 16})
	const perSymbol = 200

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			sym := fmt.Sprintf("SYM%d", w)
			for i := 0; i < perSymbol; i++ {
				_ = s.Ingest(tick(sym, int64(1000+i), 10, 1))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 8, s.Len())
	for _, sym := range s.ActiveSymbols() {
		assert.Equal(t, uint64(perSymbol), s.Version(sym))
	}
}
