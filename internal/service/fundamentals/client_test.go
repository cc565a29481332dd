package fundamentals

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/service/state"
	pkghttp "PulseScan/pkg/http"
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

// floatServer serves /fundamentals?symbol=X from a fixed table and counts
// requests so tests can assert cache behavior.
func floatServer(t *testing.T, floats map[string]float64, wantKey string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if wantKey != "" && r.Header.Get("X-Api-Key") != wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		sym := r.URL.Query().Get("symbol")
		shares, ok := floats[sym]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol":       sym,
			"float_shares": shares,
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestFloatSharesFetchesAndCaches(t *testing.T) {
	srv, calls := floatServer(t, map[string]float64{"GME": 65_000_000}, "secret")
	store := state.NewStore(state.Config{})
	c := New(pkghttp.NewClient(), srv.URL, "secret", store, nullMetrics{})

	v, err := c.FloatShares(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, 65_000_000.0, v)

	snap, ok := store.Snapshot("GME")
	require.True(t, ok)
	assert.Equal(t, 65_000_000.0, snap.FloatShares)

	// Second lookup is served from the session cache, not the API.
	v, err = c.FloatShares(context.Background(), "GME")
	require.NoError(t, err)
	assert.Equal(t, 65_000_000.0, v)
	assert.Equal(t, int64(1), calls.Load())
}

func TestFloatSharesRejectsBadAPIKey(t *testing.T) {
	srv, _ := floatServer(t, map[string]float64{"GME": 65_000_000}, "secret")
	c := New(pkghttp.NewClient(), srv.URL, "wrong", state.NewStore(state.Config{}), nullMetrics{})

	_, err := c.FloatShares(context.Background(), "GME")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetch float GME")
}

func TestFloatSharesUnknownSymbol(t *testing.T) {
	srv, _ := floatServer(t, map[string]float64{}, "")
	c := New(pkghttp.NewClient(), srv.URL, "", state.NewStore(state.Config{}), nullMetrics{})

	_, err := c.FloatShares(context.Background(), "NOPE")
	require.Error(t, err)
}

func TestFloatSharesZeroIsUnknown(t *testing.T) {
	srv, _ := floatServer(t, map[string]float64{"SHELL": 0}, "")
	store := state.NewStore(state.Config{})
	c := New(pkghttp.NewClient(), srv.URL, "", store, nullMetrics{})

	_, err := c.FloatShares(context.Background(), "SHELL")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "float unknown for SHELL")

	// Nothing is cached or pushed into state on a miss.
	_, ok := store.Snapshot("SHELL")
	assert.False(t, ok)
}

func TestRefreshToleratesMisses(t *testing.T) {
	srv, calls := floatServer(t, map[string]float64{
		"AMC":  520_000_000,
		"KOSS": 9_300_000,
	}, "")
	store := state.NewStore(state.Config{})
	c := New(pkghttp.NewClient(), srv.URL, "", store, nullMetrics{})

	n := c.Refresh(context.Background(), []string{"AMC", "GONE", "KOSS"})
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(3), calls.Load())

	snap, ok := store.Snapshot("KOSS")
	require.True(t, ok)
	assert.Equal(t, 9_300_000.0, snap.FloatShares)
}

func TestRefreshStopsOnCanceledContext(t *testing.T) {
	srv, calls := floatServer(t, map[string]float64{"AMC": 520_000_000}, "")
	c := New(pkghttp.NewClient(), srv.URL, "", state.NewStore(state.Config{}), nullMetrics{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := c.Refresh(ctx, []string{"AMC", "AMC", "AMC"})
	assert.Zero(t, n)
	assert.Zero(t, calls.Load())
}
