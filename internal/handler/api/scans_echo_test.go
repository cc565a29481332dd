package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/service/feed"
	"PulseScan/internal/service/scorecache"
	"PulseScan/internal/service/state"
	"PulseScan/internal/service/universe"
	"PulseScan/internal/services/pillars"
	"PulseScan/internal/usecase"
	xlogger "PulseScan/pkg/logger"
)

// envelope mirrors the response wrapper: the HTTP status is always 200 and
// the effective status travels in the body.
type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func testLogger(t *testing.T) *xlogger.Logger {
	t.Helper()
	l, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return l
}

func echoHandler(t *testing.T, sched *usecase.ScanScheduler, store *fakeResultStore) *ScansEchoHandler {
	t.Helper()
	uni := universe.New(feed.NewReplayFeed(nil), state.NewStore(state.Config{}), []string{"AAA", "BBB"})
	return NewScansEchoHandler(testLogger(t), sched, usecase.NewHistoryUseCase(store), uni)
}

func idleScheduler() *usecase.ScanScheduler {
	eval := usecase.NewCycleEvaluator(pillars.NewSet(pillars.DefaultConfig()), scorecache.New(0), 2)
	agg := usecase.NewScoreAggregator(usecase.EqualWeights())
	em := usecase.NewResultEmitter(nil, nil, nullMetrics{}, usecase.BackendLog)
	return usecase.NewScanScheduler(usecase.SchedulerConfig{}, feed.NewReplayFeed(nil), state.NewStore(state.Config{}), eval, agg, em, nullMetrics{})
}

func invoke(t *testing.T, h echo.HandlerFunc, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	require.NoError(t, h(echo.New().NewContext(req, rec)))

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

func TestEchoLatestServesLastCycle(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	rec, env := invoke(t, h.Latest, http.MethodGet, "/api/v1/scans/latest", "")

	assert.Equal(t, "private, max-age=1", rec.Header().Get(echo.HeaderCacheControl))
	require.Equal(t, http.StatusOK, env.Status)
	var res models.ScanResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, uint64(1), res.Seq)
	assert.Len(t, res.Entries, 2)
}

func TestEchoLatestBeforeFirstCycle(t *testing.T) {
	h := echoHandler(t, idleScheduler(), &fakeResultStore{})

	_, env := invoke(t, h.Latest, http.MethodGet, "/api/v1/scans/latest", "")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestEchoTopAppliesDefaultAndLimit(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Top, http.MethodGet, "/api/v1/scans/top", "")
	require.Equal(t, http.StatusOK, env.Status)
	var payload struct {
		Seq     uint64
		Entries []models.CompositeScore
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Len(t, payload.Entries, 2, "default n covers both symbols")

	_, env = invoke(t, h.Top, http.MethodGet, "/api/v1/scans/top?n=1", "")
	require.Equal(t, http.StatusOK, env.Status)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.Entries, 1)
	assert.Equal(t, 1, payload.Entries[0].Rank)
}

func TestEchoTopRejectsOversizedN(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Top, http.MethodGet, "/api/v1/scans/top?n=501", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestEchoScoreReturnsEntry(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Score, http.MethodGet, "/api/v1/scans/score?symbol=AAA", "")
	require.Equal(t, http.StatusOK, env.Status)
	var payload struct {
		Seq   uint64
		Score models.CompositeScore
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "AAA", payload.Score.Symbol)
	assert.Equal(t, uint64(1), payload.Seq)
}

func TestEchoScoreUnknownSymbol(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Score, http.MethodGet, "/api/v1/scans/score?symbol=ZZZ", "")
	assert.Equal(t, http.StatusNotFound, env.Status)
}

func TestEchoScoreMissingSymbol(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Score, http.MethodGet, "/api/v1/scans/score", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestEchoHistoryListsRows(t *testing.T) {
	store := &fakeResultStore{scores: []models.CompositeScore{{Symbol: "AAA", Value: 42}}}
	h := echoHandler(t, runScheduler(t), store)

	_, env := invoke(t, h.History, http.MethodGet, "/api/v1/scans/history?symbol=AAA", "")
	require.Equal(t, http.StatusOK, env.Status)
	var payload struct {
		Rows  []models.CompositeScore `json:"rows"`
		Total int64                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Len(t, payload.Rows, 1)
	assert.Equal(t, int64(1), payload.Total)
	assert.Equal(t, float64(42), payload.Rows[0].Value)
}

func TestEchoHistoryRequiresSymbol(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.History, http.MethodGet, "/api/v1/scans/history", "")
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestEchoUniverseLists(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Universe, http.MethodGet, "/api/v1/universe", "")
	require.Equal(t, http.StatusOK, env.Status)
	var payload struct {
		Symbols []string
		Count   int
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.ElementsMatch(t, []string{"AAA", "BBB"}, payload.Symbols)
	assert.Equal(t, 2, payload.Count)
}

func TestEchoUniverseAddNormalizesAndRemove(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.UniverseAdd, http.MethodPost, "/api/v1/universe/add", `{"symbols":["ccc"]}`)
	require.Equal(t, http.StatusOK, env.Status)
	var added struct {
		Added []string
		Total int
	}
	require.NoError(t, json.Unmarshal(env.Data, &added))
	assert.Equal(t, []string{"CCC"}, added.Added)
	assert.Equal(t, 3, added.Total)

	_, env = invoke(t, h.UniverseRemove, http.MethodPost, "/api/v1/universe/remove", `{"symbols":["CCC"]}`)
	require.Equal(t, http.StatusOK, env.Status)
	var removed struct {
		Removed []string
		Total   int
	}
	require.NoError(t, json.Unmarshal(env.Data, &removed))
	assert.Equal(t, []string{"CCC"}, removed.Removed)
	assert.Equal(t, 2, removed.Total)
}

func TestEchoUniverseAddRejectsEmptyList(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.UniverseAdd, http.MethodPost, "/api/v1/universe/add", `{"symbols":[]}`)
	assert.Equal(t, http.StatusBadRequest, env.Status)
}

func TestEchoHealthReportsPhaseAndSeq(t *testing.T) {
	h := echoHandler(t, runScheduler(t), &fakeResultStore{})

	_, env := invoke(t, h.Health, http.MethodGet, "/api/v1/health", "")
	require.Equal(t, http.StatusOK, env.Status)
	var payload struct {
		Status  string
		Phase   string
		LastSeq uint64
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "ok", payload.Status)
	assert.Equal(t, uint64(1), payload.LastSeq)
	assert.NotEmpty(t, payload.Phase)
}
