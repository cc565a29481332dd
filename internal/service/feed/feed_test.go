package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PulseScan/internal/domain/models"
	"PulseScan/internal/middleware"
)

type noopMetrics struct {
	errs atomic.Int64
}

func (m *noopMetrics) RecordTickIngested(source, symbol string)     {}
func (m *noopMetrics) RecordTickRejected(reason string)             {}
func (m *noopMetrics) RecordCycle(status string, seconds float64)   {}
func (m *noopMetrics) RecordCycleSkipped()                          {}
func (m *noopMetrics) RecordCacheHit(pillar string)                 {}
func (m *noopMetrics) RecordCacheMiss(pillar string)                {}
func (m *noopMetrics) RecordComposite(symbol string, score float64) {}
func (m *noopMetrics) RecordError(kind string)                      { m.errs.Add(1) }
func (m *noopMetrics) RecordLatency(op string, seconds float64)     {}

func TestReplayFeedIsDeterministic(t *testing.T) {
	ticks := make([]*models.Tick, 10)
	for i := range ticks {
		ticks[i] = &models.Tick{Symbol: "AAA", Timestamp: int64(1000 + i), Price: 5, Volume: 100, Source: "replay"}
	}
	f := ReplayFromTicks(ticks, 4)
	require.NoError(t, f.Connect(context.Background()))

	var first [][]*models.Tick
	for !f.Exhausted() {
		b, err := f.Poll(context.Background())
		require.NoError(t, err)
		first = append(first, b)
	}
	require.Len(t, first, 3)
	assert.Len(t, first[0], 4)
	assert.Len(t, first[2], 2)

	// exhausted script polls empty, not an error
	b, err := f.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, b)

	f.Rewind()
	second, err := f.Poll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first[0], second)
}

func TestReplayFeedRequiresConnect(t *testing.T) {
	f := ReplayFromTicks(nil, 0)
	_, err := f.Poll(context.Background())
	assert.Error(t, err)
}

func TestReplayFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	lines := strings.Join([]string{
		`{"symbol":"AAPL","t":1700000000000,"c":189.5,"v":1200}`,
		``,
		`{"symbol":"TSLA","t":1700000001,"c":242.5,"v":900}`,
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	f, err := ReplayFromFile(path, 10)
	require.NoError(t, err)
	require.NoError(t, f.Connect(context.Background()))

	batch, err := f.Poll(context.Background())
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, int64(1700000000), batch[0].Timestamp) // ms normalized
	assert.Equal(t, int64(1700000001), batch[1].Timestamp)
	assert.Equal(t, "replay", batch[0].Source)
}

func TestReplayFromFileRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("not json\n"), 0o644))

	_, err := ReplayFromFile(path, 10)
	assert.ErrorContains(t, err, "line 1")
}

func TestKafkaFeedHandleBuffersTicks(t *testing.T) {
	m := &noopMetrics{}
	intake := middleware.NewTickIntake(m)
	f := NewKafkaFeed(nil, intake, "market.ticks", m)

	assert.Equal(t, "market.ticks", f.Topic())
	require.NoError(t, f.Handle(context.Background(), []byte(`{"symbol":"TSLA","t":1700000000000,"c":242.5,"v":900}`)))

	got := intake.Drain(0)
	require.Len(t, got, 1)
	assert.Equal(t, "TSLA", got[0].Symbol)
	assert.Equal(t, int64(1700000000), got[0].Timestamp)
	assert.Equal(t, 242.5, got[0].Price)
	assert.Equal(t, "kafka", got[0].Source)
}

func TestKafkaFeedHandleFiltersBySubscription(t *testing.T) {
	m := &noopMetrics{}
	intake := middleware.NewTickIntake(m)
	f := NewKafkaFeed(nil, intake, "market.ticks", m)
	require.NoError(t, f.Subscribe(context.Background(), []string{"AAPL"}))

	require.NoError(t, f.Handle(context.Background(), []byte(`{"symbol":"TSLA","t":1700000000,"c":242.5,"v":900}`)))
	require.NoError(t, f.Handle(context.Background(), []byte(`{"symbol":"AAPL","t":1700000000,"c":189.5,"v":100}`)))

	got := intake.Drain(0)
	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)

	require.NoError(t, f.Unsubscribe(context.Background(), []string{"AAPL"}))
	require.NoError(t, f.Handle(context.Background(), []byte(`{"symbol":"TSLA","t":1700000001,"c":242.6,"v":900}`)))
	assert.Equal(t, 1, intake.Depth()) // filter empty again, everything passes
}

func TestKafkaFeedHandleRejectsGarbage(t *testing.T) {
	m := &noopMetrics{}
	f := NewKafkaFeed(nil, middleware.NewTickIntake(m), "market.ticks", m)

	assert.Error(t, f.Handle(context.Background(), []byte("{broken")))
	assert.EqualValues(t, 1, m.errs.Load())
}

func TestFactoryValidatesOptions(t *testing.T) {
	m := &noopMetrics{}
	intake := middleware.NewTickIntake(m)

	_, err := New(Options{Type: "carrier-pigeon"}, intake, nil, m)
	assert.ErrorContains(t, err, "unknown feed type")

	_, err = New(Options{Type: TypeWebSocket}, intake, nil, m)
	assert.ErrorContains(t, err, "url")

	_, err = New(Options{Type: TypeKafka, Topic: "market.ticks"}, intake, nil, m)
	assert.ErrorContains(t, err, "consumer")

	_, err = New(Options{Type: TypeReplay}, intake, nil, m)
	assert.ErrorContains(t, err, "file")
}

func TestFactoryBuildsReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"symbol":"AAPL","t":1700000000,"c":189.5,"v":1200}`), 0o644))

	m := &noopMetrics{}
	p, err := New(Options{Type: TypeReplay, ReplayFile: path}, middleware.NewTickIntake(m), nil, m)
	require.NoError(t, err)
	require.NoError(t, p.Connect(context.Background()))

	batch, err := p.Poll(context.Background())
	require.NoError(t, err)
	assert.Len(t, batch, 1)
}

func TestWebSocketFeedDeliversTrades(t *testing.T) {
	upgrader := websocket.Upgrader{}
	subscribed := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()

		var sub map[string]string
		if err := c.ReadJSON(&sub); err != nil {
			return
		}
		subscribed <- sub["symbol"]

		_ = c.WriteJSON(map[string]any{
			"type": "trade",
			"data": []map[string]any{
				{"s": "AAPL", "p": 189.5, "v": 1200.0, "t": int64(1700000000000)},
			},
		})
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	intake := middleware.NewTickIntake(&noopMetrics{})
	ws := NewWebSocketFeed("", url, time.Second, time.Minute, intake)

	require.NoError(t, ws.Connect(context.Background()))
	defer ws.Close()
	assert.True(t, ws.IsConnected())
	require.NoError(t, ws.Subscribe(context.Background(), []string{"AAPL"}))

	select {
	case s := <-subscribed:
		assert.Equal(t, "AAPL", s)
	case <-time.After(2 * time.Second):
		t.Fatal("server never saw the subscribe frame")
	}

	deadline := time.Now().Add(2 * time.Second)
	var got []*models.Tick
	for time.Now().Before(deadline) {
		batch, err := ws.Poll(context.Background())
		require.NoError(t, err)
		got = append(got, batch...)
		if len(got) > 0 {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Len(t, got, 1)
	assert.Equal(t, "AAPL", got[0].Symbol)
	assert.Equal(t, int64(1700000000), got[0].Timestamp)
	assert.Equal(t, 189.5, got[0].Price)
	assert.Equal(t, 1200.0, got[0].Volume)
	assert.Equal(t, "websocket", got[0].Source)
}
