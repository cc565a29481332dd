package feed

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	"PulseScan/pkg/util"
)

// ReplayFeed replays a scripted tick sequence, one batch per poll. The same
// script always yields the same batches, which makes scan runs reproducible
// end to end.
type ReplayFeed struct {
	mu        sync.Mutex
	batches   [][]*models.Tick
	pos       int
	connected bool
}

var _ drepo.TickProvider = (*ReplayFeed)(nil)

// NewReplayFeed creates a replay provider over pre-built batches.
func NewReplayFeed(batches [][]*models.Tick) *ReplayFeed {
	return &ReplayFeed{batches: batches}
}

// ReplayFromTicks splits a flat tick sequence into fixed-size poll batches.
func ReplayFromTicks(ticks []*models.Tick, batchSize int) *ReplayFeed {
	if batchSize <= 0 {
		batchSize = 256
	}
	var batches [][]*models.Tick
	for len(ticks) > 0 {
		n := batchSize
		if n > len(ticks) {
			n = len(ticks)
		}
		batches = append(batches, ticks[:n])
		ticks = ticks[n:]
	}
	return NewReplayFeed(batches)
}

// ReplayFromFile loads a JSONL capture, one {symbol, t, c, v} object per
// line, skipping blank lines.
func ReplayFromFile(path string, batchSize int) (*ReplayFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open replay file: %w", err)
	}
	defer f.Close()

	var ticks []*models.Tick
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var m struct {
			Symbol string  `json:"symbol"`
			T      int64   `json:"t"`
			C      float64 `json:"c"`
			V      float64 `json:"v"`
		}
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("replay file line %d: %w", line, err)
		}
		ticks = append(ticks, &models.Tick{
			Symbol:    m.Symbol,
			Timestamp: util.UnixSeconds(m.T),
			Price:     m.C,
			Volume:    m.V,
			Source:    "replay",
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	return ReplayFromTicks(ticks, batchSize), nil
}

func (f *ReplayFeed) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = true
	return nil
}

// Poll returns the next scripted batch, or nothing once the script is
// exhausted.
func (f *ReplayFeed) Poll(ctx context.Context) ([]*models.Tick, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, fmt.Errorf("replay feed not connected")
	}
	if f.pos >= len(f.batches) {
		return nil, nil
	}
	b := f.batches[f.pos]
	f.pos++
	return b, nil
}

// Exhausted reports whether the script has been fully replayed.
func (f *ReplayFeed) Exhausted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos >= len(f.batches)
}

// Rewind restarts the script from the beginning.
func (f *ReplayFeed) Rewind() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pos = 0
}

// Subscribe is a no-op: the script already fixes the symbol set.
func (f *ReplayFeed) Subscribe(ctx context.Context, symbols []string) error { return nil }

// Unsubscribe is a no-op.
func (f *ReplayFeed) Unsubscribe(ctx context.Context, symbols []string) error { return nil }

func (f *ReplayFeed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	return nil
}

func (f *ReplayFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
