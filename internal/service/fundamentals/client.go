package fundamentals

import (
	"context"
	"fmt"
	"sync"

	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	pkghttp "PulseScan/pkg/http"
	applogger "PulseScan/pkg/logger"
)

// Client fetches share float from the fundamentals API and pushes it into
// symbol state. Float moves rarely, so fetched values are held for the
// session and refreshed in bulk pre-market.
type Client struct {
	http    *pkghttp.Client
	baseURL string
	apiKey  string
	store   *state.Store
	metrics drepo.Metrics
	l       *applogger.Logger

	mu    sync.RWMutex
	known map[string]float64
}

var _ drepo.FloatSource = (*Client)(nil)

// New creates the fundamentals client.
func New(httpc *pkghttp.Client, baseURL, apiKey string, store *state.Store, metrics drepo.Metrics) *Client {
	return &Client{
		http:    httpc,
		baseURL: baseURL,
		apiKey:  apiKey,
		store:   store,
		metrics: metrics,
		known:   make(map[string]float64),
	}
}

// SetLogger injects a structured logger.
func (c *Client) SetLogger(l *applogger.Logger) { c.l = l }

// FloatShares implements FloatSource: session cache first, API on miss.
func (c *Client) FloatShares(ctx context.Context, symbol string) (float64, error) {
	c.mu.RLock()
	v, ok := c.known[symbol]
	c.mu.RUnlock()
	if ok {
		return v, nil
	}
	return c.fetch(ctx, symbol)
}

func (c *Client) fetch(ctx context.Context, symbol string) (float64, error) {
	var out struct {
		Symbol      string  `json:"symbol"`
		FloatShares float64 `json:"float_shares"`
	}
	opts := &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + "/fundamentals",
		QueryParams: map[string][]string{"symbol": {symbol}},
	}
	if c.apiKey != "" {
		opts.Headers = map[string]string{"X-Api-Key": c.apiKey}
	}
	if err := c.http.SendAndParse(ctx, opts, &out); err != nil {
		c.metrics.RecordError("fundamentals_fetch")
		return 0, fmt.Errorf("fetch float %s: %w", symbol, err)
	}
	if out.FloatShares <= 0 {
		return 0, fmt.Errorf("float unknown for %s", symbol)
	}

	c.mu.Lock()
	c.known[symbol] = out.FloatShares
	c.mu.Unlock()
	c.store.SetFloat(symbol, out.FloatShares)
	return out.FloatShares, nil
}

// Refresh fetches floats for the whole universe, tolerating per-symbol
// misses. Returns how many symbols resolved.
func (c *Client) Refresh(ctx context.Context, symbols []string) int {
	n := 0
	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		if _, err := c.fetch(ctx, sym); err != nil {
			if c.l != nil {
				c.l.Debug("float refresh miss", applogger.String("symbol", sym), applogger.Error(err))
			}
			continue
		}
		n++
	}
	if c.l != nil {
		c.l.Info("share floats refreshed",
			applogger.Int("requested", len(symbols)),
			applogger.Int("resolved", n),
		)
	}
	return n
}
