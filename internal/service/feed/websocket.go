package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/middleware"
	applogger "PulseScan/pkg/logger"
	"PulseScan/pkg/util"
)

// WebSocketFeed implements a TickProvider backed by a Finnhub-style trade
// WebSocket. A background read loop pushes parsed ticks into the intake
// buffer; Poll drains whatever has accumulated since the last cycle.
type WebSocketFeed struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	intake *middleware.TickIntake
	l      *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   map[string]struct{}

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

var _ drepo.TickProvider = (*WebSocketFeed)(nil)

// NewWebSocketFeed creates a new WebSocket tick provider.
func NewWebSocketFeed(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, intake *middleware.TickIntake) *WebSocketFeed {
	if reconnectDelay <= 0 {
		reconnectDelay = 2 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 20 * time.Second
	}
	return &WebSocketFeed{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		intake:         intake,
		symbols:        make(map[string]struct{}),
	}
}

// SetLogger injects a structured logger.
func (c *WebSocketFeed) SetLogger(l *applogger.Logger) { c.l = l }

// Connect establishes the WebSocket connection and starts the read and ping
// loops. The loops run until Close or ctx cancellation.
func (c *WebSocketFeed) Connect(ctx context.Context) error {
	if err := c.dial(ctx); err != nil {
		return err
	}

	loopCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel

	c.wg.Add(2)
	go c.pingLoop(loopCtx)
	go c.readLoop(loopCtx)

	if c.l != nil {
		c.l.Info("websocket feed connected", applogger.String("url", c.websocketURL))
	}
	return nil
}

func (c *WebSocketFeed) dial(ctx context.Context) error {
	u := c.websocketURL
	if c.apiKey != "" {
		u = fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	return nil
}

// Poll returns everything the read loop buffered since the previous call.
func (c *WebSocketFeed) Poll(ctx context.Context) ([]*models.Tick, error) {
	if !c.IsConnected() {
		return nil, fmt.Errorf("websocket feed not connected")
	}
	return c.intake.Drain(0), nil
}

// Subscribe registers symbols with the upstream feed.
func (c *WebSocketFeed) Subscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("websocket feed not connected")
	}
	for _, s := range symbols {
		msg := map[string]string{"type": "subscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.symbols[s] = struct{}{}
	}
	return nil
}

// Unsubscribe removes symbols from the upstream feed.
func (c *WebSocketFeed) Unsubscribe(ctx context.Context, symbols []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || !c.connected {
		return fmt.Errorf("websocket feed not connected")
	}
	for _, s := range symbols {
		msg := map[string]string{"type": "unsubscribe", "symbol": s}
		if err := c.conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("unsubscribe %s: %w", s, err)
		}
		delete(c.symbols, s)
	}
	return nil
}

type wsTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type wsMessage struct {
	Type string    `json:"type"`
	Data []wsTrade `json:"data"`
}

func (c *WebSocketFeed) pingLoop(ctx context.Context) {
	defer c.wg.Done()
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.conn != nil {
				_ = c.conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.mu.Unlock()
		}
	}
}

func (c *WebSocketFeed) readLoop(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		c.mu.Lock()
		conn := c.conn
		c.mu.Unlock()
		if conn == nil {
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		_, b, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.connected = false
			c.mu.Unlock()
			if c.l != nil {
				c.l.Warn("websocket read failed, reconnecting", applogger.Error(err))
			}
			if !c.reconnect(ctx) {
				return
			}
			continue
		}

		var m wsMessage
		if err := json.Unmarshal(b, &m); err != nil {
			// ignore non-trade frames
			continue
		}
		if m.Type != "trade" {
			continue
		}
		for _, d := range m.Data {
			_ = c.intake.Push(&models.Tick{
				Symbol:    d.S,
				Timestamp: util.UnixSeconds(d.T),
				Price:     d.P,
				Volume:    d.V,
				Source:    "websocket",
			})
		}
	}
}

// reconnect redials and restores subscriptions. Returns false once ctx is
// canceled.
func (c *WebSocketFeed) reconnect(ctx context.Context) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.reconnectDelay):
		}

		if err := c.dial(ctx); err != nil {
			if c.l != nil {
				c.l.Warn("websocket redial failed", applogger.Error(err))
			}
			continue
		}

		c.mu.Lock()
		resub := make([]string, 0, len(c.symbols))
		for s := range c.symbols {
			resub = append(resub, s)
		}
		c.mu.Unlock()

		if len(resub) > 0 {
			if err := c.Subscribe(ctx, resub); err != nil {
				if c.l != nil {
					c.l.Warn("websocket resubscribe failed", applogger.Error(err))
				}
				continue
			}
		}
		if c.l != nil {
			c.l.Info("websocket feed reconnected", applogger.Int("symbols", len(resub)))
		}
		return true
	}
}

// Close stops the loops and closes the connection.
func (c *WebSocketFeed) Close() error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		c.mu.Lock()
		c.connected = false
		if c.conn != nil {
			err = c.conn.Close()
			c.conn = nil
		}
		c.mu.Unlock()
		c.wg.Wait()
	})
	return err
}

// IsConnected indicates status.
func (c *WebSocketFeed) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
