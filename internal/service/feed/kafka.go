package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/middleware"
	appkafka "PulseScan/pkg/kafka"
	applogger "PulseScan/pkg/logger"
	"PulseScan/pkg/util"
)

// KafkaFeed implements a TickProvider consuming a tick topic, for
// deployments where a gateway already normalizes vendor feeds onto Kafka.
// Consumed ticks land in the intake buffer; Poll drains it.
type KafkaFeed struct {
	consumer *appkafka.Consumer
	intake   *middleware.TickIntake
	topic    string
	metrics  drepo.Metrics
	l        *applogger.Logger

	mu        sync.Mutex
	connected bool
	allowed   map[string]struct{} // empty set accepts every symbol
}

var _ drepo.TickProvider = (*KafkaFeed)(nil)
var _ appkafka.MessageHandler = (*KafkaFeed)(nil)

// NewKafkaFeed creates a new Kafka tick provider.
func NewKafkaFeed(consumer *appkafka.Consumer, intake *middleware.TickIntake, topic string, metrics drepo.Metrics) *KafkaFeed {
	return &KafkaFeed{
		consumer: consumer,
		intake:   intake,
		topic:    topic,
		metrics:  metrics,
		allowed:  make(map[string]struct{}),
	}
}

// SetLogger injects a structured logger.
func (f *KafkaFeed) SetLogger(l *applogger.Logger) { f.l = l }

// Connect registers the feed as a topic handler and starts the consumer.
func (f *KafkaFeed) Connect(ctx context.Context) error {
	f.consumer.RegisterHandler(f)
	if err := f.consumer.Start(); err != nil {
		return fmt.Errorf("kafka feed start: %w", err)
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	if f.l != nil {
		f.l.Info("kafka feed consuming", applogger.String("topic", f.topic))
	}
	return nil
}

// Topic implements the consumer's MessageHandler.
func (f *KafkaFeed) Topic() string { return f.topic }

// Handle parses one tick message and buffers it.
// incoming message schema: {symbol, t, c, v}
func (f *KafkaFeed) Handle(ctx context.Context, b []byte) error {
	var m struct {
		Symbol string  `json:"symbol"`
		T      int64   `json:"t"`
		C      float64 `json:"c"`
		V      float64 `json:"v"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		f.metrics.RecordError("feed_unmarshal")
		return err
	}
	if !f.wants(m.Symbol) {
		return nil
	}
	return f.intake.Push(&models.Tick{
		Symbol:    m.Symbol,
		Timestamp: util.UnixSeconds(m.T),
		Price:     m.C,
		Volume:    m.V,
		Source:    "kafka",
	})
}

// Poll returns everything consumed since the previous call.
func (f *KafkaFeed) Poll(ctx context.Context) ([]*models.Tick, error) {
	if !f.IsConnected() {
		return nil, fmt.Errorf("kafka feed not connected")
	}
	return f.intake.Drain(0), nil
}

// Subscribe narrows the feed to the given symbols. The topic itself carries
// the whole market; filtering happens locally.
func (f *KafkaFeed) Subscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		f.allowed[s] = struct{}{}
	}
	return nil
}

// Unsubscribe removes symbols from the local filter.
func (f *KafkaFeed) Unsubscribe(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range symbols {
		delete(f.allowed, s)
	}
	return nil
}

func (f *KafkaFeed) wants(symbol string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.allowed) == 0 {
		return true
	}
	_, ok := f.allowed[symbol]
	return ok
}

// Close stops the consumer.
func (f *KafkaFeed) Close() error {
	f.mu.Lock()
	f.connected = false
	f.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return f.consumer.Stop(ctx)
}

// IsConnected indicates status.
func (f *KafkaFeed) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}
