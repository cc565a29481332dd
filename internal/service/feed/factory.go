package feed

import (
	"fmt"
	"time"

	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/middleware"
	appkafka "PulseScan/pkg/kafka"
)

// Feed types selectable via configuration.
const (
	TypeWebSocket = "websocket"
	TypeKafka     = "kafka"
	TypeReplay    = "replay"
)

// Options selects and parameterizes a tick provider.
type Options struct {
	Type           string
	APIKey         string
	WebsocketURL   string
	ReconnectDelay time.Duration
	PingInterval   time.Duration
	Topic          string
	ReplayFile     string
	ReplayBatch    int
}

// New builds the provider named by opts.Type. An unknown type is a
// configuration error, not a fallback.
func New(opts Options, intake *middleware.TickIntake, consumer *appkafka.Consumer, metrics drepo.Metrics) (drepo.TickProvider, error) {
	switch opts.Type {
	case TypeWebSocket:
		if opts.WebsocketURL == "" {
			return nil, fmt.Errorf("websocket feed requires a url")
		}
		return NewWebSocketFeed(opts.APIKey, opts.WebsocketURL, opts.ReconnectDelay, opts.PingInterval, intake), nil
	case TypeKafka:
		if consumer == nil {
			return nil, fmt.Errorf("kafka feed requires a consumer")
		}
		if opts.Topic == "" {
			return nil, fmt.Errorf("kafka feed requires a topic")
		}
		return NewKafkaFeed(consumer, intake, opts.Topic, metrics), nil
	case TypeReplay:
		if opts.ReplayFile == "" {
			return nil, fmt.Errorf("replay feed requires a file")
		}
		return ReplayFromFile(opts.ReplayFile, opts.ReplayBatch)
	default:
		return nil, fmt.Errorf("unknown feed type %q", opts.Type)
	}
}
