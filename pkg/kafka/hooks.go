package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// ConsumerHook defines lifecycle hooks around message handling.
// Hooks can mutate context, message, and payload.
// Returning a non-nil error from BeforeHandle will skip handler execution
// and trigger error processing (OnError, DLQ, and offset commit).
type ConsumerHook interface {
	BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error)
	AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
	OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error)
}

// NoopHook is a default hook that does nothing and is fully panic-safe.
type NoopHook struct{}

func (NoopHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return ctx, km, data, nil
}

func (NoopHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

func (NoopHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {}

// HookError represents an error produced by a hook.
// Code can be used to classify errors (e.g., "ERR_VALIDATION", "ERR_TRANSFORM").
type HookError struct {
	Code string
	Err  error
}

func (e *HookError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *HookError) Unwrap() error { return e.Err }

type ctxKey string

// ctxStartTime holds the time.Time for when handling started.
const ctxStartTime ctxKey = "kafka_hook_start_time"

// MetricsHook times each handling attempt and reports outcomes through
// plain callbacks, so this package stays free of any metrics dependency.
// Nil callbacks are no-ops. AfterHandle runs once per attempt; OnError
// runs per failed attempt plus once on final failure, so OnFail counts
// retries as separate failures.
type MetricsHook struct {
	Observe func(topic string, seconds float64)
	OnFail  func(topic string)
}

func (h MetricsHook) BeforeHandle(ctx context.Context, topic string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
	return context.WithValue(ctx, ctxStartTime, time.Now()), km, data, nil
}

func (h MetricsHook) AfterHandle(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.Observe == nil {
		return
	}
	if start, ok := ctx.Value(ctxStartTime).(time.Time); ok {
		h.Observe(topic, time.Since(start).Seconds())
	}
}

func (h MetricsHook) OnError(ctx context.Context, topic string, km kafka.Message, data []byte, err error) {
	if h.OnFail != nil {
		h.OnFail(topic)
	}
}
