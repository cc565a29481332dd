package catalyst

import (
	"context"
	"fmt"

	"PulseScan/internal/domain/models"
	drepo "PulseScan/internal/domain/repository"
	"PulseScan/internal/service/state"
	applogger "PulseScan/pkg/logger"
	pkgqueue "PulseScan/pkg/queue"
	"PulseScan/pkg/util"
)

// MessageType routes news events to this job on the queue.
const MessageType = "catalyst.news"

// NewsJob consumes catalyst headlines from the news side-channel and
// attaches the scorable ones to symbol state. Tick flow and news flow meet
// only inside the store.
type NewsJob struct {
	store   *state.Store
	metrics drepo.Metrics
	l       *applogger.Logger
}

var _ pkgqueue.Job = (*NewsJob)(nil)

func NewNewsJob(store *state.Store, metrics drepo.Metrics) *NewsJob {
	return &NewsJob{store: store, metrics: metrics}
}

// SetLogger injects a structured logger.
func (j *NewsJob) SetLogger(l *applogger.Logger) { j.l = l }

func (j *NewsJob) Name() string { return "catalyst-news" }

func (j *NewsJob) Type() string { return MessageType }

type newsPayload struct {
	Symbol   string `json:"symbol"`
	Category string `json:"category"`
	Headline string `json:"headline"`
	T        int64  `json:"t"`
}

// Handle applies one news event. Unscorable categories are accepted and
// dropped by the store; malformed payloads are errors so the queue can
// retry or dead-letter them.
func (j *NewsJob) Handle(ctx context.Context, payload interface{}) error {
	p, err := pkgqueue.ParsePayload[newsPayload](payload)
	if err != nil {
		j.metrics.RecordError("news_payload")
		return err
	}
	if p.Symbol == "" || p.T <= 0 {
		j.metrics.RecordError("news_invalid")
		return fmt.Errorf("invalid news event: symbol=%q t=%d", p.Symbol, p.T)
	}
	p.T = util.UnixSeconds(p.T)

	ev := models.CatalystEvent{
		Category:  models.CatalystCategory(p.Category),
		Headline:  p.Headline,
		Timestamp: p.T,
	}
	if err := j.store.AddCatalyst(p.Symbol, ev); err != nil {
		j.metrics.RecordError("news_apply")
		return err
	}
	if j.l != nil {
		j.l.Debug("news event applied",
			applogger.String("symbol", p.Symbol),
			applogger.String("category", p.Category),
		)
	}
	return nil
}
