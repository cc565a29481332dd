package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	ticksIngested *prometheus.CounterVec
	ticksRejected *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	cycleSkips    prometheus.Counter
	cycleDuration *prometheus.HistogramVec
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	composite     *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		ticksIngested: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_ticks_ingested_total",
				Help: "Ticks accepted into symbol state",
			},
			[]string{"source", "symbol"},
		),
		ticksRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_ticks_rejected_total",
				Help: "Ticks rejected at ingestion",
			},
			[]string{"reason"},
		),
		cycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_cycles_total",
				Help: "Completed scan cycles by status",
			},
			[]string{"status"},
		),
		cycleSkips: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "pulsescan_cycles_skipped_total",
				Help: "Cycles skipped because the previous one was still running",
			},
		),
		cycleDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsescan_cycle_duration_seconds",
				Help:    "Wall-clock duration of scan cycles",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"status"},
		),
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_score_cache_hits_total",
				Help: "Pillar scores served from the score cache",
			},
			[]string{"pillar"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_score_cache_misses_total",
				Help: "Pillar scores recomputed on cache miss",
			},
			[]string{"pillar"},
		),
		composite: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "pulsescan_composite_score",
				Help: "Last composite score per symbol",
			},
			[]string{"symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pulsescan_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pulsescan_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordTickIngested records an accepted tick.
func (r *Recorder) RecordTickIngested(source, symbol string) {
	r.ticksIngested.WithLabelValues(source, symbol).Inc()
}

// RecordTickRejected records a rejected tick by reason.
func (r *Recorder) RecordTickRejected(reason string) {
	r.ticksRejected.WithLabelValues(reason).Inc()
}

// RecordCycle records a completed cycle and its duration.
func (r *Recorder) RecordCycle(status string, seconds float64) {
	r.cycles.WithLabelValues(status).Inc()
	r.cycleDuration.WithLabelValues(status).Observe(seconds)
}

// RecordCycleSkipped records an overlap skip.
func (r *Recorder) RecordCycleSkipped() {
	r.cycleSkips.Inc()
}

// RecordCacheHit records a score cache hit for a pillar.
func (r *Recorder) RecordCacheHit(pillar string) {
	r.cacheHits.WithLabelValues(pillar).Inc()
}

// RecordCacheMiss records a score cache miss for a pillar.
func (r *Recorder) RecordCacheMiss(pillar string) {
	r.cacheMisses.WithLabelValues(pillar).Inc()
}

// RecordComposite records the latest composite score for a symbol.
func (r *Recorder) RecordComposite(symbol string, score float64) {
	r.composite.WithLabelValues(symbol).Set(score)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
