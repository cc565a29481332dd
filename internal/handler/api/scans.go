package api

import (
	"encoding/json"
	"net/http"
	"time"

	"PulseScan/internal/domain/models"
	domrepo "PulseScan/internal/domain/repository"
	icache "PulseScan/internal/service/cache"
	"PulseScan/internal/service/metrics"
	"PulseScan/internal/service/ratelimit"
	"PulseScan/internal/usecase"
	pkgcache "PulseScan/pkg/cache"
	applogger "PulseScan/pkg/logger"
	"PulseScan/pkg/util"
)

// ScansHandler serves scan results over plain net/http. The latest result
// and per-symbol scores come straight from the scheduler's in-memory copy;
// only history touches ClickHouse, so only history goes through the
// response cache.
type ScansHandler struct {
	sched    *usecase.ScanScheduler
	history  *usecase.HistoryUseCase
	baseline domrepo.BaselineSource
	cache    icache.BytesCache
	rl       *ratelimit.Limiter
	l        *applogger.Logger
}

func NewScansHandler(sched *usecase.ScanScheduler, history *usecase.HistoryUseCase) *ScansHandler {
	metrics.Register()
	return &ScansHandler{sched: sched, history: history, rl: ratelimit.New()}
}

func (h *ScansHandler) SetCache(c icache.BytesCache) { h.cache = c }

// SetBaseline wires the baseline introspection endpoint.
func (h *ScansHandler) SetBaseline(b domrepo.BaselineSource) { h.baseline = b }

// SetLogger injects a structured logger.
func (h *ScansHandler) SetLogger(l *applogger.Logger) { h.l = l }

func (h *ScansHandler) Latest() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "latest"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		if !h.rl.Allow(r.RemoteAddr+":latest", 10, 5) {
			if h.l != nil {
				h.l.Warn("scans.latest rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		res := h.sched.Latest()
		if res == nil {
			http.Error(w, "no completed scan cycle yet", http.StatusNotFound)
			return
		}
		h.writeJSON(w, endpoint, res)
	}
}

func (h *ScansHandler) Top() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "top"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		n := util.ParseIntDefault(r.URL.Query().Get("n"), 10)
		if !h.rl.Allow(r.RemoteAddr+":top", 10, 5) {
			if h.l != nil {
				h.l.Warn("scans.top rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		res := h.sched.Latest()
		if res == nil {
			http.Error(w, "no completed scan cycle yet", http.StatusNotFound)
			return
		}
		payload := struct {
			CycleID   string
			Seq       uint64
			StartedAt time.Time
			Status    models.CycleStatus
			Entries   []models.CompositeScore
		}{res.CycleID, res.Seq, res.StartedAt, res.Status, res.Top(n)}
		h.writeJSON(w, endpoint, payload)
	}
}

func (h *ScansHandler) Score() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "score"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("scans.score missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":score", 10, 5) {
			if h.l != nil {
				h.l.Warn("scans.score rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		res := h.sched.Latest()
		if res == nil {
			http.Error(w, "no completed scan cycle yet", http.StatusNotFound)
			return
		}
		entry, ok := res.Entry(symbol)
		if !ok {
			http.Error(w, "symbol not in latest cycle", http.StatusNotFound)
			return
		}
		payload := struct {
			CycleID string
			Seq     uint64
			Score   models.CompositeScore
		}{res.CycleID, res.Seq, entry}
		h.writeJSON(w, endpoint, payload)
	}
}

func (h *ScansHandler) History() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "history"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("scans.history missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		from := util.ParseIntDefault(r.URL.Query().Get("from"), 0)
		to := util.ParseIntDefault(r.URL.Query().Get("to"), 0)
		limit := util.ParseIntDefault(r.URL.Query().Get("limit"), 50)
		if !h.rl.Allow(r.RemoteAddr+":history", 3, 1) {
			if h.l != nil {
				h.l.Warn("scans.history rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		cacheKey := pkgcache.GenerateKeyWithParams("history", symbol, from, to, limit)
		if h.cache != nil {
			if b, ok, err := h.cache.GetBytes(r.Context(), cacheKey); err != nil {
				if h.l != nil {
					h.l.Warn("scans.history cache_get_error", applogger.Error(err))
				}
			} else if ok {
				metrics.APICacheHits.WithLabelValues(endpoint).Inc()
				w.Header().Set("Content-Type", "application/json")
				if h.l != nil {
					h.l.Debug("scans.history cache_hit", applogger.String("key", cacheKey))
				}
				if _, err := w.Write(b); err != nil && h.l != nil {
					h.l.Warn("scans.history write_error", applogger.Error(err))
				}
				return
			}
		}
		params := usecase.GetHistoryParams{Symbol: symbol, Limit: limit}
		if from > 0 {
			params.From = time.Unix(int64(from), 0)
		}
		if to > 0 {
			params.To = time.Unix(int64(to), 0)
		}
		res, err := h.history.GetHistory(r.Context(), params)
		if err != nil {
			metrics.APIErrors.WithLabelValues(endpoint).Inc()
			if h.l != nil {
				h.l.Error("scans.history error", applogger.Error(err))
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		b, err := json.Marshal(res)
		if err != nil {
			if h.l != nil {
				h.l.Error("scans.history marshal_error", applogger.Error(err))
			}
			http.Error(w, "encode error", http.StatusInternalServerError)
			return
		}
		if h.cache != nil {
			if err := h.cache.SetBytes(r.Context(), cacheKey, b, 30*time.Second); err != nil && h.l != nil {
				h.l.Warn("scans.history cache_set_error", applogger.Error(err))
			}
		}
		if _, err := w.Write(b); err != nil && h.l != nil {
			h.l.Warn("scans.history write_error", applogger.Error(err))
		}
	}
}

func (h *ScansHandler) Baseline() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := "baseline"
		defer func() { metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

		symbol := r.URL.Query().Get("symbol")
		if symbol == "" {
			if h.l != nil {
				h.l.Warn("scans.baseline missing symbol")
			}
			http.Error(w, "symbol required", http.StatusBadRequest)
			return
		}
		if !h.rl.Allow(r.RemoteAddr+":baseline", 5, 2) {
			if h.l != nil {
				h.l.Warn("scans.baseline rate_limited", applogger.String("remote", r.RemoteAddr))
			}
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		if h.baseline == nil {
			http.Error(w, "baseline source not configured", http.StatusServiceUnavailable)
			return
		}
		avg, ok := h.baseline.Lookup(r.Context(), symbol)
		if !ok {
			http.Error(w, "no baseline for symbol", http.StatusNotFound)
			return
		}
		payload := struct {
			Symbol         string
			IntervalVolume float64
		}{symbol, avg}
		h.writeJSON(w, endpoint, payload)
	}
}

func (h *ScansHandler) writeJSON(w http.ResponseWriter, endpoint string, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	b, err := json.Marshal(v)
	if err != nil {
		if h.l != nil {
			h.l.Error("scans."+endpoint+" marshal_error", applogger.Error(err))
		}
		http.Error(w, "encode error", http.StatusInternalServerError)
		return
	}
	if _, err := w.Write(b); err != nil && h.l != nil {
		h.l.Warn("scans."+endpoint+" write_error", applogger.Error(err))
	}
}
