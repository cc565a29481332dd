package api

import (
	"time"

	models "PulseScan/internal/domain/models"
	"PulseScan/internal/service/universe"
	"PulseScan/internal/usecase"
	xhttp "PulseScan/pkg/http"
	xlogger "PulseScan/pkg/logger"

	"github.com/labstack/echo/v4"
)

// ScansEchoHandler implements Echo-based HTTP handlers following Clean Architecture.
type ScansEchoHandler struct {
	logger   *xlogger.Logger
	sched    *usecase.ScanScheduler
	history  *usecase.HistoryUseCase
	universe *universe.Service
}

func NewScansEchoHandler(logger *xlogger.Logger, sched *usecase.ScanScheduler, history *usecase.HistoryUseCase, uni *universe.Service) *ScansEchoHandler {
	return &ScansEchoHandler{logger: logger, sched: sched, history: history, universe: uni}
}

func (h *ScansEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/scans/latest", h.Latest)
	g.GET("/scans/top", h.Top)
	g.GET("/scans/score", h.Score)
	g.GET("/scans/history", h.History)
	g.GET("/universe", h.Universe)
	g.POST("/universe/add", h.UniverseAdd)
	g.POST("/universe/remove", h.UniverseRemove)
	g.GET("/health", h.Health)
}

func (h *ScansEchoHandler) Latest(c echo.Context) error {
	res := h.sched.Latest()
	if res == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no completed scan cycle yet"))
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=1")
	return xhttp.SuccessResponse(c, res)
}

func (h *ScansEchoHandler) Top(c echo.Context) error {
	req := &models.TopScoresRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.sched.Latest()
	if res == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no completed scan cycle yet"))
	}
	payload := struct {
		CycleID   string
		Seq       uint64
		StartedAt time.Time
		Status    models.CycleStatus
		Entries   []models.CompositeScore
	}{res.CycleID, res.Seq, res.StartedAt, res.Status, res.Top(req.N)}
	return xhttp.SuccessResponse(c, payload)
}

func (h *ScansEchoHandler) Score(c echo.Context) error {
	req := &models.SymbolScoreRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	res := h.sched.Latest()
	if res == nil {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError("no completed scan cycle yet"))
	}
	entry, ok := res.Entry(req.Symbol)
	if !ok {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("symbol %s not in latest cycle", req.Symbol))
	}
	payload := struct {
		CycleID string
		Seq     uint64
		Score   models.CompositeScore
	}{res.CycleID, res.Seq, entry}
	return xhttp.SuccessResponse(c, payload)
}

func (h *ScansEchoHandler) History(c echo.Context) error {
	req := &models.ScanHistoryRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	params := usecase.GetHistoryParams{Symbol: req.Symbol, Limit: req.Limit}
	if req.From > 0 {
		params.From = time.Unix(req.From, 0)
	}
	if req.To > 0 {
		params.To = time.Unix(req.To, 0)
	}

	res, err := h.history.GetHistory(c.Request().Context(), params)
	if err != nil {
		h.logger.Error("history usecase error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.ListResponse(c, res.Scores, int64(res.Count))
}

func (h *ScansEchoHandler) Universe(c echo.Context) error {
	syms := h.universe.Symbols()
	payload := struct {
		Symbols []string
		Count   int
	}{syms, len(syms)}
	return xhttp.SuccessResponse(c, payload)
}

func (h *ScansEchoHandler) UniverseAdd(c echo.Context) error {
	req := &models.UniverseMutationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	added, err := h.universe.Add(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Error("universe add error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	payload := struct {
		Added []string
		Total int
	}{added, h.universe.Len()}
	return xhttp.SuccessResponse(c, payload)
}

func (h *ScansEchoHandler) UniverseRemove(c echo.Context) error {
	req := &models.UniverseMutationRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	removed, err := h.universe.Remove(c.Request().Context(), req.Symbols)
	if err != nil {
		h.logger.Error("universe remove error", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	payload := struct {
		Removed []string
		Total   int
	}{removed, h.universe.Len()}
	return xhttp.SuccessResponse(c, payload)
}

// Health reports scheduler liveness: the current phase and the sequence of
// the last completed cycle.
func (h *ScansEchoHandler) Health(c echo.Context) error {
	payload := struct {
		Status  string
		Phase   string
		LastSeq uint64
	}{Status: "ok", Phase: h.sched.Phase().String()}
	if res := h.sched.Latest(); res != nil {
		payload.LastSeq = res.Seq
	}
	return xhttp.SuccessResponse(c, payload)
}
