package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/m-mizutani/ctxlog"

	staticassets "piltlab/internal/adapter/assets/static"
	"piltlab/internal/adapter/render/view"
	"piltlab/internal/app/assets"
	"piltlab/internal/app/history"
	"piltlab/internal/app/ports"
	"piltlab/internal/app/session"
	"piltlab/internal/app/simulate"
	"piltlab/internal/app/summary"
	"piltlab/internal/domain/trial"
)

type Handler struct {
	SessionUC *session.UseCase
	SummaryUC summary.UseCase
	HistoryUC history.UseCase
	AssetsUC  assets.UseCase
	Simulate  simulate.BlockRunner
	KPI       kpiSnapshotProvider
	Logger    *slog.Logger
}

func (h Handler) RegisterRoutes(s *server.Hertz) {
	s.Use(corsMiddleware(), h.loggingMiddleware())

	trials := s.Group("/api/trials")
	trials.POST("", h.startTrial)
	trials.GET("/:id", h.viewTrial)
	trials.GET("/:id/fragment", h.trialFragment)
	trials.POST("/:id/key", h.pressKey)
	trials.GET("/:id/result", h.trialResult)
	trials.DELETE("/:id", h.abortTrial)

	s.POST("/api/simulate", h.simulate)
	s.GET("/api/participants/:id/summary", h.summary)
	s.GET("/api/participants/:id/trials", h.history)
	s.GET("/assets/*filepath", h.asset)
	s.GET("/ops/kpi", h.kpi)
}

type startTrialRequest struct {
	ParticipantID string             `json:"participant_id"`
	Block         string             `json:"block"`
	TrialIndex    int                `json:"trial_index"`
	Mode          ports.TrialMode    `json:"mode"`
	Spec          trial.Spec         `json:"spec"`
	Overrides     simulate.Overrides `json:"overrides"`
}

type keyRequest struct {
	Key string `json:"key"`
}

type simulateRequest struct {
	ParticipantID string             `json:"participant_id"`
	Block         string             `json:"block"`
	TrialIndex    int                `json:"trial_index"`
	Mode          ports.TrialMode    `json:"mode"`
	Spec          trial.Spec         `json:"spec"`
	Overrides     simulate.Overrides `json:"overrides"`
	Seed          *uint64            `json:"seed,omitempty"`
}

func (h Handler) startTrial(c context.Context, ctx *app.RequestContext) {
	var body startTrialRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.SessionUC.Start(c, session.StartRequest{
		ParticipantID: body.ParticipantID,
		Block:         body.Block,
		TrialIndex:    body.TrialIndex,
		Mode:          body.Mode,
		Spec:          body.Spec,
		Overrides:     body.Overrides,
	})
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusCreated, resp)
}

func (h Handler) viewTrial(c context.Context, ctx *app.RequestContext) {
	resp, err := h.SessionUC.View(c, ctx.Param("id"))
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) trialFragment(c context.Context, ctx *app.RequestContext) {
	resp, err := h.SessionUC.View(c, ctx.Param("id"))
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	fragment, err := view.HTML(resp.Frame)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fragment))
}

func (h Handler) pressKey(c context.Context, ctx *app.RequestContext) {
	var body keyRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	resp, err := h.SessionUC.Press(c, session.PressRequest{TrialID: ctx.Param("id"), Key: body.Key})
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusAccepted, resp)
}

func (h Handler) trialResult(c context.Context, ctx *app.RequestContext) {
	rec, err := h.SessionUC.Result(c, ctx.Param("id"))
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, rec)
}

func (h Handler) abortTrial(c context.Context, ctx *app.RequestContext) {
	if err := h.SessionUC.Abort(c, ctx.Param("id")); err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.SetStatusCode(consts.StatusNoContent)
}

func (h Handler) simulate(c context.Context, ctx *app.RequestContext) {
	var body simulateRequest
	if err := decodeJSON(ctx, &body); err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_json", "invalid json")
		return
	}
	seed := uint64(time.Now().UnixNano())
	if body.Seed != nil {
		seed = *body.Seed
	}
	runner := h.Simulate
	runner.Sim = simulate.New(seed)

	records, err := runner.Run(c, simulate.BlockRequest{
		ParticipantID: body.ParticipantID,
		Block:         body.Block,
		FirstIndex:    body.TrialIndex,
		Mode:          body.Mode,
		Specs:         []trial.Spec{body.Spec},
		Overrides:     []simulate.Overrides{body.Overrides},
	})
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, records[0])
}

func (h Handler) summary(c context.Context, ctx *app.RequestContext) {
	limit, ok := queryInt(ctx, "limit")
	if !ok {
		return
	}
	resp, err := h.SummaryUC.Execute(c, summary.Request{
		ParticipantID: ctx.Param("id"),
		Block:         ctx.Query("block"),
		Limit:         int(limit),
	})
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) history(c context.Context, ctx *app.RequestContext) {
	limit, ok := queryInt(ctx, "limit")
	if !ok {
		return
	}
	completedFrom, ok := queryInt(ctx, "completed_from")
	if !ok {
		return
	}
	completedTo, ok := queryInt(ctx, "completed_to")
	if !ok {
		return
	}
	resp, err := h.HistoryUC.Execute(c, history.Request{
		ParticipantID: ctx.Param("id"),
		Block:         ctx.Query("block"),
		Limit:         int(limit),
		CompletedFrom: completedFrom,
		CompletedTo:   completedTo,
	})
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.JSON(consts.StatusOK, resp)
}

func (h Handler) asset(c context.Context, ctx *app.RequestContext) {
	if h.AssetsUC.Store == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "asset store not configured")
		return
	}
	path := strings.TrimPrefix(ctx.Param("filepath"), "/")
	if path == "" {
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_filepath", "invalid filepath")
		return
	}
	b, contentType, err := h.AssetsUC.File(c, path)
	if err != nil {
		writeError(c, ctx, err)
		return
	}
	ctx.Data(http.StatusOK, contentType, b)
}

type kpiSnapshotProvider interface {
	SnapshotAny() any
}

func (h Handler) kpi(_ context.Context, ctx *app.RequestContext) {
	if h.KPI == nil {
		writeErrorBody(ctx, consts.StatusNotFound, "not_configured", "kpi provider not configured")
		return
	}
	ctx.JSON(consts.StatusOK, h.KPI.SnapshotAny())
}

func (h Handler) loggingMiddleware() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		logger := h.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger = logger.With("method", string(ctx.Method()), "path", string(ctx.Path()))
		started := time.Now()
		ctx.Next(ctxlog.With(c, logger))
		logger.Info("request", "status", ctx.Response.StatusCode(), "elapsed", time.Since(started))
	}
}

// queryInt parses an optional integer query parameter, writing a 400 when it is
// malformed. A missing parameter is 0.
func queryInt(ctx *app.RequestContext, name string) (int64, bool) {
	raw := strings.TrimSpace(ctx.Query(name))
	if raw == "" {
		return 0, true
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", "invalid "+name)
		return 0, false
	}
	return n, true
}

func decodeJSON(ctx *app.RequestContext, out any) error {
	body := ctx.Request.Body()
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

func writeError(c context.Context, ctx *app.RequestContext, err error) {
	switch {
	case errors.Is(err, trial.ErrInvalidSpec):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_spec", err.Error())
	case errors.Is(err, simulate.ErrInconsistent):
		writeErrorBody(ctx, consts.StatusUnprocessableEntity, "inconsistent_simulation", err.Error())
	case errors.Is(err, session.ErrInvalidRequest),
		errors.Is(err, simulate.ErrInvalidRequest),
		errors.Is(err, summary.ErrInvalidRequest),
		errors.Is(err, history.ErrInvalidRequest):
		writeErrorBody(ctx, consts.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, staticassets.ErrInvalidAssetPath):
		writeErrorBody(ctx, consts.StatusBadRequest, "invalid_filepath", err.Error())
	case errors.Is(err, session.ErrTrialInProgress):
		writeErrorBody(ctx, consts.StatusConflict, "trial_in_progress", err.Error())
	case errors.Is(err, ports.ErrNotFinished):
		writeErrorBody(ctx, consts.StatusConflict, "trial_not_finished", err.Error())
	case errors.Is(err, ports.ErrNotFound):
		writeErrorBody(ctx, consts.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, ports.ErrConflict):
		writeErrorBody(ctx, consts.StatusConflict, "conflict", err.Error())
	default:
		ctxlog.From(c).Error("request failed", "error", err)
		writeErrorBody(ctx, consts.StatusInternalServerError, "internal_error", "internal error")
	}
}

func writeErrorBody(ctx *app.RequestContext, status int, code, message string) {
	ctx.JSON(status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
