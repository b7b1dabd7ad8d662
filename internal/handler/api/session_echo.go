package api

import (
	"context"
	"errors"
	"time"

	"Infinity/internal/domain/models"
	"Infinity/internal/service/metrics"
	"Infinity/internal/usecase"
	xhttp "Infinity/pkg/http"
	xlogger "Infinity/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// SessionEchoHandler exposes the session intents over HTTP.
type SessionEchoHandler struct {
	logger   *xlogger.Logger
	session  *usecase.Session
	intents  *metrics.Intents
	upgrader websocket.Upgrader
}

func NewSessionEchoHandler(logger *xlogger.Logger, session *usecase.Session, intents *metrics.Intents) *SessionEchoHandler {
	return &SessionEchoHandler{
		logger:  logger,
		session: session,
		intents: intents,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
}

func (h *SessionEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/session", h.Session)
	g.GET("/screen", h.Screen)
	g.GET("/assets", h.Assets)
	g.GET("/history", h.History)

	flow := g.Group("/flow")
	flow.POST("/start", h.Start)
	flow.POST("/asset", h.SelectAsset)
	flow.POST("/timeframe", h.SelectTimeframe)
	flow.POST("/complete", h.Complete)
	flow.POST("/restart", h.Restart)
	flow.POST("/back", h.Back)

	g.POST("/signals/:id/feedback", h.Feedback)
	g.POST("/tier", h.ChangeTier)
	g.PUT("/lang", h.SetLanguage)

	e.GET("/ws/quotes", h.Quotes)
}

func (h *SessionEchoHandler) Session(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Snapshot())
}

func (h *SessionEchoHandler) Screen(c echo.Context) error {
	return xhttp.SuccessResponse(c, renderScreen(h.session.Snapshot(), h.session.Assets()))
}

func (h *SessionEchoHandler) Assets(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.session.Assets())
}

func (h *SessionEchoHandler) History(c echo.Context) error {
	q := &HistoryQuery{}
	if verr := xhttp.ReadAndValidateRequest(c, q); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	var since time.Time
	if q.Since != "" {
		t, ok := xhttp.ParseSince(q.Since, time.Now())
		if !ok {
			return xhttp.BadRequestResponse(c, []xhttp.ValidationError{{
				Code:    "ERR_SINCE",
				Field:   "since",
				Message: "since must be RFC3339, unix seconds or a duration such as 12h",
			}})
		}
		since = t
	}

	history := h.session.Snapshot().History
	rows := make([]models.Signal, 0, len(history))
	for _, s := range history {
		if !since.IsZero() && s.Timestamp.Before(since) {
			continue
		}
		if q.Status != "" && string(s.Status) != q.Status {
			continue
		}
		if q.Asset != "" && s.Asset.ID != q.Asset {
			continue
		}
		rows = append(rows, s)
		if len(rows) == q.Limit {
			break
		}
	}
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *SessionEchoHandler) Start(c echo.Context) error {
	return h.serve(c, "start", func(context.Context) (interface{}, error) {
		return nil, h.session.StartCycle()
	})
}

func (h *SessionEchoHandler) SelectAsset(c echo.Context) error {
	req := &SelectAssetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serve(c, "select_asset", func(context.Context) (interface{}, error) {
		return nil, h.session.SelectAsset(req.AssetID)
	})
}

func (h *SessionEchoHandler) SelectTimeframe(c echo.Context) error {
	req := &SelectTimeframeRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serve(c, "select_timeframe", func(context.Context) (interface{}, error) {
		return nil, h.session.SelectTimeframe(req.Timeframe)
	})
}

func (h *SessionEchoHandler) Complete(c echo.Context) error {
	return h.serve(c, "complete_analysis", func(ctx context.Context) (interface{}, error) {
		return h.session.CompleteAnalysis(ctx)
	})
}

func (h *SessionEchoHandler) Restart(c echo.Context) error {
	return h.serve(c, "restart_cycle", func(context.Context) (interface{}, error) {
		return nil, h.session.RestartCycle()
	})
}

func (h *SessionEchoHandler) Back(c echo.Context) error {
	return h.serve(c, "back_to_main", func(context.Context) (interface{}, error) {
		h.session.BackToMain()
		return nil, nil
	})
}

func (h *SessionEchoHandler) Feedback(c echo.Context) error {
	req := &FeedbackRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serve(c, "record_feedback", func(ctx context.Context) (interface{}, error) {
		return h.session.RecordFeedback(ctx, req.ID, models.SignalStatus(req.Outcome))
	})
}

func (h *SessionEchoHandler) ChangeTier(c echo.Context) error {
	req := &TierRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serve(c, "change_tier", func(ctx context.Context) (interface{}, error) {
		status, err := h.session.ChangeTier(ctx, req.Secret)
		if err != nil {
			return nil, err
		}
		return map[string]models.UserStatus{"status": status}, nil
	})
}

func (h *SessionEchoHandler) SetLanguage(c echo.Context) error {
	req := &LanguageRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	return h.serve(c, "set_language", func(ctx context.Context) (interface{}, error) {
		return nil, h.session.SetLanguage(ctx, req.Lang)
	})
}

// serve runs one intent and answers with its result, or with the fresh snapshot when the
// intent has none.
func (h *SessionEchoHandler) serve(c echo.Context, intent string, fn func(ctx context.Context) (interface{}, error)) error {
	start := time.Now()
	res, err := fn(c.Request().Context())
	h.intents.Observe(intent, start, err)
	if err != nil {
		appErr := toAppError(err)
		if appErr.Status >= 500 {
			h.logger.Error("intent failed", xlogger.String("intent", intent), xlogger.Error(err))
		} else {
			h.logger.Debug("intent rejected", xlogger.String("intent", intent), xlogger.Error(err))
		}
		return xhttp.AppErrorResponse(c, appErr)
	}
	if res == nil {
		res = h.session.Snapshot()
	}
	return xhttp.SuccessResponse(c, res)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrQuotaExceeded):
		appErr = xhttp.TooManyRequestsError("ERR_QUOTA_EXCEEDED", "signal quota for the current tier is used up")
	case errors.Is(err, models.ErrInvalidTransition):
		appErr = xhttp.ConflictError("ERR_INVALID_TRANSITION", "action is not available on the current screen")
	case errors.Is(err, models.ErrAlreadyJudged):
		appErr = xhttp.ConflictError("ERR_ALREADY_JUDGED", "signal already has an outcome")
	case errors.Is(err, models.ErrNotFound):
		appErr = xhttp.NotFoundError("ERR_NOT_FOUND", "resource not found")
	case errors.Is(err, models.ErrWrongPassword):
		appErr = xhttp.ForbiddenError("ERR_WRONG_PASSWORD", "wrong password")
	case errors.Is(err, models.ErrInvalidTimeframe):
		appErr = xhttp.BadRequestError("ERR_INVALID_TIMEFRAME", "unsupported timeframe")
	case errors.Is(err, models.ErrInvalidOutcome):
		appErr = xhttp.BadRequestError("ERR_INVALID_OUTCOME", "outcome must be CONFIRMED or FAILED")
	case errors.Is(err, models.ErrUnsupportedLanguage):
		appErr = xhttp.BadRequestError("ERR_UNSUPPORTED_LANGUAGE", "language must be RU or EN")
	default:
		appErr = xhttp.InternalError("internal error")
	}
	return appErr.WithError(err)
}
