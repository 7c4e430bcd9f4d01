package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"HeatDash/internal/domain/models"
	svccache "HeatDash/internal/service/cache"
	apimetrics "HeatDash/internal/service/metrics"
	"HeatDash/internal/service/ratelimit"
	"HeatDash/internal/usecase"
	"HeatDash/pkg/breaker"
	xhttp "HeatDash/pkg/http"
	xlogger "HeatDash/pkg/logger"
	"HeatDash/pkg/queue"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// DashboardHandler serves the dashboard API over echo.
type DashboardHandler struct {
	logger   *xlogger.Logger
	dash     *usecase.DashboardUseCase
	limiter  *ratelimit.Limiter
	cache    svccache.BytesCache
	cacheTTL time.Duration
	queue    queue.QueueService
	refresh  *usecase.RefreshJob
	defaults models.RequestDefaults
	checks   map[string]HealthCheck
}

type Option func(*DashboardHandler)

// WithLimiter throttles /api requests per client IP.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(h *DashboardHandler) { h.limiter = l }
}

func WithResponseCache(c svccache.BytesCache, ttl time.Duration) Option {
	return func(h *DashboardHandler) {
		h.cache = c
		h.cacheTTL = ttl
	}
}

// WithRefresh enables POST /api/refresh. With a nil queue the job runs inline.
func WithRefresh(q queue.QueueService, job *usecase.RefreshJob) Option {
	return func(h *DashboardHandler) {
		h.queue = q
		h.refresh = job
	}
}

// WithDefaults sets the values used for omitted days, lookback, window and top parameters.
func WithDefaults(d models.RequestDefaults) Option {
	return func(h *DashboardHandler) { h.defaults = d.WithDefaults() }
}

func WithHealthCheck(name string, check HealthCheck) Option {
	return func(h *DashboardHandler) { h.checks[name] = check }
}

func NewDashboardHandler(logger *xlogger.Logger, dash *usecase.DashboardUseCase, opts ...Option) *DashboardHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	apimetrics.Register()
	h := &DashboardHandler{
		logger:   logger,
		dash:     dash,
		defaults: models.DefaultRequestDefaults(),
		checks:   map[string]HealthCheck{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *DashboardHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(h.throttle)
	}
	g.GET("/universes", h.Universes)
	g.GET("/heatmap", h.Heatmap)
	g.GET("/signals", h.Signals)
	g.GET("/breadth", h.Breadth)
	if h.refresh != nil {
		g.POST("/refresh", h.Refresh)
	}
}

func (h *DashboardHandler) throttle(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !h.limiter.Allow(c.RealIP()) {
			apimetrics.APIThrottled.Inc()
			c.Response().Header().Set("Retry-After", "1")
			return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("too many requests"))
		}
		return next(c)
	}
}

func (h *DashboardHandler) Universes(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{"universes": h.dash.Universes()})
}

func (h *DashboardHandler) Heatmap(c echo.Context) error {
	req := &models.HeatmapRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.ApplyDefaults(h.defaults)
	return h.serveCached(c, "heatmap", func(ctx context.Context) (interface{}, error) {
		return h.dash.Heatmap(ctx, usecase.HeatmapParams{
			Universe: req.Universe,
			Days:     req.Days,
			Lookback: req.Lookback,
			Basis:    models.Basis(req.Basis),
		})
	})
}

func (h *DashboardHandler) Signals(c echo.Context) error {
	req := &models.SignalsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.ApplyDefaults(h.defaults)
	return h.serveCached(c, "signals", func(ctx context.Context) (interface{}, error) {
		return h.dash.Signals(ctx, usecase.SignalsParams{Universe: req.Universe, Days: req.Days, Lookback: req.Lookback})
	})
}

func (h *DashboardHandler) Breadth(c echo.Context) error {
	req := &models.BreadthRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.ApplyDefaults(h.defaults)
	return h.serveCached(c, "breadth", func(ctx context.Context) (interface{}, error) {
		return h.dash.Breadth(ctx, usecase.BreadthParams{
			Universe:   req.Universe,
			Days:       req.Days,
			Lookback:   req.Lookback,
			WindowDays: req.WindowDays,
			TopN:       req.TopN,
		})
	})
}

// Refresh queues a recompute-and-publish of one universe.
func (h *DashboardHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}
	req.ApplyDefaults(h.defaults)
	payload := usecase.RefreshPayload{Universe: req.Universe, Days: req.Days, Lookback: req.Lookback, Force: req.Force}
	ctx := c.Request().Context()

	if h.queue != nil {
		if err := h.queue.PublishMessage(ctx, usecase.RefreshMessageType, payload); err != nil {
			return h.fail(c, "refresh", err)
		}
		return xhttp.AcceptedResponse(c, map[string]interface{}{"queued": true, "universe": req.Universe})
	}
	sum, err := h.refresh.Run(ctx, payload)
	if err != nil {
		return h.fail(c, "refresh", err)
	}
	if sum == nil {
		return xhttp.AcceptedResponse(c, map[string]interface{}{"queued": false, "universe": req.Universe, "running": true})
	}
	return xhttp.SuccessResponse(c, sum)
}

func (h *DashboardHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}
	return xhttp.DataResponse(c, status, map[string]interface{}{"checks": results})
}

// serveCached answers from the response cache when possible, otherwise runs
// compute and stores the encoded envelope.
func (h *DashboardHandler) serveCached(c echo.Context, endpoint string, compute func(ctx context.Context) (interface{}, error)) error {
	start := time.Now()
	defer func() { apimetrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds()) }()

	ctx := c.Request().Context()
	key := "resp:" + endpoint + "?" + c.QueryParams().Encode()
	if h.cache != nil {
		if b, ok, err := h.cache.GetBytes(ctx, key); err == nil && ok {
			apimetrics.APICacheHits.WithLabelValues(endpoint).Inc()
			c.Response().Header().Set("X-Cache", "HIT")
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	data, err := compute(ctx)
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	body, err := json.Marshal(xhttp.APIResponse{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: data})
	if err != nil {
		return h.fail(c, endpoint, err)
	}
	if h.cache != nil && h.cacheTTL > 0 {
		if err := h.cache.SetBytes(ctx, key, body, h.cacheTTL); err != nil {
			h.logger.Warn("response cache write failed", xlogger.String("key", key), xlogger.Error(err))
		}
		c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age="+strconv.Itoa(int(h.cacheTTL.Seconds())))
	}
	c.Response().Header().Set("X-Cache", "MISS")
	return c.JSONBlob(http.StatusOK, body)
}

func (h *DashboardHandler) fail(c echo.Context, endpoint string, err error) error {
	apimetrics.APIErrors.WithLabelValues(endpoint).Inc()
	appErr := toAppError(err)
	if appErr.Status >= 500 {
		h.logger.Error(endpoint+" usecase error", xlogger.Error(err))
	}
	return xhttp.AppErrorResponse(c, appErr)
}

func toAppError(err error) *xhttp.AppError {
	var appErr *xhttp.AppError
	switch {
	case errors.As(err, &appErr):
		return appErr
	case errors.Is(err, models.ErrUnknownUniverse):
		return xhttp.NotFoundErrorf("%v", err).WithError(err)
	case errors.Is(err, models.ErrEmptyUniverse):
		return xhttp.NewAppError("ERR_EMPTY_UNIVERSE", "universe", err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, models.ErrInvalidLookback),
		errors.Is(err, models.ErrInvalidBasis),
		errors.Is(err, models.ErrInvalidSide),
		errors.Is(err, models.ErrInvalidMetric),
		errors.Is(err, models.ErrInvalidWindow),
		errors.Is(err, models.ErrInvalidTopN),
		errors.Is(err, models.ErrInvalidDays):
		return xhttp.BadRequestError(err.Error()).WithError(err)
	case errors.Is(err, models.ErrRateLimited), errors.Is(err, breaker.ErrOpen):
		return xhttp.NewAppError("ERR_UPSTREAM_UNAVAILABLE", "", "market data provider unavailable", http.StatusServiceUnavailable).WithError(err)
	case errors.Is(err, models.ErrNoData):
		return xhttp.UpstreamError("no market data returned").WithError(err)
	case errors.Is(err, context.DeadlineExceeded):
		return xhttp.NewAppError("ERR_TIMEOUT", "", "request timed out", http.StatusGatewayTimeout).WithError(err)
	default:
		return xhttp.InternalError("something went wrong").WithError(err)
	}
}
