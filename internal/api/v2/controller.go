package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/homeledger/incident-engine/internal/datastore/v2/entities"
	"github.com/homeledger/incident-engine/internal/datastore/v2/repository"
	"github.com/homeledger/incident-engine/internal/errors"
	"github.com/homeledger/incident-engine/internal/logger"
	"github.com/homeledger/incident-engine/internal/orchestration"
	"github.com/homeledger/incident-engine/internal/snooze"
	"github.com/homeledger/incident-engine/internal/suppression"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200

	defaultRateLimit = 20
	defaultRateBurst = 40
	rateLimitExpiry  = 3 * time.Minute
)

// IncidentService is the orchestration surface the API exposes.
type IncidentService interface {
	Evaluate(ctx context.Context, propertyID, typeKey string, sig *orchestration.Signal) (*entities.Incident, error)
	ListIncidents(ctx context.Context, filter repository.IncidentFilter) ([]entities.Incident, int64, error)
	GetIncident(ctx context.Context, incidentID string) (*orchestration.IncidentView, error)
	ListEvents(ctx context.Context, incidentID string, types ...entities.EventType) ([]entities.IncidentEvent, error)
	Traces(ctx context.Context, incidentID string) ([]orchestration.ProposalTrace, error)
	Acknowledge(ctx context.Context, incidentID string, req orchestration.AckRequest) (*entities.Incident, error)
	ResolveIncident(ctx context.Context, incidentID string, note *string) (*entities.Incident, error)
	ExpireIncident(ctx context.Context, incidentID string, reason *string) (*entities.Incident, error)
	MarkActionCreated(ctx context.Context, actionID string, entityType, entityID *string) (*entities.IncidentAction, error)
	UpdateActionStatus(ctx context.Context, actionID string, status entities.ActionStatus) (*entities.IncidentAction, error)
	GetRuleSchema() orchestration.RuleSchema
}

// SnoozeService manages snooze windows.
type SnoozeService interface {
	GetActiveSnooze(ctx context.Context, propertyID, actionKey string) (*snooze.ActiveSnooze, error)
	SnoozeAction(ctx context.Context, propertyID, actionKey string, snoozeUntil time.Time, reason *string) (bool, error)
	UnsnoozeAction(ctx context.Context, propertyID, actionKey string) (bool, error)
	GetPropertySnoozes(ctx context.Context, propertyID string) (map[string]snooze.ActiveSnooze, error)
}

// SuppressionService resolves suppression sources.
type SuppressionService interface {
	Resolve(ctx context.Context, propertyID, orchestrationActionID string) suppression.Source
}

// HealthChecker reports whether the store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Options tunes the controller. Zero values select defaults.
type Options struct {
	RateLimit      float64
	RateBurst      int
	MetricsHandler http.Handler
}

// Controller serves the /api/v2 routes.
type Controller struct {
	Echo  *echo.Echo
	Group *echo.Group

	incidents   IncidentService
	snoozes     SnoozeService
	suppression SuppressionService
	health      HealthChecker
	metrics     http.Handler
	log         logger.Logger
	opts        Options
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error    string `json:"error"`
	Message  string `json:"message"`
	Code     int    `json:"code"`
	Category string `json:"category,omitempty"`
}

// New creates a controller and registers its routes on e.
func New(e *echo.Echo, incidents IncidentService, snoozes SnoozeService, sup SuppressionService, health HealthChecker, log logger.Logger, opts Options) *Controller {
	if log == nil {
		log = logger.Nop()
	}
	c := &Controller{
		Echo:        e,
		incidents:   incidents,
		snoozes:     snoozes,
		suppression: sup,
		health:      health,
		metrics:     opts.MetricsHandler,
		log:         log.With(logger.String("component", "api")),
		opts:        opts,
	}
	c.Group = e.Group("/api/v2", c.rateLimiter())
	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	c.Echo.GET("/health", c.Health)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics))
	}

	c.initIncidentRoutes()
	c.initActionRoutes()
	c.initSnoozeRoutes()
	c.Group.GET("/rules", c.GetRuleSchema)
}

func (c *Controller) rateLimiter() echo.MiddlewareFunc {
	limit := c.opts.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	burst := c.opts.RateBurst
	if burst <= 0 {
		burst = defaultRateBurst
	}
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(limit),
				Burst:     burst,
				ExpiresIn: rateLimitExpiry,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(ctx echo.Context, _ error) error {
			return ctx.JSON(http.StatusForbidden, ErrorResponse{
				Error: "rate limiter", Message: "Unable to identify client", Code: http.StatusForbidden,
			})
		},
		DenyHandler: func(ctx echo.Context, _ string, _ error) error {
			return ctx.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error: "rate limited", Message: "Too many requests, please wait before trying again", Code: http.StatusTooManyRequests,
			})
		},
	})
}

// Health reports liveness and store reachability.
func (c *Controller) Health(ctx echo.Context) error {
	if c.health != nil {
		if err := c.health.Ping(ctx.Request().Context()); err != nil {
			c.log.Warn("health check failed", logger.Error(err))
			return ctx.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
	}
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// GetRuleSchema returns the proposal rule catalog and the active rules.
func (c *Controller) GetRuleSchema(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, c.incidents.GetRuleSchema())
}

// HandleError writes err as an ErrorResponse. The status comes from the
// error's category; fallback is used when the category does not decide it.
func (c *Controller) HandleError(ctx echo.Context, err error, message string, fallback int) error {
	code := statusFor(err, fallback)
	if code >= http.StatusInternalServerError {
		c.log.Error(message,
			logger.String("path", ctx.Path()),
			logger.Error(err))
	} else {
		c.log.Debug(message,
			logger.String("path", ctx.Path()),
			logger.Int("status", code),
			logger.Error(err))
	}
	return ctx.JSON(code, ErrorResponse{
		Error:    err.Error(),
		Message:  message,
		Code:     code,
		Category: string(errors.CategoryOf(err)),
	})
}

func (c *Controller) badRequest(ctx echo.Context, message string) error {
	return ctx.JSON(http.StatusBadRequest, ErrorResponse{
		Error: "invalid request", Message: message, Code: http.StatusBadRequest,
	})
}

// bindOptional binds a request body the caller may leave out. A bodyless
// request leaves v at its zero value.
func bindOptional(ctx echo.Context, v any) error {
	req := ctx.Request()
	if req.Body == nil || req.Body == http.NoBody || req.ContentLength == 0 {
		return nil
	}
	return ctx.Bind(v)
}

func statusFor(err error, fallback int) int {
	switch errors.CategoryOf(err) {
	case errors.CategoryNotFound:
		return http.StatusNotFound
	case errors.CategoryConflict, errors.CategoryState:
		return http.StatusConflict
	case errors.CategoryValidation:
		return http.StatusBadRequest
	}
	switch {
	case errors.Is(err, repository.ErrIncidentNotFound),
		errors.Is(err, repository.ErrActionNotFound),
		errors.Is(err, repository.ErrPropertyNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrConflict):
		return http.StatusConflict
	}
	return fallback
}

// pageParams reads limit and offset query parameters.
func pageParams(ctx echo.Context) (limit, offset int, ok bool) {
	limit = defaultListLimit
	if v := ctx.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return 0, 0, false
		}
		limit = min(n, maxListLimit)
	}
	if v := ctx.QueryParam("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		offset = n
	}
	return limit, offset, true
}
