// internal/api/v2/api.go
package api

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/patrickmn/go-cache"

	"github.com/herdtrack/herdtrack-go/internal/alerting"
	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/dispatch"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/ingest"
	"github.com/herdtrack/herdtrack-go/internal/logging"
	"github.com/herdtrack/herdtrack-go/internal/observability"
)

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	DS       datastore.Interface
	Settings *conf.Settings

	Pipeline   *ingest.Pipeline
	Dispatcher *dispatch.Dispatcher
	Alerts     *alerting.Service

	logger         *log.Logger
	apiLogger      *slog.Logger
	apiLevelVar    *slog.LevelVar
	apiLoggerClose func() error
	metrics        *observability.Metrics
	markerCache    *cache.Cache
	startTime      *time.Time

	// Auth middleware is injected from the server via functional options;
	// the controller itself carries no credential logic.
	authMiddleware echo.MiddlewareFunc

	sseManager *SSEManager

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithAuthMiddleware sets the authentication middleware for the controller.
func WithAuthMiddleware(mw echo.MiddlewareFunc) Option {
	return func(c *Controller) {
		c.authMiddleware = mw
	}
}

// markerCacheTTL bounds how stale the markers response may be. The map view
// polls frequently; a short cache keeps the join off the hot path.
const markerCacheTTL = 10 * time.Second

// New creates a new API controller, returning an error if initialization fails.
func New(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	pipeline *ingest.Pipeline, dispatcher *dispatch.Dispatcher, alerts *alerting.Service,
	logger *log.Logger, metrics *observability.Metrics, opts ...Option) (*Controller, error) {
	return NewWithOptions(e, ds, settings, pipeline, dispatcher, alerts, logger, metrics, true, opts...)
}

// NewWithOptions creates a new API controller with optional route initialization.
// Set initializeRoutes to false for testing to avoid starting background goroutines.
func NewWithOptions(e *echo.Echo, ds datastore.Interface, settings *conf.Settings,
	pipeline *ingest.Pipeline, dispatcher *dispatch.Dispatcher, alerts *alerting.Service,
	logger *log.Logger, metrics *observability.Metrics, initializeRoutes bool, opts ...Option) (*Controller, error) {

	if logger == nil {
		logger = log.Default()
	}
	if settings == nil {
		return nil, fmt.Errorf("api: settings are required")
	}
	if ds == nil {
		return nil, fmt.Errorf("api: datastore is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c := &Controller{
		Echo:        e,
		DS:          ds,
		Settings:    settings,
		Pipeline:    pipeline,
		Dispatcher:  dispatcher,
		Alerts:      alerts,
		logger:      logger,
		metrics:     metrics,
		markerCache: cache.New(markerCacheTTL, time.Minute),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Structured logger for API requests, file-backed with a fallback to a
	// disabled handler when the log file cannot be opened.
	apiLogPath := "logs/web.log"
	c.apiLevelVar = new(slog.LevelVar)
	c.apiLevelVar.Set(slog.LevelInfo)
	if settings.WebServer.Debug {
		c.apiLevelVar.Set(slog.LevelDebug)
	}

	apiLogger, closeFunc, err := logging.NewFileLogger(apiLogPath, "api", c.apiLevelVar)
	if err != nil {
		logger.Printf("Warning: Failed to initialize API structured logger: %v", err)
		fbHandler := slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: c.apiLevelVar})
		c.apiLogger = slog.New(fbHandler).With("service", "api")
		c.apiLoggerClose = func() error { return nil }
	} else {
		c.apiLogger = apiLogger
		c.apiLoggerClose = closeFunc
	}

	for _, opt := range opts {
		opt(c)
	}

	// Create v2 API group
	c.Group = e.Group("/api/v2")

	// Configure middlewares
	c.Group.Use(middleware.Recover())
	c.Group.Use(middleware.CORS())
	c.Group.Use(middleware.BodyLimit("1M"))
	c.Group.Use(c.LoggingMiddleware())
	c.Group.Use(c.MetricsMiddleware())

	now := time.Now()
	c.startTime = &now

	c.sseManager = NewSSEManager(logger)

	if initializeRoutes {
		c.initRoutes()
	}

	return c, nil
}

// LoggingMiddleware creates a middleware function that logs API requests
func (c *Controller) LoggingMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()

			err := next(ctx)

			if c.apiLogger == nil {
				return err
			}

			req := ctx.Request()
			res := ctx.Response()

			// LogAttrs avoids allocations when the level is disabled.
			attrs := []slog.Attr{
				slog.String("method", req.Method),
				slog.String("path", req.URL.Path),
				slog.String("query", req.URL.RawQuery),
				slog.Int("status", res.Status),
				slog.String("ip", ctx.RealIP()),
				slog.String("user_agent", req.UserAgent()),
				slog.Int64("latency_ms", time.Since(start).Milliseconds()),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
			}

			c.apiLogger.LogAttrs(req.Context(), slog.LevelInfo, "API Request", attrs...)

			return err
		}
	}
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	// Health check endpoint - publicly accessible
	c.Group.GET("/health", c.HealthCheck)

	routeInitializers := []struct {
		name string
		fn   func()
	}{
		{"telemetry routes", c.initTelemetryRoutes},
		{"command routes", c.initCommandRoutes},
		{"control routes", c.initControlRoutes},
		{"alert routes", c.initAlertRoutes},
		{"fence routes", c.initFenceRoutes},
		{"animal routes", c.initAnimalRoutes},
		{"system routes", c.initSystemRoutes},
		{"live routes", c.initLiveRoutes},
	}

	for _, initializer := range routeInitializers {
		c.Debug("Initializing %s...", initializer.name)

		// Recover so one failing group does not take down the rest.
		func() {
			defer func() {
				if r := recover(); r != nil {
					c.logger.Printf("PANIC during %s initialization: %v", initializer.name, r)
				}
			}()

			initializer.fn()
		}()
	}
}

// HealthCheck handles the API health check endpoint
func (c *Controller) HealthCheck(ctx echo.Context) error {
	response := map[string]any{
		"status":     "healthy",
		"version":    c.Settings.Version,
		"build_date": c.Settings.BuildDate,
		"timestamp":  time.Now().Format(time.RFC3339),
	}

	if c.Settings.IsProduction() {
		response["environment"] = "production"
	} else {
		response["environment"] = "development"
	}

	// Cheap connectivity probe against the datastore.
	dbStatus := "connected"
	if _, err := c.DS.CountTrackPoints(datastore.SentinelEntityID); err != nil {
		dbStatus = "disconnected"
		response["database_error"] = err.Error()
	}
	response["database_status"] = dbStatus

	if c.startTime != nil {
		uptime := time.Since(*c.startTime)
		response["uptime"] = uptime.String()
		response["uptime_seconds"] = uptime.Seconds()
	}

	return ctx.JSON(http.StatusOK, response)
}

// Shutdown performs cleanup of all resources used by the API controller.
// This should be called when the application is shutting down.
func (c *Controller) Shutdown() {
	if c.cancel != nil {
		c.cancel()
	}

	c.wg.Wait()

	if c.sseManager != nil {
		c.sseManager.Shutdown()
	}

	if c.apiLoggerClose != nil {
		if err := c.apiLoggerClose(); err != nil {
			c.logger.Printf("Error closing API log file: %v", err)
		}
	}

	if c.markerCache != nil {
		c.markerCache.Flush()
	}

	c.Debug("API Controller shutting down")
}

// ErrorResponse is the envelope returned for all failed requests.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int) *ErrorResponse {
	correlationID := generateCorrelationID()

	var errorStr string
	if err != nil {
		errorStr = err.Error()
	} else {
		errorStr = message
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking using
// cryptographic randomness.
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}

	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	errorResp := NewErrorResponse(err, message, code)

	// Server-side failure detail stays out of production responses; the
	// correlation ID links the envelope back to the logs.
	if code >= http.StatusInternalServerError && c.Settings.IsProduction() {
		errorResp.Error = message
	}

	ip := ctx.RealIP()
	c.logger.Printf("API Error [%s] from %s: %s: %v", errorResp.CorrelationID, ip, message, err)

	if c.apiLogger != nil {
		var errorStr string
		if err != nil {
			errorStr = err.Error()
		} else {
			errorStr = message
		}

		c.apiLogger.Error("API Error",
			"correlation_id", errorResp.CorrelationID,
			"message", message,
			"error", errorStr,
			"code", code,
			"path", ctx.Request().URL.Path,
			"method", ctx.Request().Method,
			"ip", ip,
		)
	}

	return ctx.JSON(code, errorResp)
}

// statusForError maps error categories to HTTP status codes for handlers
// whose services surface the category taxonomy directly.
func statusForError(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.IsForbidden(err):
		return http.StatusForbidden
	case errors.IsCategory(err, errors.CategoryConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Debug logs debug messages when debug mode is enabled
func (c *Controller) Debug(format string, v ...any) {
	if c.Settings.WebServer.Debug {
		msg := fmt.Sprintf(format, v...)
		c.logger.Printf("[DEBUG] %s", msg)

		if c.apiLogger != nil {
			c.apiLogger.Debug(msg)
		}
	}
}

// logAPIRequest is a helper to log API requests with common context fields.
func (c *Controller) logAPIRequest(ctx echo.Context, level slog.Level, msg string, args ...any) {
	if c.apiLogger == nil {
		return
	}

	baseAttrs := []any{
		"path", ctx.Request().URL.Path,
		"ip", ctx.RealIP(),
	}
	baseAttrs = append(baseAttrs, args...)

	c.apiLogger.Log(ctx.Request().Context(), level, msg, baseAttrs...)
}
