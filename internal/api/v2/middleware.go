// internal/api/v2/middleware.go
package api

import (
	"time"

	"github.com/labstack/echo/v4"
)

// MetricsMiddleware records request counts and latency per route. The route
// template (not the raw path) is used as the label to keep cardinality
// bounded.
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if c.metrics == nil || c.metrics.HTTP == nil {
				return next(ctx)
			}

			start := time.Now()
			err := next(ctx)

			route := ctx.Path()
			if route == "" {
				route = "unmatched"
			}
			c.metrics.HTTP.ObserveRequest(ctx.Request().Method, route,
				ctx.Response().Status, time.Since(start).Seconds())

			return err
		}
	}
}
