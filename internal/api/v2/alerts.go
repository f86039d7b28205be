// internal/api/v2/alerts.go
package api

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/alerting"
)

const (
	defaultAlertLimit = 100
	maxAlertLimit     = 500
)

// initAlertRoutes registers the alert lifecycle endpoints
func (c *Controller) initAlertRoutes() {
	c.Group.POST("/alerts", c.CreateAlert)
	c.Group.GET("/alerts", c.ListAlerts)
	c.Group.POST("/alerts/:id/acknowledge", c.AcknowledgeAlert)
	c.Group.POST("/alerts/:id/resolve", c.ResolveAlert)
	c.Group.POST("/alerts/clear", c.ClearAlerts)
}

// CreateAlert records a new alert and fans out notifications.
func (c *Controller) CreateAlert(ctx echo.Context) error {
	if c.Alerts == nil {
		return c.HandleError(ctx, nil, "Alerting not available", http.StatusServiceUnavailable)
	}

	var payload alerting.AlertPayload
	if err := ctx.Bind(&payload); err != nil {
		return c.HandleError(ctx, err, "Invalid alert payload", http.StatusBadRequest)
	}

	alert, err := c.Alerts.RecordAlert(&payload)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to record alert", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Alert recorded",
		"alert_id", alert.ID,
		"type", alert.Type,
		"severity", alert.Severity,
	)

	return ctx.JSON(http.StatusCreated, map[string]any{"success": true, "data": alert})
}

// ListAlerts returns alerts, optionally filtered by status, newest first.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	if c.Alerts == nil {
		return c.HandleError(ctx, nil, "Alerting not available", http.StatusServiceUnavailable)
	}

	limit := defaultAlertLimit
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			return c.HandleError(ctx, err, "Invalid limit", http.StatusBadRequest)
		}
		limit = min(parsed, maxAlertLimit)
	}

	offset := 0
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			return c.HandleError(ctx, err, "Invalid offset", http.StatusBadRequest)
		}
		offset = parsed
	}

	alerts, err := c.Alerts.List(ctx.QueryParam("status"), limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list alerts", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": alerts})
}

// AcknowledgeAlert transitions an active alert to acknowledged.
func (c *Controller) AcknowledgeAlert(ctx echo.Context) error {
	return c.transitionAlert(ctx, c.Alerts.Acknowledge)
}

// ResolveAlert transitions an alert to resolved.
func (c *Controller) ResolveAlert(ctx echo.Context) error {
	return c.transitionAlert(ctx, c.Alerts.Resolve)
}

type alertActorRequest struct {
	Actor string `json:"actor"`
}

func (c *Controller) transitionAlert(ctx echo.Context, transition func(id uint, actor string) error) error {
	if c.Alerts == nil {
		return c.HandleError(ctx, nil, "Alerting not available", http.StatusServiceUnavailable)
	}

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid alert id", http.StatusBadRequest)
	}

	var req alertActorRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	if err := transition(uint(id), req.Actor); err != nil {
		return c.HandleError(ctx, err, "Failed to update alert", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true})
}

type clearAlertsRequest struct {
	FarmID     uint `json:"farm_id"`
	Privileged bool `json:"privileged"`
}

// ClearAlerts bulk-deletes a farm's alerts. This is a privileged
// administrative operation; unprivileged callers get a 403.
func (c *Controller) ClearAlerts(ctx echo.Context) error {
	if c.Alerts == nil {
		return c.HandleError(ctx, nil, "Alerting not available", http.StatusServiceUnavailable)
	}

	var req clearAlertsRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid request body", http.StatusBadRequest)
	}

	cleared, err := c.Alerts.Clear(req.FarmID, req.Privileged)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to clear alerts", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Alerts cleared",
		"farm_id", req.FarmID,
		"cleared", cleared,
	)

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "cleared": cleared})
}
