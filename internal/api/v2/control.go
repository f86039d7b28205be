// internal/api/v2/control.go
package api

import (
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
)

// initControlRoutes registers the global device control toggle endpoints
func (c *Controller) initControlRoutes() {
	c.Group.GET("/control/devices", c.GetDeviceControl)
	c.Group.POST("/control/devices", c.SetDeviceControl)
}

type deviceControlResponse struct {
	Success bool `json:"success"`
	Enabled bool `json:"enabled"`
}

type deviceControlRequest struct {
	Enabled *bool `json:"enabled"`
}

// GetDeviceControl returns the global device control toggle. An unset row
// defaults to enabled.
func (c *Controller) GetDeviceControl(ctx echo.Context) error {
	value, err := c.DS.GetSetting(datastore.SettingDeviceControl)
	if err != nil {
		if errors.IsNotFound(err) {
			return ctx.JSON(http.StatusOK, deviceControlResponse{Success: true, Enabled: true})
		}
		return c.HandleError(ctx, err, "Failed to read device control setting", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, deviceControlResponse{Success: true, Enabled: value == "on"})
}

// SetDeviceControl flips the global device control toggle.
func (c *Controller) SetDeviceControl(ctx echo.Context) error {
	var req deviceControlRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid control request", http.StatusBadRequest)
	}
	if req.Enabled == nil {
		return c.HandleError(ctx, nil, "enabled is required", http.StatusBadRequest)
	}

	value := "off"
	if *req.Enabled {
		value = "on"
	}
	if err := c.DS.SetSetting(datastore.SettingDeviceControl, value); err != nil {
		return c.HandleError(ctx, err, "Failed to update device control setting", http.StatusInternalServerError)
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Device control toggled", "enabled", *req.Enabled)

	return ctx.JSON(http.StatusOK, deviceControlResponse{Success: true, Enabled: *req.Enabled})
}
