// internal/api/v2/fences.go
package api

import (
	"fmt"
	"net/http"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
)

// initFenceRoutes registers the virtual fence endpoints
func (c *Controller) initFenceRoutes() {
	c.Group.POST("/fences", c.CreateFence)
	c.Group.GET("/fences", c.ListFences)
}

type fenceRequest struct {
	FarmID       uint    `json:"farm_id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	Active       *bool   `json:"active,omitempty"`
}

// CreateFence creates a circular virtual fence. Geometry is validated here;
// center coordinates must be in range and the radius within the documented
// bounds.
func (c *Controller) CreateFence(ctx echo.Context) error {
	var req fenceRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid fence payload", http.StatusBadRequest)
	}

	if req.FarmID == 0 {
		return c.HandleError(ctx, nil, "farm_id is required", http.StatusBadRequest)
	}
	if req.Name == "" {
		return c.HandleError(ctx, nil, "name is required", http.StatusBadRequest)
	}
	if req.Latitude < -90 || req.Latitude > 90 {
		return c.HandleError(ctx, nil, "latitude out of range", http.StatusBadRequest)
	}
	if req.Longitude < -180 || req.Longitude > 180 {
		return c.HandleError(ctx, nil, "longitude out of range", http.StatusBadRequest)
	}
	if req.RadiusMeters < datastore.FenceRadiusMin || req.RadiusMeters > datastore.FenceRadiusMax {
		return c.HandleError(ctx, nil,
			fmt.Sprintf("radius_meters must be between %d and %d", datastore.FenceRadiusMin, datastore.FenceRadiusMax),
			http.StatusBadRequest)
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}

	fence := &datastore.Fence{
		FarmID:       req.FarmID,
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		RadiusMeters: req.RadiusMeters,
		Active:       active,
	}
	if err := c.DS.CreateFence(fence); err != nil {
		return c.HandleError(ctx, err, "Failed to create fence", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Fence created",
		"fence_id", fence.ID,
		"farm_id", fence.FarmID,
		"radius_meters", fence.RadiusMeters,
	)

	return ctx.JSON(http.StatusCreated, map[string]any{"success": true, "data": fence})
}

// ListFences returns the fences of one farm, or all fences when farm_id is
// absent.
func (c *Controller) ListFences(ctx echo.Context) error {
	farmID, err := optionalUintParam(ctx, "farm_id")
	if err != nil {
		return c.HandleError(ctx, err, "Invalid farm_id", http.StatusBadRequest)
	}

	fences, err := c.DS.GetFences(farmID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to list fences", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": fences})
}
