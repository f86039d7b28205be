// internal/api/v2/telemetry.go
package api

import (
	"net/http"
	"strconv"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/ingest"
)

const (
	defaultHistoryLimit = 100
	maxHistoryLimit     = 1000
)

// markerCacheKey is the single cache entry for the markers join.
const markerCacheKey = "markers"

// initTelemetryRoutes registers the location ingestion and read endpoints
func (c *Controller) initTelemetryRoutes() {
	c.Group.POST("/telemetry", c.PostTelemetry)
	c.Group.GET("/telemetry/current", c.GetCurrentPosition)
	c.Group.GET("/telemetry/markers", c.GetMarkers)
	c.Group.GET("/telemetry/history", c.GetTrackHistory)
}

// telemetryResponse is the envelope for a successful ingest.
type telemetryResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ID        uint   `json:"id,omitempty"`
	EntityKey uint   `json:"entity_key"`
	Corrected bool   `json:"corrected,omitempty"`
}

// PostTelemetry ingests a single location report.
func (c *Controller) PostTelemetry(ctx echo.Context) error {
	if c.Pipeline == nil {
		return c.HandleError(ctx, nil, "Ingestion pipeline not available", http.StatusServiceUnavailable)
	}

	var report ingest.Report
	if err := ctx.Bind(&report); err != nil {
		return c.HandleError(ctx, err, "Invalid location report", http.StatusBadRequest)
	}
	report.SourceNode = c.Settings.Main.Name

	ack, err := c.Pipeline.Ingest(&report)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to ingest location report", statusForError(err))
	}

	c.logAPIRequest(ctx, slog.LevelDebug, "Location report ingested",
		"track_point_id", ack.TrackPointID,
		"entity_key", ack.EntityKey,
		"corrected", ack.Corrected,
	)

	return ctx.JSON(http.StatusOK, telemetryResponse{
		Success:   true,
		Message:   "location recorded",
		ID:        ack.TrackPointID,
		EntityKey: ack.EntityKey,
		Corrected: ack.Corrected,
	})
}

// GetCurrentPosition returns the latest known position for an animal, a
// collar, or the sentinel record when neither is given. A missing row is not
// an error: data is null.
func (c *Controller) GetCurrentPosition(ctx echo.Context) error {
	var (
		position *datastore.CurrentPosition
		err      error
	)

	switch {
	case ctx.QueryParam("animal_id") != "":
		animalID, parseErr := strconv.ParseUint(ctx.QueryParam("animal_id"), 10, 32)
		if parseErr != nil {
			return c.HandleError(ctx, parseErr, "Invalid animal_id", http.StatusBadRequest)
		}
		position, err = c.DS.GetCurrentPosition(uint(animalID))
	case ctx.QueryParam("collar_id") != "":
		position, err = c.DS.GetCurrentPositionByCollar(ctx.QueryParam("collar_id"))
	default:
		position, err = c.DS.GetCurrentPosition(datastore.SentinelEntityID)
	}

	if err != nil {
		if errors.IsNotFound(err) {
			return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": nil})
		}
		return c.HandleError(ctx, err, "Failed to query current position", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": position})
}

// GetMarkers returns all current positions joined with animal display
// metadata. The result is briefly cached.
func (c *Controller) GetMarkers(ctx echo.Context) error {
	if cached, found := c.markerCache.Get(markerCacheKey); found {
		if markers, ok := cached.([]datastore.Marker); ok {
			return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": markers})
		}
	}

	markers, err := c.DS.GetMarkers()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to query markers", http.StatusInternalServerError)
	}

	c.markerCache.SetDefault(markerCacheKey, markers)

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "data": markers})
}

// GetTrackHistory returns recent track points for one animal, newest first.
func (c *Controller) GetTrackHistory(ctx echo.Context) error {
	animalIDParam := ctx.QueryParam("animal_id")
	if animalIDParam == "" {
		return c.HandleError(ctx, nil, "animal_id is required", http.StatusBadRequest)
	}
	animalID, err := strconv.ParseUint(animalIDParam, 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid animal_id", http.StatusBadRequest)
	}

	limit := defaultHistoryLimit
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed <= 0 {
			return c.HandleError(ctx, err, "Invalid limit", http.StatusBadRequest)
		}
		limit = min(parsed, maxHistoryLimit)
	}

	offset := 0
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		parsed, err := strconv.Atoi(offsetParam)
		if err != nil || parsed < 0 {
			return c.HandleError(ctx, err, "Invalid offset", http.StatusBadRequest)
		}
		offset = parsed
	}

	points, err := c.DS.GetTrackHistory(uint(animalID), limit, offset)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to query track history", http.StatusInternalServerError)
	}

	total, err := c.DS.CountTrackPoints(uint(animalID))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to count track history", http.StatusInternalServerError)
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data":    points,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
