// internal/api/v2/commands.go
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/dispatch"
)

// initCommandRoutes registers the device command queue endpoints
func (c *Controller) initCommandRoutes() {
	c.Group.POST("/commands", c.EnqueueCommands)
	c.Group.GET("/commands", c.PollCommands)
	c.Group.POST("/commands/:id/ack", c.AckCommand)
}

// enqueueRequest carries control flags and wifi credentials in one request;
// each present group becomes its own queued command.
type enqueueRequest struct {
	DeviceID     string `json:"device_id"`
	Sound        *bool  `json:"sound,omitempty"`
	Lights       *bool  `json:"lights,omitempty"`
	WifiSSID     string `json:"wifi_ssid,omitempty"`
	WifiPassword string `json:"wifi_password,omitempty"`
	ExpiresHours int    `json:"expires_hours,omitempty"`
}

type queuedCommand struct {
	ID          uint      `json:"id"`
	CommandType string    `json:"command_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// EnqueueCommands splits an operator request into up to two queued commands:
// a control command for sound/lights flags and a wifi update for new
// credentials.
func (c *Controller) EnqueueCommands(ctx echo.Context) error {
	if c.Dispatcher == nil {
		return c.HandleError(ctx, nil, "Command dispatch not available", http.StatusServiceUnavailable)
	}

	var req enqueueRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid command request", http.StatusBadRequest)
	}
	if req.DeviceID == "" {
		return c.HandleError(ctx, nil, "device_id is required", http.StatusBadRequest)
	}

	ttl := time.Duration(req.ExpiresHours) * time.Hour

	var queued []queuedCommand

	if req.Sound != nil || req.Lights != nil {
		cmd, err := c.Dispatcher.Enqueue(req.DeviceID, datastore.CommandTypeControl,
			dispatch.ControlPayload{Sound: req.Sound, Lights: req.Lights}, ttl)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to enqueue control command", statusForError(err))
		}
		queued = append(queued, queuedCommand{ID: cmd.ID, CommandType: cmd.CommandType, ExpiresAt: cmd.ExpiresAt})
	}

	if req.WifiSSID != "" {
		cmd, err := c.Dispatcher.Enqueue(req.DeviceID, datastore.CommandTypeWifiUpdate,
			dispatch.WifiPayload{SSID: req.WifiSSID, Password: req.WifiPassword}, ttl)
		if err != nil {
			return c.HandleError(ctx, err, "Failed to enqueue wifi command", statusForError(err))
		}
		queued = append(queued, queuedCommand{ID: cmd.ID, CommandType: cmd.CommandType, ExpiresAt: cmd.ExpiresAt})
	}

	if len(queued) == 0 {
		return c.HandleError(ctx, nil, "Request carries no command payload", http.StatusBadRequest)
	}

	c.logAPIRequest(ctx, slog.LevelInfo, "Commands enqueued",
		"device_id", req.DeviceID,
		"count", len(queued),
	)

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "commands": queued})
}

// pendingCommand is the poll response shape a field device consumes.
type pendingCommand struct {
	ID          uint            `json:"id"`
	CommandType string          `json:"command_type"`
	Payload     json.RawMessage `json:"payload"`
}

// PollCommands returns the pending, unexpired commands for one device.
func (c *Controller) PollCommands(ctx echo.Context) error {
	if c.Dispatcher == nil {
		return c.HandleError(ctx, nil, "Command dispatch not available", http.StatusServiceUnavailable)
	}

	deviceID := ctx.QueryParam("device_id")
	if deviceID == "" {
		return c.HandleError(ctx, nil, "device_id is required", http.StatusBadRequest)
	}

	commands, err := c.Dispatcher.Poll(deviceID)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to poll commands", statusForError(err))
	}

	pending := make([]pendingCommand, 0, len(commands))
	for i := range commands {
		pending = append(pending, pendingCommand{
			ID:          commands[i].ID,
			CommandType: commands[i].CommandType,
			Payload:     json.RawMessage(commands[i].Payload),
		})
	}

	return ctx.JSON(http.StatusOK, pending)
}

type ackRequest struct {
	Status string `json:"status"`
}

// AckCommand marks a delivered command as acknowledged. A repeated ack is a
// no-op success so devices can retry without error handling.
func (c *Controller) AckCommand(ctx echo.Context) error {
	if c.Dispatcher == nil {
		return c.HandleError(ctx, nil, "Command dispatch not available", http.StatusServiceUnavailable)
	}

	id, err := strconv.ParseUint(ctx.Param("id"), 10, 32)
	if err != nil {
		return c.HandleError(ctx, err, "Invalid command id", http.StatusBadRequest)
	}

	var req ackRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid ack request", http.StatusBadRequest)
	}

	applied, err := c.Dispatcher.Acknowledge(uint(id), req.Status)
	if err != nil {
		return c.HandleError(ctx, err, "Failed to acknowledge command", statusForError(err))
	}

	return ctx.JSON(http.StatusOK, map[string]any{"success": true, "applied": applied})
}
