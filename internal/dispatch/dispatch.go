// Package dispatch implements the remote command protocol: commands are
// enqueued with a time-to-live, handed out when the target device polls,
// and acknowledged exactly once. Expiry is lazy, enforced by the store at
// poll and ack time; nothing sweeps the queue.
package dispatch

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/logging"
	"github.com/herdtrack/herdtrack-go/internal/observability/metrics"
)

// Default time-to-live per command type, used when the configuration does
// not override them.
const (
	DefaultControlTTL = time.Hour
	DefaultWifiTTL    = 24 * time.Hour
)

// ControlPayload switches collar actuators. Absent fields leave the
// actuator unchanged on the device.
type ControlPayload struct {
	Sound  *bool `json:"sound,omitempty"`
	Lights *bool `json:"lights,omitempty"`
}

// WifiPayload rotates the collar's wifi credentials.
type WifiPayload struct {
	SSID     string `json:"ssid"`
	Password string `json:"password"`
}

// Dispatcher owns the command queue protocol. Safe for concurrent use.
type Dispatcher struct {
	settings *conf.Settings
	ds       datastore.Interface
	metrics  *metrics.DispatchMetrics
	logger   *slog.Logger
}

// New creates a dispatcher. The metrics collector may be nil.
func New(settings *conf.Settings, ds datastore.Interface, m *metrics.DispatchMetrics) *Dispatcher {
	return &Dispatcher{
		settings: settings,
		ds:       ds,
		metrics:  m,
		logger:   logging.ForService("dispatch"),
	}
}

// Enqueue stores a pending command for a device. A zero ttl picks the
// configured default for the command type. The payload is stored as JSON.
func (d *Dispatcher) Enqueue(deviceID, commandType string, payload any, ttl time.Duration) (*datastore.Command, error) {
	if deviceID == "" {
		return nil, d.validationFailure("device_id is required", "device_id", deviceID)
	}
	if commandType != datastore.CommandTypeControl && commandType != datastore.CommandTypeWifiUpdate {
		return nil, d.validationFailure("unknown command type", "command_type", commandType)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.New(err).
			Component("dispatch").
			Category(errors.CategoryValidation).
			Context("command_type", commandType).
			Build()
	}

	if ttl <= 0 {
		ttl = d.defaultTTL(commandType)
	}

	now := time.Now()
	cmd := &datastore.Command{
		DeviceID:    deviceID,
		CommandType: commandType,
		Payload:     string(body),
		Status:      datastore.CommandStatusPending,
		CreatedAt:   now,
		ExpiresAt:   now.Add(ttl),
	}
	if err := d.ds.InsertCommand(cmd); err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.IncrementCommandsEnqueued(commandType)
	}
	if d.settings != nil && d.settings.Dispatch.Debug {
		d.logger.Debug("command enqueued",
			"device_id", deviceID,
			"command_type", commandType,
			"expires_at", cmd.ExpiresAt)
	}

	return cmd, nil
}

// Poll returns every pending, non-expired command for a device, oldest
// first. Expired rows are simply never returned; they stay in the table.
func (d *Dispatcher) Poll(deviceID string) ([]datastore.Command, error) {
	if deviceID == "" {
		return nil, d.validationFailure("device_id is required", "device_id", deviceID)
	}

	commands, err := d.ds.PendingCommands(deviceID, time.Now())
	if err != nil {
		return nil, err
	}

	if d.metrics != nil {
		d.metrics.IncrementPollRequests()
		d.metrics.AddCommandsDelivered(len(commands))
	}
	return commands, nil
}

// Acknowledge marks a command acknowledged with the device-reported status.
// Idempotent: acknowledging an already-acknowledged command is a no-op
// success and reports applied=false. An unknown id is a not-found error,
// and so is an expired command: once past its TTL a command is terminal.
func (d *Dispatcher) Acknowledge(id uint, ackStatus string) (applied bool, err error) {
	applied, err = d.ds.AcknowledgeCommand(id, ackStatus, time.Now())
	if err != nil {
		return false, err
	}

	if d.metrics != nil {
		if applied {
			d.metrics.IncrementCommandsAcknowledged()
		} else {
			d.metrics.IncrementDuplicateAcks()
		}
	}
	if !applied {
		d.logger.Debug("duplicate acknowledgement ignored", "command_id", id)
	}
	return applied, nil
}

// defaultTTL resolves the configured time-to-live for a command type.
func (d *Dispatcher) defaultTTL(commandType string) time.Duration {
	if commandType == datastore.CommandTypeWifiUpdate {
		if d.settings != nil && d.settings.Dispatch.WifiTTL > 0 {
			return d.settings.Dispatch.WifiTTL
		}
		return DefaultWifiTTL
	}
	if d.settings != nil && d.settings.Dispatch.ControlTTL > 0 {
		return d.settings.Dispatch.ControlTTL
	}
	return DefaultControlTTL
}

func (d *Dispatcher) validationFailure(message, field string, value any) error {
	return errors.Newf("%s", message).
		Component("dispatch").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}
