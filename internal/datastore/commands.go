// commands.go: durable command queue for polling field devices
package datastore

import (
	"fmt"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
)

// InsertCommand enqueues a new command in pending state.
func (ds *DataStore) InsertCommand(cmd *Command) error {
	if cmd == nil {
		return validationError("command is nil", "command", nil)
	}
	if cmd.DeviceID == "" {
		return validationError("command device id is empty", "device_id", "")
	}

	if cmd.Status == "" {
		cmd.Status = CommandStatusPending
	}

	if err := ds.DB.Create(cmd).Error; err != nil {
		return dbError(err, "insert-command", errors.PriorityMedium,
			"device_id", cmd.DeviceID,
			"command_type", cmd.CommandType)
	}

	return nil
}

// GetCommand retrieves a command by its ID.
func (ds *DataStore) GetCommand(id uint) (*Command, error) {
	var cmd Command
	if err := ds.DB.First(&cmd, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("command", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get-command", "", "command_id", id)
	}
	return &cmd, nil
}

// PendingCommands returns all commands for a device that are still pending
// and have not expired as of now. Expiry is a read-time predicate; an expired
// command is never delivered regardless of its stored status.
func (ds *DataStore) PendingCommands(deviceID string, now time.Time) ([]Command, error) {
	var commands []Command

	err := ds.DB.Where("device_id = ? AND status = ? AND expires_at > ?",
		deviceID, CommandStatusPending, now).
		Order("created_at ASC").
		Find(&commands).Error
	if err != nil {
		return nil, dbError(err, "pending-commands", "", "device_id", deviceID)
	}

	return commands, nil
}

// AcknowledgeCommand marks a command acknowledged, recording the
// device-reported status and the acknowledgement time. A second call for an
// already acknowledged command is a no-op; the returned bool reports whether
// this call performed the transition. Unknown ids return a not-found error,
// as do commands already past expires_at: expiry is terminal, so an expired
// pending command can no longer be acknowledged any more than it can be
// polled.
func (ds *DataStore) AcknowledgeCommand(id uint, ackStatus string, now time.Time) (bool, error) {
	cmd, err := ds.GetCommand(id)
	if err != nil {
		return false, err
	}

	// Idempotent: the second ack is a no-op success
	if cmd.Status == CommandStatusAcknowledged {
		return false, nil
	}

	if !now.Before(cmd.ExpiresAt) {
		return false, notFoundError("command", fmt.Sprintf("%d", id))
	}

	result := ds.DB.Model(&Command{}).
		Where("id = ? AND status = ? AND expires_at > ?", id, CommandStatusPending, now).
		Updates(map[string]any{
			"status":          CommandStatusAcknowledged,
			"ack_status":      ackStatus,
			"acknowledged_at": now,
		})
	if result.Error != nil {
		return false, dbError(result.Error, "acknowledge-command", errors.PriorityMedium,
			"command_id", id)
	}

	// A concurrent ack may have won the race; either way the command is
	// acknowledged, so this is still a success.
	return result.RowsAffected > 0, nil
}
