// commands_test.go: Tests for the durable command queue.
package datastore

import (
	"testing"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertCommand_DefaultsToPending(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	cmd := Command{
		DeviceID:    "collar-001",
		CommandType: CommandTypeControl,
		Payload:     `{"sound":true}`,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&cmd))
	require.NotZero(t, cmd.ID)
	assert.Equal(t, CommandStatusPending, cmd.Status)
}

func TestInsertCommand_RequiresDeviceID(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	err := ds.InsertCommand(&Command{CommandType: CommandTypeControl})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestPendingCommands_ExcludesExpired(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	now := time.Now()

	live := Command{
		DeviceID:    "collar-002",
		CommandType: CommandTypeControl,
		Payload:     `{"lights":true}`,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&live))

	// Expired but still stored as pending. Expiry is evaluated lazily at
	// read time, so this command must never be delivered.
	expired := Command{
		DeviceID:    "collar-002",
		CommandType: CommandTypeWifiUpdate,
		Payload:     `{"ssid":"barn","password":"secret"}`,
		ExpiresAt:   now.Add(-time.Minute),
	}
	require.NoError(t, ds.InsertCommand(&expired))

	commands, err := ds.PendingCommands("collar-002", now)
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, live.ID, commands[0].ID)
}

func TestPendingCommands_ExcludesOtherDevices(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	now := time.Now()
	require.NoError(t, ds.InsertCommand(&Command{
		DeviceID:    "collar-003",
		CommandType: CommandTypeControl,
		ExpiresAt:   now.Add(time.Hour),
	}))

	commands, err := ds.PendingCommands("collar-004", now)
	require.NoError(t, err)
	assert.Empty(t, commands)
}

func TestAcknowledgeCommand_Idempotent(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	now := time.Now()
	cmd := Command{
		DeviceID:    "collar-005",
		CommandType: CommandTypeControl,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&cmd))

	// First ack performs the transition.
	transitioned, err := ds.AcknowledgeCommand(cmd.ID, "executed", now)
	require.NoError(t, err)
	assert.True(t, transitioned)

	got, err := ds.GetCommand(cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, CommandStatusAcknowledged, got.Status)
	assert.Equal(t, "executed", got.AckStatus)
	require.NotNil(t, got.AcknowledgedAt)

	// Second ack is a no-op success, never an error.
	transitioned, err = ds.AcknowledgeCommand(cmd.ID, "executed", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, transitioned)

	// The original acknowledgement is untouched.
	again, err := ds.GetCommand(cmd.ID)
	require.NoError(t, err)
	assert.True(t, again.AcknowledgedAt.Equal(*got.AcknowledgedAt))
}

func TestAcknowledgeCommand_ExpiredIsTerminal(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	now := time.Now()
	cmd := Command{
		DeviceID:    "collar-008",
		CommandType: CommandTypeControl,
		Payload:     `{"sound":false}`,
		ExpiresAt:   now.Add(-time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&cmd))

	// Expiry is terminal: a command the device can no longer poll can no
	// longer be acknowledged either.
	transitioned, err := ds.AcknowledgeCommand(cmd.ID, "executed", now)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "expected not-found error, got %v", err)
	assert.False(t, transitioned)

	got, err := ds.GetCommand(cmd.ID)
	require.NoError(t, err)
	assert.Equal(t, CommandStatusPending, got.Status, "expired command must stay untouched")
	assert.Nil(t, got.AcknowledgedAt)
}

func TestAcknowledgeCommand_UnknownIDIsNotFound(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	_, err := ds.AcknowledgeCommand(31337, "executed", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "expected not-found error, got %v", err)
}

func TestAcknowledgedCommands_NotReturnedByPoll(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	now := time.Now()
	cmd := Command{
		DeviceID:    "collar-006",
		CommandType: CommandTypeControl,
		ExpiresAt:   now.Add(time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&cmd))

	_, err := ds.AcknowledgeCommand(cmd.ID, "done", now)
	require.NoError(t, err)

	commands, err := ds.PendingCommands("collar-006", now)
	require.NoError(t, err)
	assert.Empty(t, commands, "acknowledged commands are terminal")
}
