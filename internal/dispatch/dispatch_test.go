package dispatch

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestDispatcher wires a dispatcher to a temporary sqlite store so
// the protocol tests exercise the real expiry predicate and ack update.
func createTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/test.db"

	ds := datastore.New(settings)
	require.NoError(t, ds.Open(), "Failed to open database")
	t.Cleanup(func() {
		assert.NoError(t, ds.Close(), "Failed to close datastore")
	})

	return New(settings, ds, nil)
}

func ptrBool(v bool) *bool { return &v }

func TestEnqueue_ControlCommand(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	before := time.Now()
	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeControl,
		&ControlPayload{Sound: ptrBool(true)}, 0)
	require.NoError(t, err)

	assert.NotZero(t, cmd.ID)
	assert.Equal(t, datastore.CommandStatusPending, cmd.Status)

	// Zero ttl falls back to the control default of one hour.
	assert.WithinDuration(t, before.Add(DefaultControlTTL), cmd.ExpiresAt, 5*time.Second)

	var payload ControlPayload
	require.NoError(t, json.Unmarshal([]byte(cmd.Payload), &payload))
	require.NotNil(t, payload.Sound)
	assert.True(t, *payload.Sound)
	assert.Nil(t, payload.Lights, "absent actuators stay absent in the payload")
}

func TestEnqueue_WifiDefaultTTL(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	before := time.Now()
	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeWifiUpdate,
		&WifiPayload{SSID: "barn", Password: "hunter2"}, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(DefaultWifiTTL), cmd.ExpiresAt, 5*time.Second)
}

func TestEnqueue_ConfiguredTTLOverridesDefault(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)
	d.settings.Dispatch.ControlTTL = 10 * time.Minute

	before := time.Now()
	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeControl, &ControlPayload{}, 0)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(10*time.Minute), cmd.ExpiresAt, 5*time.Second)
}

func TestEnqueue_ExplicitTTLWins(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	before := time.Now()
	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeControl, &ControlPayload{}, 3*time.Minute)
	require.NoError(t, err)
	assert.WithinDuration(t, before.Add(3*time.Minute), cmd.ExpiresAt, 5*time.Second)
}

func TestEnqueue_Validation(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	_, err := d.Enqueue("", datastore.CommandTypeControl, &ControlPayload{}, 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "got %v", err)

	_, err = d.Enqueue("collar-001", "reboot", nil, 0)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "got %v", err)
}

func TestPoll_ReturnsOnlyLivePendingCommands(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	live, err := d.Enqueue("collar-001", datastore.CommandTypeControl,
		&ControlPayload{Lights: ptrBool(true)}, time.Hour)
	require.NoError(t, err)

	// Expired before the poll, must never be handed out.
	_, err = d.Enqueue("collar-001", datastore.CommandTypeControl,
		&ControlPayload{}, time.Nanosecond)
	require.NoError(t, err)

	// Another device's queue is invisible.
	_, err = d.Enqueue("collar-002", datastore.CommandTypeControl, &ControlPayload{}, time.Hour)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	commands, err := d.Poll("collar-001")
	require.NoError(t, err)
	require.Len(t, commands, 1)
	assert.Equal(t, live.ID, commands[0].ID)
}

func TestPoll_RequiresDeviceID(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	_, err := d.Poll("")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestAcknowledge_RemovesFromQueue(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeControl, &ControlPayload{}, time.Hour)
	require.NoError(t, err)

	applied, err := d.Acknowledge(cmd.ID, "completed")
	require.NoError(t, err)
	assert.True(t, applied)

	commands, err := d.Poll("collar-001")
	require.NoError(t, err)
	assert.Empty(t, commands, "acknowledged commands are no longer pending")
}

func TestAcknowledge_SecondAckIsNoOpSuccess(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	cmd, err := d.Enqueue("collar-001", datastore.CommandTypeControl, &ControlPayload{}, time.Hour)
	require.NoError(t, err)

	applied, err := d.Acknowledge(cmd.ID, "completed")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.Acknowledge(cmd.ID, "failed")
	require.NoError(t, err, "duplicate ack must not error")
	assert.False(t, applied)
}

func TestAcknowledge_UnknownCommand(t *testing.T) {
	t.Parallel()
	d := createTestDispatcher(t)

	_, err := d.Acknowledge(99999, "completed")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "got %v", err)
}
