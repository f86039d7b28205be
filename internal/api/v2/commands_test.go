// commands_test.go: tests for the command queue endpoints
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
)

func TestEnqueueCommands_SplitsControlAndWifi(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/commands",
		`{"device_id": "collar-001", "sound": true, "wifi_ssid": "barn-net", "wifi_password": "s3cret"}`)

	require.NoError(t, controller.EnqueueCommands(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	commands, ok := body["commands"].([]any)
	require.True(t, ok)
	require.Len(t, commands, 2, "control flags and wifi credentials become separate commands")

	types := make(map[string]bool)
	for _, raw := range commands {
		cmd := raw.(map[string]any)
		types[cmd["command_type"].(string)] = true
	}
	assert.True(t, types[datastore.CommandTypeControl])
	assert.True(t, types[datastore.CommandTypeWifiUpdate])

	pending, err := ds.PendingCommands("collar-001", time.Now())
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestEnqueueCommands_EmptyPayloadIs400(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/commands", `{"device_id": "collar-001"}`)
	require.NoError(t, controller.EnqueueCommands(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/commands", `{"sound": true}`)
	require.NoError(t, controller.EnqueueCommands(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "device_id is required")
}

func TestPollCommands_ReturnsPayload(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, _ := newJSONContext(e, http.MethodPost, "/api/v2/commands",
		`{"device_id": "collar-001", "lights": false}`)
	require.NoError(t, controller.EnqueueCommands(ctx))

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/commands?device_id=collar-001", "")
	require.NoError(t, controller.PollCommands(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	var pending []pendingCommand
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, datastore.CommandTypeControl, pending[0].CommandType)

	var payload struct {
		Lights *bool `json:"lights"`
	}
	require.NoError(t, json.Unmarshal(pending[0].Payload, &payload))
	require.NotNil(t, payload.Lights)
	assert.False(t, *payload.Lights)
}

func TestPollCommands_RequiresDeviceID(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/commands", "")
	require.NoError(t, controller.PollCommands(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAckCommand_IdempotentSecondAck(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/commands",
		`{"device_id": "collar-001", "sound": true}`)
	require.NoError(t, controller.EnqueueCommands(ctx))
	body := decodeBody(t, rec)
	commands := body["commands"].([]any)
	id := commands[0].(map[string]any)["id"].(float64)

	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/commands/1/ack", `{"status": "done"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues(strconv.FormatUint(uint64(id), 10))
	require.NoError(t, controller.AckCommand(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["applied"])

	// The repeated ack succeeds without applying anything.
	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/commands/1/ack", `{"status": "done"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues(strconv.FormatUint(uint64(id), 10))
	require.NoError(t, controller.AckCommand(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["applied"])
}

func TestAckCommand_UnknownIDIs404(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/commands/999/ack", `{"status": "done"}`)
	ctx.SetParamNames("id")
	ctx.SetParamValues("999")
	require.NoError(t, controller.AckCommand(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
