package mqtt

import (
	"context"
	"testing"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient captures subscriptions so tests can inject messages without a
// broker.
type fakeClient struct {
	connected bool
	topic     string
	handler   MessageHandler
}

func (f *fakeClient) Connect(ctx context.Context) error { f.connected = true; return nil }
func (f *fakeClient) IsConnected() bool                 { return f.connected }
func (f *fakeClient) Disconnect()                       { f.connected = false }

func (f *fakeClient) Subscribe(topic string, handler MessageHandler) error {
	f.topic = topic
	f.handler = handler
	return nil
}

func createTestUplink(t *testing.T) (*Uplink, *fakeClient, datastore.Interface) {
	t.Helper()

	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.MQTT.Enabled = true
	settings.MQTT.Broker = "tcp://localhost:1883"
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = t.TempDir() + "/test.db"

	ds := datastore.New(settings)
	require.NoError(t, ds.Open(), "Failed to open database")
	t.Cleanup(func() {
		assert.NoError(t, ds.Close(), "Failed to close datastore")
	})

	client := &fakeClient{}
	uplink := NewUplink(settings, client, ingest.New(settings, ds, nil), nil)
	return uplink, client, ds
}

func TestUplink_StartSubscribesDefaultTopic(t *testing.T) {
	t.Parallel()
	uplink, client, _ := createTestUplink(t)

	require.NoError(t, uplink.Start(context.Background()))
	assert.True(t, client.connected)
	assert.Equal(t, "herdtrack/+/location", client.topic)

	uplink.Stop()
	assert.False(t, client.connected)
}

func TestUplink_MessageIngestsWithTopicCollar(t *testing.T) {
	t.Parallel()
	uplink, client, ds := createTestUplink(t)
	require.NoError(t, uplink.Start(context.Background()))

	client.handler("herdtrack/collar-042/location",
		[]byte(`{"latitude": 61.5, "longitude": 23.8, "battery_level": 80}`))

	// Unattributed collar reports land on the sentinel current position.
	position, err := ds.GetCurrentPosition(datastore.SentinelEntityID)
	require.NoError(t, err)
	assert.Equal(t, "collar-042", position.CollarID)
	assert.InDelta(t, 61.5, position.Latitude, 1e-9)
}

func TestUplink_MessageResolvesKnownCollar(t *testing.T) {
	t.Parallel()
	uplink, client, ds := createTestUplink(t)
	require.NoError(t, uplink.Start(context.Background()))

	require.NoError(t, ds.CreateAnimal(&datastore.Animal{
		ID: 9, FarmID: 1, Name: "Daisy", CollarID: "collar-009",
	}))

	client.handler("herdtrack/collar-009/location",
		[]byte(`{"latitude": 61.5, "longitude": 23.8}`))

	position, err := ds.GetCurrentPosition(9)
	require.NoError(t, err)
	assert.Equal(t, "collar-009", position.CollarID)

	history, err := ds.GetTrackHistory(9, 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1, "attributed uplink reports reach history")
}

func TestUplink_MalformedPayloadDropped(t *testing.T) {
	t.Parallel()
	uplink, client, ds := createTestUplink(t)
	require.NoError(t, uplink.Start(context.Background()))

	client.handler("herdtrack/collar-042/location", []byte(`{not json`))
	client.handler("herdtrack/collar-042/location", []byte(`{"unknown_field": 1}`))

	_, err := ds.GetCurrentPosition(datastore.SentinelEntityID)
	assert.Error(t, err, "malformed payloads never reach the store")
}

func TestCollarFromTopic(t *testing.T) {
	t.Parallel()

	tests := []struct {
		topic string
		want  string
	}{
		{"herdtrack/collar-001/location", "collar-001"},
		{"herdtrack/abc/location/extra", ""},
		{"herdtrack/collar-001/status", ""},
		{"garbage", ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, collarFromTopic(tc.topic), "topic %q", tc.topic)
	}
}

func TestNewClient_RequiresBroker(t *testing.T) {
	t.Parallel()

	settings := &conf.Settings{}
	_, err := NewClient(settings, nil)
	assert.Error(t, err)

	settings.MQTT.Broker = "tcp://localhost:1883"
	c, err := NewClient(settings, nil)
	require.NoError(t, err)
	assert.False(t, c.IsConnected())
}
