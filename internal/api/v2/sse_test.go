// sse_test.go: tests for the live stream manager
package api

import (
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtrack/herdtrack-go/internal/events"
)

func newTestClient(id string) *SSEClient {
	return &SSEClient{
		ID:      id,
		Channel: make(chan LiveUpdate, 10),
		Done:    make(chan bool),
	}
}

func TestSSEManager_AddRemoveClients(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	first := newTestClient("a")
	second := newTestClient("b")
	m.AddClient(first)
	m.AddClient(second)
	assert.Equal(t, 2, m.GetClientCount())

	m.RemoveClient("a")
	assert.Equal(t, 1, m.GetClientCount())

	select {
	case <-first.Done:
	default:
		t.Fatal("removed client should have its Done channel closed")
	}

	// Removing twice is harmless.
	m.RemoveClient("a")
	assert.Equal(t, 1, m.GetClientCount())
}

func TestSSEManager_BroadcastReachesAllClients(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	first := newTestClient("a")
	second := newTestClient("b")
	m.AddClient(first)
	m.AddClient(second)

	update := &LiveUpdate{AnimalID: 7, CollarID: "collar-007", Latitude: 61.5, Longitude: 23.8}
	m.Broadcast(update)

	for _, client := range []*SSEClient{first, second} {
		select {
		case got := <-client.Channel:
			assert.Equal(t, uint(7), got.AnimalID)
			assert.Equal(t, "collar-007", got.CollarID)
		case <-time.After(time.Second):
			t.Fatalf("client %s did not receive the broadcast", client.ID)
		}
	}
}

func TestSSEManager_BroadcastWithoutClients(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	// Must not block or panic.
	m.Broadcast(&LiveUpdate{AnimalID: 1})
}

func TestSSEManager_ProcessLocationEvent(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	client := newTestClient("a")
	m.AddClient(client)

	event, err := events.NewLocationEvent(7, "collar-007", 61.5, 23.8, time.Now(), 88)
	require.NoError(t, err)

	require.NoError(t, m.ProcessLocationEvent(event))

	select {
	case got := <-client.Channel:
		assert.Equal(t, uint(7), got.AnimalID)
		assert.InDelta(t, 88, got.Battery, 1e-9)
	case <-time.After(time.Second):
		t.Fatal("location event was not fanned out")
	}
}

func TestSSEManager_IgnoresErrorEvents(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	assert.Equal(t, "sse-live", m.Name())
	assert.False(t, m.SupportsBatching())
	assert.NoError(t, m.ProcessEvent(nil))
	assert.NoError(t, m.ProcessBatch(nil))
}

func TestSSEManager_Shutdown(t *testing.T) {
	t.Parallel()
	m := NewSSEManager(log.Default())

	client := newTestClient("a")
	m.AddClient(client)

	m.Shutdown()
	assert.Equal(t, 0, m.GetClientCount())

	select {
	case <-client.Done:
	default:
		t.Fatal("shutdown should close client Done channels")
	}
}
