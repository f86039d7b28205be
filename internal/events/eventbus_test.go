package events

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockErrorEvent implements ErrorEvent for testing
type mockErrorEvent struct {
	component string
	category  string
	message   string
	context   map[string]any
	timestamp time.Time
	reported  atomic.Bool
}

func (m *mockErrorEvent) GetComponent() string       { return m.component }
func (m *mockErrorEvent) GetCategory() string        { return m.category }
func (m *mockErrorEvent) GetContext() map[string]any { return m.context }
func (m *mockErrorEvent) GetTimestamp() time.Time    { return m.timestamp }
func (m *mockErrorEvent) GetError() error            { return nil }
func (m *mockErrorEvent) GetMessage() string         { return m.message }
func (m *mockErrorEvent) IsReported() bool           { return m.reported.Load() }
func (m *mockErrorEvent) MarkReported()              { m.reported.Store(true) }

// mockConsumer implements EventConsumer for testing
type mockConsumer struct {
	name           string
	processedCount atomic.Int32
	errorOnProcess bool
	supportsBatch  bool
	processDelay   time.Duration
	mu             sync.Mutex
	events         []ErrorEvent
}

func (m *mockConsumer) Name() string { return m.name }

func (m *mockConsumer) ProcessEvent(event ErrorEvent) error {
	if m.processDelay > 0 {
		time.Sleep(m.processDelay)
	}

	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()

	m.processedCount.Add(1)

	if m.errorOnProcess {
		return fmt.Errorf("mock error")
	}
	return nil
}

func (m *mockConsumer) ProcessBatch(events []ErrorEvent) error {
	for _, event := range events {
		if err := m.ProcessEvent(event); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockConsumer) SupportsBatching() bool { return m.supportsBatch }

func (m *mockConsumer) GetProcessedCount() int32 {
	return m.processedCount.Load()
}

// mockLocationConsumer also implements LocationEventConsumer
type mockLocationConsumer struct {
	mockConsumer
	locationCount atomic.Int32
	locMu         sync.Mutex
	locations     []LocationEvent
}

func (m *mockLocationConsumer) ProcessLocationEvent(event LocationEvent) error {
	m.locMu.Lock()
	m.locations = append(m.locations, event)
	m.locMu.Unlock()

	m.locationCount.Add(1)

	if m.errorOnProcess {
		return fmt.Errorf("mock location error")
	}
	return nil
}

// newTestEventBus initializes a fresh global bus for a test and arranges teardown
func newTestEventBus(t *testing.T, config *Config) *EventBus {
	t.Helper()

	ResetForTesting()
	t.Cleanup(ResetForTesting)

	eb, err := Initialize(config)
	require.NoError(t, err)
	require.NotNil(t, eb)
	return eb
}

// waitFor polls until the condition holds or the deadline passes
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestInitialize(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	eb, err := Initialize(nil)
	require.NoError(t, err)
	require.NotNil(t, eb)
	assert.True(t, IsInitialized())
	assert.Equal(t, 10000, eb.bufferSize)
	assert.Equal(t, 4, eb.workers)

	// Second call returns the same instance
	eb2, err := Initialize(nil)
	require.NoError(t, err)
	assert.Same(t, eb, eb2)
}

func TestInitializeDisabled(t *testing.T) {
	ResetForTesting()
	t.Cleanup(ResetForTesting)

	eb, err := Initialize(&Config{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, eb)
	assert.False(t, IsInitialized())
}

func TestTryPublishWithoutConsumers(t *testing.T) {
	eb := newTestEventBus(t, nil)

	// No consumers registered, publish takes the fast path
	accepted := eb.TryPublish(&mockErrorEvent{component: "ingest", category: "database"})
	assert.False(t, accepted)
	assert.False(t, HasActiveConsumers())
}

func TestPublishAndConsume(t *testing.T) {
	eb := newTestEventBus(t, nil)

	consumer := &mockConsumer{name: "test-consumer"}
	require.NoError(t, eb.RegisterConsumer(consumer))
	assert.True(t, HasActiveConsumers())

	event := &mockErrorEvent{
		component: "ingest",
		category:  "database",
		message:   "history insert failed",
		timestamp: time.Now(),
	}
	assert.True(t, eb.TryPublish(event))

	waitFor(t, time.Second, func() bool {
		return consumer.GetProcessedCount() == 1
	})

	stats := eb.GetStats()
	assert.Equal(t, uint64(1), stats.EventsReceived)
	assert.Equal(t, uint64(1), stats.EventsProcessed)
}

func TestDuplicateConsumerRejected(t *testing.T) {
	eb := newTestEventBus(t, nil)

	require.NoError(t, eb.RegisterConsumer(&mockConsumer{name: "dup"}))
	err := eb.RegisterConsumer(&mockConsumer{name: "dup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestConsumerErrorDoesNotStopProcessing(t *testing.T) {
	eb := newTestEventBus(t, nil)

	failing := &mockConsumer{name: "failing", errorOnProcess: true}
	healthy := &mockConsumer{name: "healthy"}
	require.NoError(t, eb.RegisterConsumer(failing))
	require.NoError(t, eb.RegisterConsumer(healthy))

	// Distinct messages so deduplication does not suppress them
	for i := 0; i < 3; i++ {
		assert.True(t, eb.TryPublish(&mockErrorEvent{
			component: "dispatch",
			category:  "database",
			message:   fmt.Sprintf("failure %d", i),
		}))
	}

	waitFor(t, time.Second, func() bool {
		return failing.GetProcessedCount() == 3 && healthy.GetProcessedCount() == 3
	})

	stats := eb.GetStats()
	assert.Equal(t, uint64(3), stats.ConsumerErrors)
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	eb := newTestEventBus(t, &Config{
		BufferSize: 1,
		Workers:    1,
		Enabled:    true,
		// Disable dedup so every event reaches the channel
		Deduplication: &DeduplicationConfig{Enabled: false},
	})

	// Slow consumer keeps the single-slot buffer occupied
	slow := &mockConsumer{name: "slow", processDelay: 200 * time.Millisecond}
	require.NoError(t, eb.RegisterConsumer(slow))

	dropped := 0
	for i := 0; i < 50; i++ {
		if !eb.TryPublish(&mockErrorEvent{
			component: "ingest",
			category:  "database",
			message:   fmt.Sprintf("event %d", i),
		}) {
			dropped++
		}
	}

	// With a slow consumer and a single-slot buffer the publisher must drop
	// events instead of blocking
	assert.Positive(t, dropped)
	assert.Positive(t, eb.GetStats().EventsDropped)
}

func TestDeduplicationSuppressesRepeats(t *testing.T) {
	eb := newTestEventBus(t, nil)

	consumer := &mockConsumer{name: "dedup-consumer"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	event := func() *mockErrorEvent {
		return &mockErrorEvent{
			component: "mqtt",
			category:  "mqtt-connection",
			message:   "connection lost to broker",
		}
	}

	assert.True(t, eb.TryPublish(event()))
	assert.False(t, eb.TryPublish(event()))
	assert.False(t, eb.TryPublish(event()))

	waitFor(t, time.Second, func() bool {
		return consumer.GetProcessedCount() == 1
	})

	stats := eb.GetStats()
	assert.Equal(t, uint64(2), stats.EventsSuppressed)
}

func TestPublishLocationEvent(t *testing.T) {
	eb := newTestEventBus(t, nil)

	locConsumer := &mockLocationConsumer{mockConsumer: mockConsumer{name: "live"}}
	plainConsumer := &mockConsumer{name: "plain"}
	require.NoError(t, eb.RegisterConsumer(locConsumer))
	require.NoError(t, eb.RegisterConsumer(plainConsumer))

	event, err := NewLocationEvent(7, "COLLAR-0007", 61.5, 23.8, time.Now(), 88)
	require.NoError(t, err)

	assert.True(t, eb.TryPublishLocation(event))

	waitFor(t, time.Second, func() bool {
		return locConsumer.locationCount.Load() == 1
	})

	// The plain consumer never sees location events
	assert.Equal(t, int32(0), plainConsumer.GetProcessedCount())

	locConsumer.locMu.Lock()
	defer locConsumer.locMu.Unlock()
	require.Len(t, locConsumer.locations, 1)
	assert.Equal(t, uint(7), locConsumer.locations[0].GetAnimalID())
	assert.Equal(t, "COLLAR-0007", locConsumer.locations[0].GetCollarID())
}

func TestShutdown(t *testing.T) {
	eb := newTestEventBus(t, nil)

	consumer := &mockConsumer{name: "shutdown-consumer"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	require.NoError(t, eb.Shutdown(time.Second))

	// After shutdown, publishes are rejected
	assert.False(t, eb.TryPublish(&mockErrorEvent{component: "ingest", message: "late"}))
}

func TestConcurrentPublish(t *testing.T) {
	eb := newTestEventBus(t, &Config{
		BufferSize:    10000,
		Workers:       4,
		Enabled:       true,
		Deduplication: &DeduplicationConfig{Enabled: false},
	})

	consumer := &mockConsumer{name: "concurrent"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	const goroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	var accepted atomic.Int32
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				if eb.TryPublish(&mockErrorEvent{
					component: "ingest",
					category:  "database",
					message:   fmt.Sprintf("g%d-%d", g, i),
				}) {
					accepted.Add(1)
				}
			}
		}(g)
	}
	wg.Wait()

	waitFor(t, 2*time.Second, func() bool {
		return consumer.GetProcessedCount() == accepted.Load()
	})
}

func TestEventPublisherAdapter(t *testing.T) {
	eb := newTestEventBus(t, nil)

	consumer := &mockConsumer{name: "adapter-consumer"}
	require.NoError(t, eb.RegisterConsumer(consumer))

	adapter := NewEventPublisherAdapter(eb)

	// Non-ErrorEvent values are rejected
	assert.False(t, adapter.TryPublish("not an event"))

	assert.True(t, adapter.TryPublish(&mockErrorEvent{
		component: "alerting",
		category:  "notification",
		message:   "push failed",
	}))

	waitFor(t, time.Second, func() bool {
		return consumer.GetProcessedCount() == 1
	})
}
