package events

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/herdtrack/herdtrack-go/internal/logging"
)

// EventBus provides asynchronous event processing with non-blocking guarantees
type EventBus struct {
	// Channels for events
	eventChan    chan ErrorEvent
	locationChan chan LocationEvent

	// Configuration
	bufferSize int
	workers    int

	// State management
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	initialized atomic.Bool
	running     atomic.Bool
	mu          sync.Mutex

	// Consumers
	consumers     []EventConsumer
	consumerCount atomic.Int32

	// Deduplication for error events
	deduplicator *ErrorDeduplicator

	// Metrics
	stats EventBusStats

	// Logging
	logger *slog.Logger
}

// Global event bus instance (lazily initialized)
var (
	globalEventBus *EventBus
	globalMutex    sync.Mutex
)

// DefaultConfig returns the default event bus configuration
func DefaultConfig() *Config {
	return &Config{
		BufferSize: 10000,
		Workers:    4,
		Enabled:    true,
	}
}

// Config holds event bus configuration
type Config struct {
	BufferSize    int
	Workers       int
	Enabled       bool
	Deduplication *DeduplicationConfig
}

// Initialize creates or returns the global event bus instance
func Initialize(config *Config) (*EventBus, error) {
	globalMutex.Lock()
	defer globalMutex.Unlock()

	// Return existing instance if already initialized
	if globalEventBus != nil {
		return globalEventBus, nil
	}

	// Use default config if none provided
	if config == nil {
		config = DefaultConfig()
	}

	// Skip initialization if disabled
	if !config.Enabled {
		return nil, nil
	}

	// Create new event bus
	ctx, cancel := context.WithCancel(context.Background())

	logger := logging.ForService("events")

	eb := &EventBus{
		eventChan:    make(chan ErrorEvent, config.BufferSize),
		locationChan: make(chan LocationEvent, config.BufferSize),
		bufferSize:   config.BufferSize,
		workers:      config.Workers,
		ctx:          ctx,
		cancel:       cancel,
		consumers:    make([]EventConsumer, 0),
		deduplicator: NewErrorDeduplicator(config.Deduplication, logger),
		logger:       logger,
	}

	// Mark as initialized
	eb.initialized.Store(true)

	// Store global instance
	globalEventBus = eb

	eb.logger.Info("event bus initialized",
		"buffer_size", config.BufferSize,
		"workers", config.Workers,
	)

	return eb, nil
}

// GetEventBus returns the global event bus instance
func GetEventBus() *EventBus {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalEventBus
}

// IsInitialized returns true if the event bus has been initialized
func IsInitialized() bool {
	globalMutex.Lock()
	defer globalMutex.Unlock()
	return globalEventBus != nil && globalEventBus.initialized.Load()
}

// HasActiveConsumers returns true if the global bus exists and has at least
// one registered consumer. Publishers use this as a cheap gate before
// constructing events.
func HasActiveConsumers() bool {
	globalMutex.Lock()
	eb := globalEventBus
	globalMutex.Unlock()

	return eb != nil && eb.consumerCount.Load() > 0
}

// ResetForTesting tears down the global event bus so tests can initialize a
// fresh instance. Not safe for concurrent use with publishers.
func ResetForTesting() {
	globalMutex.Lock()
	eb := globalEventBus
	globalEventBus = nil
	globalMutex.Unlock()

	if eb != nil {
		_ = eb.Shutdown(time.Second)
	}
}

// RegisterConsumer adds a new event consumer
func (eb *EventBus) RegisterConsumer(consumer EventConsumer) error {
	if eb == nil {
		return fmt.Errorf("event bus not initialized")
	}

	eb.mu.Lock()
	defer eb.mu.Unlock()

	// Check for duplicate
	for _, existing := range eb.consumers {
		if existing.Name() == consumer.Name() {
			return fmt.Errorf("consumer %s already registered", consumer.Name())
		}
	}

	eb.consumers = append(eb.consumers, consumer)
	eb.consumerCount.Store(int32(len(eb.consumers)))

	eb.logger.Info("registered event consumer",
		"consumer", consumer.Name(),
		"supports_batching", consumer.SupportsBatching(),
	)

	// Start workers if this is the first consumer and not already running
	if len(eb.consumers) == 1 && !eb.running.Load() {
		eb.start()
	}

	return nil
}

// TryPublish attempts to publish an error event without blocking.
// Returns true if the event was accepted, false if suppressed or dropped.
func (eb *EventBus) TryPublish(event ErrorEvent) bool {
	if eb == nil || !eb.initialized.Load() || !eb.running.Load() {
		return false
	}

	// Fast path - check if we have consumers
	if eb.consumerCount.Load() == 0 {
		atomic.AddUint64(&eb.stats.FastPathHits, 1)
		return false
	}

	// Suppress repeats of the same error within the deduplication window
	if !eb.deduplicator.ShouldProcess(event) {
		atomic.AddUint64(&eb.stats.EventsSuppressed, 1)
		return false
	}

	// Non-blocking send
	select {
	case eb.eventChan <- event:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		// Channel full, drop the event
		atomic.AddUint64(&eb.stats.EventsDropped, 1)

		// Log at debug level to avoid spam
		if eb.logger != nil {
			eb.logger.Debug("event dropped due to full buffer",
				"component", event.GetComponent(),
				"category", event.GetCategory(),
			)
		}
		return false
	}
}

// TryPublishLocation attempts to publish a location event without blocking.
// Delivery is at most once per consumer; a full buffer drops the event.
func (eb *EventBus) TryPublishLocation(event LocationEvent) bool {
	if eb == nil || !eb.initialized.Load() || !eb.running.Load() {
		return false
	}

	if eb.consumerCount.Load() == 0 {
		atomic.AddUint64(&eb.stats.FastPathHits, 1)
		return false
	}

	select {
	case eb.locationChan <- event:
		atomic.AddUint64(&eb.stats.EventsReceived, 1)
		return true
	default:
		atomic.AddUint64(&eb.stats.EventsDropped, 1)
		if eb.logger != nil {
			eb.logger.Debug("location event dropped due to full buffer",
				"animal_id", event.GetAnimalID(),
				"collar_id", event.GetCollarID(),
			)
		}
		return false
	}
}

// start begins the worker goroutines
func (eb *EventBus) start() {
	if eb.running.Swap(true) {
		return // Already running
	}

	eb.logger.Info("starting event bus workers", "count", eb.workers)

	// Start worker goroutines
	for i := 0; i < eb.workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}
}

// worker processes events from the channels
func (eb *EventBus) worker(id int) {
	defer eb.wg.Done()

	logger := eb.logger.With("worker_id", id)
	logger.Debug("worker started")

	for {
		select {
		case <-eb.ctx.Done():
			logger.Debug("worker stopping due to context cancellation")
			return

		case event, ok := <-eb.eventChan:
			if !ok {
				logger.Debug("worker stopping due to channel closure")
				return
			}

			eb.processEvent(event, logger)

		case event, ok := <-eb.locationChan:
			if !ok {
				logger.Debug("worker stopping due to channel closure")
				return
			}

			eb.processLocationEvent(event, logger)
		}
	}
}

// snapshotConsumers copies the consumer list under the lock
func (eb *EventBus) snapshotConsumers() []EventConsumer {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	consumers := make([]EventConsumer, len(eb.consumers))
	copy(consumers, eb.consumers)
	return consumers
}

// processEvent sends the event to all registered consumers
func (eb *EventBus) processEvent(event ErrorEvent, logger *slog.Logger) {
	for _, consumer := range eb.snapshotConsumers() {
		// Process in a recovery wrapper to prevent panics
		func() {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
					logger.Error("consumer panicked",
						"consumer", consumer.Name(),
						"panic", r,
						"component", event.GetComponent(),
						"category", event.GetCategory(),
					)
				}
			}()

			err := consumer.ProcessEvent(event)
			if err != nil {
				atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
				logger.Error("consumer error",
					"consumer", consumer.Name(),
					"error", err,
					"component", event.GetComponent(),
					"category", event.GetCategory(),
				)
			} else {
				atomic.AddUint64(&eb.stats.EventsProcessed, 1)
			}
		}()
	}
}

// processLocationEvent sends the event to consumers that handle location events
func (eb *EventBus) processLocationEvent(event LocationEvent, logger *slog.Logger) {
	for _, consumer := range eb.snapshotConsumers() {
		locationConsumer, ok := consumer.(LocationEventConsumer)
		if !ok {
			continue
		}

		func() {
			defer func() {
				if r := recover(); r != nil {
					atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
					logger.Error("consumer panicked",
						"consumer", consumer.Name(),
						"panic", r,
						"animal_id", event.GetAnimalID(),
					)
				}
			}()

			err := locationConsumer.ProcessLocationEvent(event)
			if err != nil {
				atomic.AddUint64(&eb.stats.ConsumerErrors, 1)
				logger.Error("consumer error",
					"consumer", consumer.Name(),
					"error", err,
					"animal_id", event.GetAnimalID(),
				)
			} else {
				atomic.AddUint64(&eb.stats.EventsProcessed, 1)
			}
		}()
	}
}

// Shutdown gracefully shuts down the event bus
func (eb *EventBus) Shutdown(timeout time.Duration) error {
	if eb == nil || !eb.initialized.Load() {
		return nil
	}

	eb.logger.Info("shutting down event bus", "timeout", timeout)

	// Stop accepting new events
	eb.running.Store(false)

	// Cancel context to signal workers
	eb.cancel()

	// Wait for workers with timeout
	done := make(chan struct{})
	go func() {
		eb.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		eb.logger.Info("event bus shutdown complete")
	case <-time.After(timeout):
		eb.logger.Warn("event bus shutdown timeout exceeded")
		err = fmt.Errorf("shutdown timeout exceeded")
	}

	eb.deduplicator.Shutdown()
	return err
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	if eb == nil {
		return EventBusStats{}
	}

	return EventBusStats{
		EventsReceived:   atomic.LoadUint64(&eb.stats.EventsReceived),
		EventsSuppressed: atomic.LoadUint64(&eb.stats.EventsSuppressed),
		EventsProcessed:  atomic.LoadUint64(&eb.stats.EventsProcessed),
		EventsDropped:    atomic.LoadUint64(&eb.stats.EventsDropped),
		ConsumerErrors:   atomic.LoadUint64(&eb.stats.ConsumerErrors),
		FastPathHits:     atomic.LoadUint64(&eb.stats.FastPathHits),
	}
}
