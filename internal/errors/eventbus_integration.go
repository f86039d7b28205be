// Package errors - event bus integration
package errors

import (
	"sync/atomic"
)

// EventPublisher is an interface for publishing error events
// This interface allows the errors package to publish events without
// importing the events package, avoiding circular dependencies
type EventPublisher interface {
	TryPublish(event any) bool
}

// Global event publisher (set by the events package)
var globalEventPublisher atomic.Pointer[EventPublisher]

// SetEventPublisher sets the global event publisher
// This should be called by the events package during initialization
func SetEventPublisher(publisher EventPublisher) {
	if publisher == nil {
		globalEventPublisher.Store(nil)
	} else {
		globalEventPublisher.Store(&publisher)
	}
	updateActiveReporting()
}

// publishToEventBus publishes an error to the event bus if available
func publishToEventBus(ee *EnhancedError) bool {
	// Load the publisher atomically
	publisherPtr := globalEventPublisher.Load()
	if publisherPtr == nil {
		return false
	}

	publisher := *publisherPtr
	if publisher == nil {
		return false
	}

	// The event bus handles type assertion on its side
	return publisher.TryPublish(ee)
}

// reportToTelemetry routes a built error to whichever reporting sinks are
// active. Hooks always run; the event bus is preferred over the synchronous
// telemetry reporter when both are configured.
func reportToTelemetry(ee *EnhancedError) {
	if !hasActiveReporting.Load() {
		return
	}

	runErrorHooks(ee)

	// Event bus available, use async processing
	if publishToEventBus(ee) {
		return
	}

	// Fall back to synchronous reporting
	if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
		reporter.ReportError(ee)
	}
}
