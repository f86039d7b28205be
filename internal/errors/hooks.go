// Package errors - error hooks and fast-path reporting gate
package errors

import (
	"sync"
	"sync/atomic"
)

// ErrorHook is a function called for every enhanced error built while any
// reporting sink (telemetry, event bus, hooks) is active.
type ErrorHook func(ee *EnhancedError)

var (
	errorHooks   []ErrorHook
	errorHooksMu sync.RWMutex

	// hasActiveReporting gates the expensive Build path. It is true when a
	// telemetry reporter, event publisher, or at least one hook is registered.
	hasActiveReporting atomic.Bool
)

// AddErrorHook registers a hook invoked for every error built.
func AddErrorHook(hook ErrorHook) {
	if hook == nil {
		return
	}
	errorHooksMu.Lock()
	errorHooks = append(errorHooks, hook)
	errorHooksMu.Unlock()
	updateActiveReporting()
}

// ClearErrorHooks removes all registered hooks. Intended for tests.
func ClearErrorHooks() {
	errorHooksMu.Lock()
	errorHooks = nil
	errorHooksMu.Unlock()
	updateActiveReporting()
}

// runErrorHooks invokes all registered hooks for the given error.
func runErrorHooks(ee *EnhancedError) {
	errorHooksMu.RLock()
	hooks := errorHooks
	errorHooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ee)
	}
}

// updateActiveReporting recomputes the fast-path gate after registration
// changes in any of the reporting sinks.
func updateActiveReporting() {
	errorHooksMu.RLock()
	hookCount := len(errorHooks)
	errorHooksMu.RUnlock()

	active := hookCount > 0
	if !active {
		if reporter := GetTelemetryReporter(); reporter != nil && reporter.IsEnabled() {
			active = true
		}
	}
	if !active && globalEventPublisher.Load() != nil {
		active = true
	}
	hasActiveReporting.Store(active)
}
