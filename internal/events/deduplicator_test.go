package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/herdtrack/herdtrack-go/internal/logging"
)

// TestDeduplicatorBasic tests basic deduplication functionality
func TestDeduplicatorBasic(t *testing.T) {
	t.Parallel()

	config := &DeduplicationConfig{
		Enabled:         true,
		TTL:             500 * time.Millisecond,
		MaxEntries:      100,
		CleanupInterval: 0, // Disable automatic cleanup for test
	}

	dedup := NewErrorDeduplicator(config, logging.ForService("events-test"))
	t.Cleanup(dedup.Shutdown)

	event := &mockErrorEvent{
		component: "ingest",
		category:  "database",
		message:   "history insert failed",
		timestamp: time.Now(),
		context: map[string]any{
			"operation": "history_insert",
		},
	}

	// First occurrence should be processed
	assert.True(t, dedup.ShouldProcess(event), "first occurrence should be processed")

	// Immediate duplicate should be suppressed
	assert.False(t, dedup.ShouldProcess(event), "immediate duplicate should be suppressed")

	// Check stats
	stats := dedup.GetStats()
	assert.Equal(t, uint64(2), stats.TotalSeen)
	assert.Equal(t, uint64(1), stats.TotalSuppressed)
	assert.Equal(t, 1, stats.CacheSize)

	// Wait for TTL to expire
	time.Sleep(600 * time.Millisecond)

	// Same error after TTL should be processed
	assert.True(t, dedup.ShouldProcess(event), "error after TTL expiration should be processed")
}

// TestDeduplicatorDifferentErrors tests that different errors are not deduplicated
func TestDeduplicatorDifferentErrors(t *testing.T) {
	t.Parallel()

	dedup := NewErrorDeduplicator(nil, logging.ForService("events-test"))
	t.Cleanup(dedup.Shutdown)

	base := func(component, category, message string) *mockErrorEvent {
		return &mockErrorEvent{component: component, category: category, message: message}
	}

	assert.True(t, dedup.ShouldProcess(base("ingest", "database", "insert failed")))
	assert.True(t, dedup.ShouldProcess(base("dispatch", "database", "insert failed")), "different component is a different error")
	assert.True(t, dedup.ShouldProcess(base("ingest", "validation", "insert failed")), "different category is a different error")
	assert.True(t, dedup.ShouldProcess(base("ingest", "database", "upsert failed")), "different message is a different error")

	stats := dedup.GetStats()
	assert.Equal(t, uint64(0), stats.TotalSuppressed)
	assert.Equal(t, 4, stats.CacheSize)
}

// TestDeduplicatorDisabled verifies everything passes when disabled
func TestDeduplicatorDisabled(t *testing.T) {
	t.Parallel()

	config := &DeduplicationConfig{Enabled: false}
	dedup := NewErrorDeduplicator(config, logging.ForService("events-test"))
	t.Cleanup(dedup.Shutdown)

	event := &mockErrorEvent{component: "mqtt", category: "mqtt-connection", message: "lost"}
	for i := 0; i < 5; i++ {
		assert.True(t, dedup.ShouldProcess(event))
	}
}

// TestDeduplicatorEviction tests the MaxEntries bound
func TestDeduplicatorEviction(t *testing.T) {
	t.Parallel()

	config := &DeduplicationConfig{
		Enabled:         true,
		TTL:             time.Minute,
		MaxEntries:      10,
		CleanupInterval: 0,
	}
	dedup := NewErrorDeduplicator(config, logging.ForService("events-test"))
	t.Cleanup(dedup.Shutdown)

	for i := 0; i < 25; i++ {
		dedup.ShouldProcess(&mockErrorEvent{
			component: "ingest",
			category:  "database",
			message:   fmt.Sprintf("error %d", i),
		})
	}

	stats := dedup.GetStats()
	assert.LessOrEqual(t, stats.CacheSize, 10, "cache must not exceed MaxEntries")
}

// TestDeduplicatorCleanup tests that the cleanup loop drops expired entries
func TestDeduplicatorCleanup(t *testing.T) {
	t.Parallel()

	config := &DeduplicationConfig{
		Enabled:         true,
		TTL:             100 * time.Millisecond,
		MaxEntries:      100,
		CleanupInterval: 50 * time.Millisecond,
	}
	dedup := NewErrorDeduplicator(config, logging.ForService("events-test"))
	t.Cleanup(dedup.Shutdown)

	for i := 0; i < 5; i++ {
		dedup.ShouldProcess(&mockErrorEvent{
			component: "dispatch",
			category:  "database",
			message:   fmt.Sprintf("error %d", i),
		})
	}
	assert.Equal(t, 5, dedup.GetStats().CacheSize)

	// Wait for TTL plus at least one cleanup cycle
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 0, dedup.GetStats().CacheSize, "expired entries should be cleaned up")
}
