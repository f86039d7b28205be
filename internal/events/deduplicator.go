package events

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"
)

// DeduplicationConfig holds configuration for error deduplication
type DeduplicationConfig struct {
	Enabled         bool
	TTL             time.Duration
	MaxEntries      int
	CleanupInterval time.Duration
}

// DefaultDeduplicationConfig returns default deduplication settings
func DefaultDeduplicationConfig() *DeduplicationConfig {
	return &DeduplicationConfig{
		Enabled:         true,
		TTL:             5 * time.Minute,
		MaxEntries:      10000,
		CleanupInterval: 1 * time.Minute,
	}
}

// ErrorDeduplicator suppresses repeats of the same error within a TTL window
// so a flapping collar or datastore does not flood consumers.
type ErrorDeduplicator struct {
	config *DeduplicationConfig
	mu     sync.Mutex
	cache  map[uint64]*dedupeEntry

	// Metrics
	totalSeen       atomic.Uint64
	totalSuppressed atomic.Uint64

	// Lifecycle
	stopOnce    sync.Once
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	logger      *slog.Logger
}

// dedupeEntry tracks an error occurrence
type dedupeEntry struct {
	firstSeen  time.Time
	lastSeen   time.Time
	count      int64
	suppressed int64
}

// NewErrorDeduplicator creates a new error deduplicator
func NewErrorDeduplicator(config *DeduplicationConfig, logger *slog.Logger) *ErrorDeduplicator {
	if config == nil {
		config = DefaultDeduplicationConfig()
	}

	ed := &ErrorDeduplicator{
		config:      config,
		cache:       make(map[uint64]*dedupeEntry),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
		logger:      logger,
	}

	// Start cleanup goroutine if enabled
	if config.Enabled && config.CleanupInterval > 0 {
		go ed.cleanupLoop()
	}

	return ed
}

// ShouldProcess checks if an error should be processed or suppressed.
// The first occurrence within the TTL window passes, repeats are suppressed.
func (ed *ErrorDeduplicator) ShouldProcess(event ErrorEvent) bool {
	if ed == nil || !ed.config.Enabled {
		return true
	}

	ed.totalSeen.Add(1)
	hash := ed.calculateHash(event)
	now := time.Now()

	ed.mu.Lock()
	defer ed.mu.Unlock()

	entry, exists := ed.cache[hash]
	if exists {
		if now.Sub(entry.lastSeen) <= ed.config.TTL {
			// Duplicate within TTL window
			entry.lastSeen = now
			entry.count++
			entry.suppressed++
			ed.totalSuppressed.Add(1)

			// Log periodically (every 10 suppressions)
			if entry.suppressed%10 == 0 && ed.logger != nil {
				ed.logger.Debug("suppressing duplicate error",
					"component", event.GetComponent(),
					"category", event.GetCategory(),
					"count", entry.count,
					"suppressed", entry.suppressed,
					"first_seen", entry.firstSeen,
				)
			}
			return false
		}

		// Expired, reset the entry
		entry.firstSeen = now
		entry.lastSeen = now
		entry.count = 1
		entry.suppressed = 0
		return true
	}

	// New error, add to cache
	if len(ed.cache) >= ed.config.MaxEntries {
		ed.evictOldest()
	}
	ed.cache[hash] = &dedupeEntry{
		firstSeen: now,
		lastSeen:  now,
		count:     1,
	}
	return true
}

// calculateHash derives a stable key from the fields that identify an error.
// Timestamps and changing counters are deliberately excluded.
func (ed *ErrorDeduplicator) calculateHash(event ErrorEvent) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(event.GetComponent()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(event.GetCategory()))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(event.GetMessage()))

	if ctx := event.GetContext(); ctx != nil {
		if op, ok := ctx["operation"].(string); ok {
			_, _ = h.Write([]byte{0})
			_, _ = h.Write([]byte(op))
		}
	}

	return h.Sum64()
}

// evictOldest removes the entry with the oldest lastSeen. Caller holds the lock.
func (ed *ErrorDeduplicator) evictOldest() {
	var oldestHash uint64
	var oldestTime time.Time
	first := true

	for hash, entry := range ed.cache {
		if first || entry.lastSeen.Before(oldestTime) {
			oldestHash = hash
			oldestTime = entry.lastSeen
			first = false
		}
	}

	if !first {
		delete(ed.cache, oldestHash)
	}
}

// cleanupLoop periodically removes expired entries
func (ed *ErrorDeduplicator) cleanupLoop() {
	ticker := time.NewTicker(ed.config.CleanupInterval)
	defer ticker.Stop()
	defer close(ed.cleanupDone)

	for {
		select {
		case <-ticker.C:
			ed.cleanup()
		case <-ed.stopCleanup:
			return
		}
	}
}

// cleanup removes expired entries
func (ed *ErrorDeduplicator) cleanup() {
	now := time.Now()

	ed.mu.Lock()
	expired := 0
	for hash, entry := range ed.cache {
		if now.Sub(entry.lastSeen) > ed.config.TTL {
			delete(ed.cache, hash)
			expired++
		}
	}
	remaining := len(ed.cache)
	ed.mu.Unlock()

	if expired > 0 && ed.logger != nil {
		ed.logger.Debug("cleaned up expired deduplication entries",
			"expired", expired,
			"remaining", remaining,
		)
	}
}

// GetStats returns deduplication statistics
func (ed *ErrorDeduplicator) GetStats() DeduplicationStats {
	if ed == nil {
		return DeduplicationStats{}
	}

	ed.mu.Lock()
	cacheSize := len(ed.cache)
	ed.mu.Unlock()

	return DeduplicationStats{
		TotalSeen:       ed.totalSeen.Load(),
		TotalSuppressed: ed.totalSuppressed.Load(),
		CacheSize:       cacheSize,
	}
}

// Shutdown stops the deduplicator
func (ed *ErrorDeduplicator) Shutdown() {
	if ed == nil {
		return
	}

	// Only wait for cleanup if it was started
	if ed.config.Enabled && ed.config.CleanupInterval > 0 {
		ed.stopOnce.Do(func() {
			close(ed.stopCleanup)
		})
		<-ed.cleanupDone
	}
}

// DeduplicationStats contains deduplication metrics
type DeduplicationStats struct {
	TotalSeen       uint64
	TotalSuppressed uint64
	CacheSize       int
}
