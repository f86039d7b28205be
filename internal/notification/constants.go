package notification

import "time"

const (
	// DefaultMaxNotifications caps the in-memory store size
	DefaultMaxNotifications = 1000

	// DefaultCleanupInterval is how often expired notifications are removed
	DefaultCleanupInterval = 5 * time.Minute

	// DefaultRateLimitMaxEvents is the default number of notifications
	// allowed per minute
	DefaultRateLimitMaxEvents = 100

	// DefaultChannelBufferSize is the per-subscriber channel buffer
	DefaultChannelBufferSize = 64

	// defaultPushTimeout bounds a single push provider delivery
	defaultPushTimeout = 30 * time.Second
)
