// Package mqtt provides the collar telemetry uplink: a broker client and a
// subscriber that turns incoming location payloads into ingestion reports.
package mqtt

import (
	"context"
	"log/slog"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/logging"
)

// MessageHandler processes one uplink message.
type MessageHandler func(topic string, payload []byte)

// Client defines the interface for MQTT uplink operations.
type Client interface {
	// Connect attempts to connect to the MQTT broker.
	Connect(ctx context.Context) error

	// Subscribe registers a handler for a topic filter. The handler runs on
	// the paho callback goroutine and must not block.
	Subscribe(topic string, handler MessageHandler) error

	// IsConnected returns true if the client is currently connected.
	IsConnected() bool

	// Disconnect closes the connection to the MQTT broker.
	Disconnect()
}

// Config holds the configuration for the MQTT client.
type Config struct {
	Broker            string
	ClientID          string
	Username          string
	Password          string
	ReconnectCooldown time.Duration
	ReconnectDelay    time.Duration
	ConnectTimeout    time.Duration
	SubscribeTimeout  time.Duration
	DisconnectTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable default values
func DefaultConfig() Config {
	return Config{
		ReconnectCooldown: 5 * time.Second,
		ReconnectDelay:    1 * time.Second,
		ConnectTimeout:    30 * time.Second,
		SubscribeTimeout:  10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
	}
}

// Package-level logger for MQTT related events
var mqttLogger *slog.Logger

func init() {
	mqttLogger = logging.ForService("mqtt")
}
