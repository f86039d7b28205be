// internal/api/v2/sse.go
package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/herdtrack/herdtrack-go/internal/events"
)

// sseClientTimeout is how long a broadcast waits on a client channel before
// the client is considered blocked and evicted.
const sseClientTimeout = 3 * time.Second

// sseHeartbeatInterval keeps idle connections alive through proxies.
const sseHeartbeatInterval = 30 * time.Second

// LiveUpdate is the wire shape of one position update on the live stream.
type LiveUpdate struct {
	AnimalID   uint      `json:"animal_id"`
	CollarID   string    `json:"collar_id,omitempty"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	Battery    float64   `json:"battery_level,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// SSEClient represents one connected live-stream consumer.
type SSEClient struct {
	ID       string
	Channel  chan LiveUpdate
	Request  *http.Request
	Response *echo.Response
	Done     chan bool
}

// SSEManager fans live updates out to connected clients. It doubles as an
// event bus consumer so the ingestion pipeline never talks to HTTP directly.
type SSEManager struct {
	clients map[string]*SSEClient
	mutex   sync.RWMutex
	logger  *log.Logger
}

// NewSSEManager creates a new SSE manager.
func NewSSEManager(logger *log.Logger) *SSEManager {
	return &SSEManager{
		clients: make(map[string]*SSEClient),
		logger:  logger,
	}
}

// AddClient registers a new SSE client.
func (m *SSEManager) AddClient(client *SSEClient) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.clients[client.ID] = client
}

// RemoveClient unregisters a client and signals its handler to exit.
func (m *SSEManager) RemoveClient(clientID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if client, exists := m.clients[clientID]; exists {
		close(client.Done)
		delete(m.clients, clientID)
	}
}

// Broadcast sends an update to all connected clients. A client whose channel
// stays blocked past the timeout is evicted rather than allowed to stall the
// stream.
func (m *SSEManager) Broadcast(update *LiveUpdate) {
	m.mutex.RLock()

	if len(m.clients) == 0 {
		m.mutex.RUnlock()
		return
	}

	var blockedClients []string

	for clientID, client := range m.clients {
		select {
		case client.Channel <- *update:
		case <-time.After(sseClientTimeout):
			if m.logger != nil {
				m.logger.Printf("SSE client %s appears blocked, will remove", clientID)
			}
			blockedClients = append(blockedClients, clientID)
		}
	}

	m.mutex.RUnlock()

	// Removal happens outside the read lock to avoid deadlock.
	for _, clientID := range blockedClients {
		go m.RemoveClient(clientID)
	}
}

// GetClientCount returns the number of connected clients
func (m *SSEManager) GetClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// Shutdown disconnects all clients.
func (m *SSEManager) Shutdown() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for clientID, client := range m.clients {
		close(client.Done)
		delete(m.clients, clientID)
	}
}

// Name identifies the manager on the event bus.
func (m *SSEManager) Name() string {
	return "sse-live"
}

// ProcessEvent ignores error events; the live stream only carries positions.
func (m *SSEManager) ProcessEvent(event events.ErrorEvent) error {
	return nil
}

// ProcessBatch ignores error event batches.
func (m *SSEManager) ProcessBatch(errorEvents []events.ErrorEvent) error {
	return nil
}

// SupportsBatching reports that this consumer processes events one at a time.
func (m *SSEManager) SupportsBatching() bool {
	return false
}

// ProcessLocationEvent converts a bus event into a live update and fans it
// out.
func (m *SSEManager) ProcessLocationEvent(event events.LocationEvent) error {
	m.Broadcast(&LiveUpdate{
		AnimalID:   event.GetAnimalID(),
		CollarID:   event.GetCollarID(),
		Latitude:   event.GetLatitude(),
		Longitude:  event.GetLongitude(),
		Battery:    event.GetBattery(),
		RecordedAt: event.GetRecordedAt(),
	})
	return nil
}

// initLiveRoutes registers the live SSE endpoints and hooks the manager into
// the event bus.
func (c *Controller) initLiveRoutes() {
	if c.sseManager == nil {
		c.sseManager = NewSSEManager(c.logger)
	}

	if bus := events.GetEventBus(); bus != nil {
		if err := bus.RegisterConsumer(c.sseManager); err != nil {
			c.logger.Printf("Failed to register SSE manager on event bus: %v", err)
		}
	}

	// Rate limit connection attempts per IP; reconnect storms from flaky
	// mobile clients are common.
	rateLimiterConfig := middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      10,
				ExpiresIn: 1 * time.Minute,
			},
		),
		IdentifierExtractor: middleware.DefaultRateLimiterConfig.IdentifierExtractor,
		ErrorHandler: func(context echo.Context, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Rate limit exceeded for live stream connections",
			})
		},
		DenyHandler: func(context echo.Context, identifier string, err error) error {
			return context.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many live stream connection attempts, please wait before trying again",
			})
		},
	}

	c.Group.GET("/live", c.StreamLive, middleware.RateLimiterWithConfig(rateLimiterConfig))
	c.Group.GET("/live/status", c.GetSSEStatus)
}

// StreamLive handles the SSE connection for real-time position streaming
func (c *Controller) StreamLive(ctx echo.Context) error {
	ctx.Response().Header().Set("Content-Type", "text/event-stream")
	ctx.Response().Header().Set("Cache-Control", "no-cache")
	ctx.Response().Header().Set("Connection", "keep-alive")
	ctx.Response().Header().Set("Access-Control-Allow-Origin", "*")
	ctx.Response().Header().Set("Access-Control-Allow-Headers", "Cache-Control")

	clientID := generateCorrelationID()

	client := &SSEClient{
		ID:       clientID,
		Channel:  make(chan LiveUpdate, 100),
		Request:  ctx.Request(),
		Response: ctx.Response(),
		Done:     make(chan bool),
	}

	c.sseManager.AddClient(client)

	if err := c.sendSSEMessage(ctx, "connected", map[string]string{
		"clientId": clientID,
		"message":  "Connected to live position stream",
	}); err != nil {
		c.sseManager.RemoveClient(clientID)
		return err
	}

	if c.apiLogger != nil {
		c.apiLogger.Info("SSE client connected",
			"client_id", clientID,
			"ip", ctx.RealIP(),
			"user_agent", ctx.Request().UserAgent(),
		)
	}

	defer func() {
		c.sseManager.RemoveClient(clientID)
		if c.apiLogger != nil {
			c.apiLogger.Info("SSE client disconnected",
				"client_id", clientID,
				"ip", ctx.RealIP(),
			)
		}
	}()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case update := <-client.Channel:
			if err := c.sendSSEMessage(ctx, "position", update); err != nil {
				if c.apiLogger != nil {
					c.apiLogger.Error("Failed to send SSE position",
						"client_id", clientID,
						"error", err.Error(),
					)
				}
				return err
			}
		case <-ticker.C:
			if err := c.sendSSEMessage(ctx, "heartbeat", map[string]any{
				"timestamp": time.Now().Unix(),
				"clients":   c.sseManager.GetClientCount(),
			}); err != nil {
				return err
			}
		case <-client.Done:
			return nil
		case <-ctx.Request().Context().Done():
			return nil
		case <-c.ctx.Done():
			return nil
		}
	}
}

// GetSSEStatus reports the number of connected live-stream clients.
func (c *Controller) GetSSEStatus(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]any{
		"connected_clients": c.sseManager.GetClientCount(),
	})
}

// sendSSEMessage writes one named event to the stream and flushes.
func (c *Controller) sendSSEMessage(ctx echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE data: %w", err)
	}

	if _, err := fmt.Fprintf(ctx.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write SSE message: %w", err)
	}

	ctx.Response().Flush()
	return nil
}
