package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/logging"
	"golang.org/x/time/rate"
)

// Subscriber represents a notification subscriber
type Subscriber struct {
	ch     chan *Notification
	ctx    context.Context
	cancel context.CancelFunc
}

// ServiceConfig holds the configuration for the notification service.
type ServiceConfig struct {
	// Debug enables debug logging for the service
	Debug bool
	// MaxNotifications is the maximum number of notifications to keep in memory
	MaxNotifications int
	// CleanupInterval is how often to clean up expired notifications
	CleanupInterval time.Duration
	// MaxPerMinute limits notification creation; zero means unlimited
	MaxPerMinute int
}

// DefaultServiceConfig returns a default configuration
func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		MaxNotifications: DefaultMaxNotifications,
		CleanupInterval:  DefaultCleanupInterval,
		MaxPerMinute:     DefaultRateLimitMaxEvents,
	}
}

// Service manages notifications and provides rate limiting
type Service struct {
	store         NotificationStore
	subscribers   []*Subscriber
	subscribersMu sync.RWMutex
	limiter       *rate.Limiter
	cleanupTicker *time.Ticker
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	logger        *slog.Logger
	config        *ServiceConfig
}

// NewService creates a new notification service and starts its cleanup
// worker. Stop the service to release the worker.
func NewService(config *ServiceConfig) *Service {
	if config == nil {
		config = DefaultServiceConfig()
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultCleanupInterval
	}

	limit := rate.Inf
	burst := 1
	if config.MaxPerMinute > 0 {
		limit = rate.Limit(float64(config.MaxPerMinute) / 60.0)
		burst = config.MaxPerMinute
	}

	ctx, cancel := context.WithCancel(context.Background())
	service := &Service{
		store:         NewInMemoryStore(config.MaxNotifications),
		subscribers:   make([]*Subscriber, 0),
		limiter:       rate.NewLimiter(limit, burst),
		cleanupTicker: time.NewTicker(config.CleanupInterval),
		ctx:           ctx,
		cancel:        cancel,
		logger:        logging.ForService("notification"),
		config:        config,
	}

	service.wg.Add(1)
	go service.cleanupLoop()

	service.logger.Info("notification service initialized",
		"max_notifications", config.MaxNotifications,
		"cleanup_interval", config.CleanupInterval,
		"max_per_minute", config.MaxPerMinute,
		"debug", config.Debug)

	return service
}

// Create adds a new notification to the system
func (s *Service) Create(notifType Type, priority Priority, title, message string) (*Notification, error) {
	return s.CreateWithComponent(notifType, priority, title, message, "")
}

// CreateWithComponent creates a notification attributed to a component
func (s *Service) CreateWithComponent(notifType Type, priority Priority, title, message, component string) (*Notification, error) {
	if !s.limiter.Allow() {
		if s.config.Debug {
			s.logger.Debug("notification rate limit exceeded",
				"type", notifType,
				"priority", priority)
		}
		return nil, errors.Newf("rate limit exceeded").
			Component("notification").
			Category(errors.CategorySystem).
			Build()
	}

	notification := NewNotification(notifType, priority, title, message)
	if component != "" {
		notification.WithComponent(component)
	}

	if err := s.store.Save(notification); err != nil {
		return nil, errors.New(err).
			Component("notification").
			Category(errors.CategorySystem).
			Context("operation", "save_notification").
			Build()
	}

	s.broadcast(notification)

	if s.config.Debug {
		s.logger.Debug("notification created and broadcast",
			"id", notification.ID,
			"type", notifType,
			"priority", priority)
	}

	return notification, nil
}

// Get retrieves a notification by ID
func (s *Service) Get(id string) (*Notification, error) {
	return s.store.Get(id)
}

// List returns notifications based on filter options
func (s *Service) List(filter *FilterOptions) ([]*Notification, error) {
	return s.store.List(filter)
}

// MarkAsRead updates a notification's status to read
func (s *Service) MarkAsRead(id string) error {
	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}
	notification.MarkAsRead()
	return s.store.Update(notification)
}

// MarkAsAcknowledged updates a notification's status to acknowledged
func (s *Service) MarkAsAcknowledged(id string) error {
	notification, err := s.store.Get(id)
	if err != nil {
		return err
	}
	notification.MarkAsAcknowledged()
	return s.store.Update(notification)
}

// Delete removes a notification
func (s *Service) Delete(id string) error {
	return s.store.Delete(id)
}

// GetUnreadCount returns the number of unread notifications
func (s *Service) GetUnreadCount() (int, error) {
	return s.store.GetUnreadCount()
}

// Subscribe creates a channel receiving real-time notifications. The
// returned context is cancelled when the subscription terminates. The
// subscriber must not close the channel.
func (s *Service) Subscribe() (<-chan *Notification, context.Context) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	sub := &Subscriber{
		ch:     make(chan *Notification, DefaultChannelBufferSize),
		ctx:    ctx,
		cancel: cancel,
	}
	s.subscribers = append(s.subscribers, sub)
	return sub.ch, ctx
}

// Unsubscribe removes a notification channel
func (s *Service) Unsubscribe(ch <-chan *Notification) {
	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()

	for i, subscriber := range s.subscribers {
		if subscriber.ch == ch {
			subscriber.cancel()
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			break
		}
	}
}

// Stop terminates the service, its cleanup worker and all subscriptions.
func (s *Service) Stop() {
	s.cancel()
	s.cleanupTicker.Stop()
	s.wg.Wait()

	s.subscribersMu.Lock()
	defer s.subscribersMu.Unlock()
	for _, subscriber := range s.subscribers {
		subscriber.cancel()
	}
	s.subscribers = nil
}

// broadcast delivers a notification copy to every live subscriber without
// blocking: a subscriber with a full channel misses the notification.
func (s *Service) broadcast(notification *Notification) {
	s.subscribersMu.RLock()
	defer s.subscribersMu.RUnlock()

	for _, subscriber := range s.subscribers {
		select {
		case <-subscriber.ctx.Done():
			continue
		default:
		}

		select {
		case subscriber.ch <- notification.Clone():
		default:
			s.logger.Warn("subscriber channel full, notification dropped",
				"id", notification.ID)
		}
	}
}

// cleanupLoop periodically removes expired notifications.
func (s *Service) cleanupLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-s.cleanupTicker.C:
			if err := s.store.DeleteExpired(); err != nil {
				s.logger.Error("failed to delete expired notifications", "error", err)
			}
		}
	}
}
