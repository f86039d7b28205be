package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/logging"
)

const (
	pushMaxRetries = 2
	pushRetryDelay = 2 * time.Second
)

// pushDispatcher subscribes to the notification service and forwards
// notifications to enabled providers asynchronously. Delivery is best
// effort: failures are logged and retried a bounded number of times.
type pushDispatcher struct {
	providers []Provider
	logger    *slog.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

var (
	globalPushDispatcher *pushDispatcher
	dispatcherOnce       sync.Once
)

// InitializePushFromConfig builds and starts the push dispatcher from app
// settings. A no-op when push is disabled or no provider validates.
func InitializePushFromConfig(settings *conf.Settings) {
	dispatcherOnce.Do(func() {
		if settings == nil || !settings.Notification.Enabled {
			return
		}
		service := GetService()
		if service == nil {
			return
		}

		pd := &pushDispatcher{logger: logging.ForService("notification-push")}

		for i := range settings.Notification.Providers {
			pc := &settings.Notification.Providers[i]
			if !pc.Enabled {
				continue
			}

			var provider Provider
			switch pc.Type {
			case "shoutrrr":
				provider = NewShoutrrrProvider("", true, pc.URL, defaultPushTimeout)
			case "webhook":
				provider = NewWebhookProvider("", true, pc.URL, nil)
			default:
				pd.logger.Error("unknown push provider type", "type", pc.Type)
				continue
			}

			if err := provider.ValidateConfig(); err != nil {
				pd.logger.Error("push provider config invalid",
					"type", pc.Type, "error", err)
				continue
			}
			pd.providers = append(pd.providers, provider)
		}

		if len(pd.providers) == 0 {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		pd.cancel = cancel

		ch, subCtx := service.Subscribe()
		pd.wg.Add(1)
		go pd.run(ctx, subCtx, ch)

		globalPushDispatcher = pd
		pd.logger.Info("push dispatcher started", "providers", len(pd.providers))
	})
}

// StopPushDispatcher terminates the push dispatcher if running.
func StopPushDispatcher() {
	if globalPushDispatcher != nil {
		globalPushDispatcher.cancel()
		globalPushDispatcher.wg.Wait()
	}
}

func (pd *pushDispatcher) run(ctx, subCtx context.Context, ch <-chan *Notification) {
	defer pd.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-subCtx.Done():
			return
		case notification := <-ch:
			if notification == nil {
				return
			}
			pd.deliver(ctx, notification)
		}
	}
}

// deliver pushes one notification to every provider supporting its type.
func (pd *pushDispatcher) deliver(ctx context.Context, notification *Notification) {
	for _, provider := range pd.providers {
		if !provider.SupportsType(notification.Type) {
			continue
		}

		var err error
		for attempt := 0; attempt <= pushMaxRetries; attempt++ {
			if attempt > 0 {
				select {
				case <-ctx.Done():
					return
				case <-time.After(pushRetryDelay):
				}
			}

			sendCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
			err = provider.Send(sendCtx, notification)
			cancel()
			if err == nil {
				break
			}
		}

		if err != nil {
			pd.logger.Error("push delivery failed",
				"provider", provider.GetName(),
				"notification_id", notification.ID,
				"error", err)
		}
	}
}
