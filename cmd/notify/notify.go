// Package notify provides a command that sends a test notification through
// the configured push providers.
package notify

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/notification"
)

// Command returns a cobra command that sends a test notification via the notification service
func Command(settings *conf.Settings) *cobra.Command {
	var (
		typ      string
		prio     string
		title    string
		message  string
		wait     time.Duration
		metadata []string
	)

	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send a test notification through the configured providers",
		Long: `Send a test notification through the notification service.

Examples:
  # Basic notification
  herdtrack notify --type=info --priority=low --title="Test" --message="Hello"

  # Alert with metadata
  herdtrack notify --type=alert --priority=high --metadata="farm_id=1" --metadata="type=fence_breach"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ntype, err := parseType(typ)
			if err != nil {
				return err
			}
			nprio, err := parsePriority(prio)
			if err != nil {
				return err
			}

			notification.Initialize(&notification.ServiceConfig{
				Debug:        settings.Notification.Debug,
				MaxPerMinute: settings.Notification.MaxPerMinute,
			})
			notification.InitializePushFromConfig(settings)
			defer notification.StopPushDispatcher()

			service := notification.GetService()
			if service == nil {
				return fmt.Errorf("notification service not initialized")
			}

			n, err := service.CreateWithComponent(ntype, nprio, title, message, "cli")
			if err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}

			if len(metadata) > 0 {
				for _, kv := range metadata {
					parts := strings.SplitN(kv, "=", 2)
					if len(parts) != 2 {
						return fmt.Errorf("invalid metadata format: %s (expected key=value)", kv)
					}
					key := strings.TrimSpace(parts[0])
					value := strings.TrimSpace(parts[1])

					// Numbers and booleans keep their type, everything else
					// stays a string.
					if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
						n.WithMetadata(key, floatVal)
					} else if boolVal, err := strconv.ParseBool(value); err == nil {
						n.WithMetadata(key, boolVal)
					} else {
						n.WithMetadata(key, value)
					}
				}
			}

			fmt.Printf("Notification %s created, waiting %s for delivery\n", n.ID, wait)
			time.Sleep(wait)
			return nil
		},
	}

	cmd.Flags().StringVar(&typ, "type", "info", "Notification type: alert, error, info, system")
	cmd.Flags().StringVar(&prio, "priority", "low", "Priority: critical, high, medium, low")
	cmd.Flags().StringVar(&title, "title", "Test notification", "Notification title")
	cmd.Flags().StringVar(&message, "message", "HerdTrack-Go test notification", "Notification message")
	cmd.Flags().DurationVar(&wait, "wait", 3*time.Second, "How long to wait for push delivery before exiting")
	cmd.Flags().StringArrayVar(&metadata, "metadata", nil, "Metadata key=value pairs (repeatable)")

	return cmd
}

func parseType(typ string) (notification.Type, error) {
	switch typ {
	case "alert":
		return notification.TypeAlert, nil
	case "error":
		return notification.TypeError, nil
	case "info":
		return notification.TypeInfo, nil
	case "system":
		return notification.TypeSystem, nil
	default:
		return "", fmt.Errorf("invalid type: %s", typ)
	}
}

func parsePriority(prio string) (notification.Priority, error) {
	switch prio {
	case "critical":
		return notification.PriorityCritical, nil
	case "high":
		return notification.PriorityHigh, nil
	case "medium":
		return notification.PriorityMedium, nil
	case "low":
		return notification.PriorityLow, nil
	default:
		return "", fmt.Errorf("invalid priority: %s", prio)
	}
}
