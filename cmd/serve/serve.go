// Package serve runs the HerdTrack-Go HTTP API server and the MQTT uplink.
package serve

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/herdtrack/herdtrack-go/internal/alerting"
	api "github.com/herdtrack/herdtrack-go/internal/api/v2"
	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/dispatch"
	"github.com/herdtrack/herdtrack-go/internal/events"
	"github.com/herdtrack/herdtrack-go/internal/ingest"
	"github.com/herdtrack/herdtrack-go/internal/mqtt"
	"github.com/herdtrack/herdtrack-go/internal/notification"
	"github.com/herdtrack/herdtrack-go/internal/observability"
	"github.com/herdtrack/herdtrack-go/internal/telemetry"
)

const shutdownTimeout = 10 * time.Second

// Command creates and returns the serve command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HerdTrack-Go server",
		Long:  `Serve starts the HTTP API, the live position stream and, when configured, the MQTT collar uplink.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(settings)
		},
	}
}

// Run assembles the full service and blocks until a termination signal.
func Run(settings *conf.Settings) error {
	logger := log.Default()

	// Error telemetry is opt-in; a failed init never blocks startup.
	if err := telemetry.Init(settings); err != nil {
		logger.Printf("Warning: error telemetry disabled: %v", err)
	}
	defer telemetry.Shutdown()

	if _, err := events.Initialize(nil); err != nil {
		return fmt.Errorf("failed to initialize event bus: %w", err)
	}

	if settings.Notification.Enabled {
		notification.Initialize(&notification.ServiceConfig{
			Debug:        settings.Notification.Debug,
			MaxPerMinute: settings.Notification.MaxPerMinute,
		})
		notification.InitializePushFromConfig(settings)
		defer notification.StopPushDispatcher()
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	ds := datastore.New(settings)
	if err := ds.Open(); err != nil {
		return fmt.Errorf("failed to open datastore: %w", err)
	}
	defer func() {
		if err := ds.Close(); err != nil {
			logger.Printf("Error closing datastore: %v", err)
		}
	}()

	pipeline := ingest.New(settings, ds, metrics.Ingest)
	dispatcher := dispatch.New(settings, ds, metrics.Dispatch)
	alerts := alerting.New(settings, ds)

	e := echo.New()
	e.HideBanner = true

	controller, err := api.New(e, ds, settings, pipeline, dispatcher, alerts, logger, metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize API: %w", err)
	}
	defer controller.Shutdown()

	// Prometheus exposition lives outside the /api/v2 group.
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var uplink *mqtt.Uplink
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings, metrics.MQTT)
		if err != nil {
			return fmt.Errorf("failed to create MQTT client: %w", err)
		}
		uplink = mqtt.NewUplink(settings, client, pipeline, metrics.MQTT)
		if err := uplink.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MQTT uplink: %w", err)
		}
		defer uplink.Stop()
	}

	errChan := make(chan error, 1)
	go func() {
		addr := ":" + settings.WebServer.Port
		logger.Printf("HerdTrack-Go %s listening on %s", settings.Version, addr)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Printf("Received %v, shutting down", sig)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	return nil
}
