// Package telemetry wires opt-in Sentry error reporting into the error
// handling system. Nothing is reported unless the operator explicitly
// enables Sentry in the configuration.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/logging"
)

// flushTimeout bounds the shutdown flush of buffered events.
const flushTimeout = 2 * time.Second

// Init initializes Sentry and registers the global error reporter. A no-op
// when Sentry is disabled; enabling without a DSN is a configuration error.
func Init(settings *conf.Settings) error {
	logger := logging.ForService("telemetry")

	if !settings.Sentry.Enabled {
		logger.Info("sentry telemetry is disabled (opt-in required)")
		return nil
	}
	if settings.Sentry.DSN == "" {
		return errors.Newf("sentry is enabled but no DSN is configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:        settings.Sentry.DSN,
		SampleRate: 1.0,

		// Privacy-compliant settings: no stack traces, no hostname.
		AttachStacktrace: false,
		ServerName:       "",
		Environment:      settings.Main.Environment,
		Release:          fmt.Sprintf("herdtrack-go@%s", settings.Version),
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	logger.Info("sentry telemetry initialized", "environment", settings.Main.Environment)
	return nil
}

// Shutdown flushes buffered events and detaches the reporter.
func Shutdown() {
	errors.SetTelemetryReporter(nil)
	sentry.Flush(flushTimeout)
}
