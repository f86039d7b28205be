// env.go - Environment variable configuration and validation for HerdTrack-Go
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Core
		{"debug", "HERDTRACK_DEBUG", validateEnvBool},
		{"main.environment", "HERDTRACK_ENVIRONMENT", validateEnvEnvironment},

		// Web server
		{"webserver.port", "HERDTRACK_PORT", validateEnvPort},

		// Command dispatch TTLs
		{"dispatch.controlttl", "HERDTRACK_DISPATCH_CONTROLTTL", validateEnvDuration},
		{"dispatch.wifittl", "HERDTRACK_DISPATCH_WIFITTL", validateEnvDuration},

		// MQTT uplink, credentials are the usual reason these live in the environment
		{"mqtt.enabled", "HERDTRACK_MQTT_ENABLED", validateEnvBool},
		{"mqtt.broker", "HERDTRACK_MQTT_BROKER", validateEnvBrokerURL},
		{"mqtt.topic", "HERDTRACK_MQTT_TOPIC", nil},
		{"mqtt.username", "HERDTRACK_MQTT_USERNAME", nil},
		{"mqtt.password", "HERDTRACK_MQTT_PASSWORD", nil},

		// Datastore credentials
		{"output.mysql.username", "HERDTRACK_MYSQL_USERNAME", nil},
		{"output.mysql.password", "HERDTRACK_MYSQL_PASSWORD", nil},
		{"output.mysql.host", "HERDTRACK_MYSQL_HOST", nil},
		{"output.mysql.port", "HERDTRACK_MYSQL_PORT", validateEnvPort},
		{"output.postgres.username", "HERDTRACK_POSTGRES_USERNAME", nil},
		{"output.postgres.password", "HERDTRACK_POSTGRES_PASSWORD", nil},
		{"output.postgres.host", "HERDTRACK_POSTGRES_HOST", nil},
		{"output.postgres.port", "HERDTRACK_POSTGRES_PORT", validateEnvPort},

		// Error telemetry
		{"sentry.enabled", "HERDTRACK_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "HERDTRACK_SENTRY_DSN", nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	bindings := getEnvBindings()
	var warnings []string

	for _, binding := range bindings {
		// Bind the environment variable to the config key
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		// Validate the value if it's set and validation function is provided
		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", binding.EnvVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

// Environment variable validation functions

// validateEnvBool validates boolean environment variables
func validateEnvBool(value string) error {
	_, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f, TRUE/FALSE, T/F", value)
	}
	return nil
}

// validateEnvEnvironment validates the deployment environment name
func validateEnvEnvironment(value string) error {
	switch value {
	case EnvironmentDevelopment, EnvironmentProduction:
		return nil
	default:
		return fmt.Errorf("environment must be %q or %q, got '%s'", EnvironmentDevelopment, EnvironmentProduction, value)
	}
}

// validateEnvPort validates TCP port environment variables
func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// validateEnvDuration validates duration environment variables like "1h" or "30m"
func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", d)
	}
	return nil
}

// validateEnvBrokerURL validates MQTT broker URL environment variables
func validateEnvBrokerURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}
	switch u.Scheme {
	case "tcp", "ssl", "mqtt", "mqtts", "ws", "wss":
		// supported by the paho client
	default:
		return fmt.Errorf("broker scheme must be one of tcp, ssl, mqtt, mqtts, ws, wss, got '%s'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("broker URL is missing a host: '%s'", value)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables() error {
	// Set up key replacer for nested config keys
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Bind specific environment variables with validation
	// Return any errors to the caller for centralized handling
	return bindEnvVars()
}
