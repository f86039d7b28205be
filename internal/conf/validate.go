// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	// Validate Main settings
	if err := validateMainSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate WebServer settings
	if err := validateWebServerSettings(&settings.WebServer); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Dispatch settings
	if err := validateDispatchSettings(&settings.Dispatch); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate MQTT settings
	if err := validateMQTTSettings(&settings.MQTT); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Notification settings
	if err := validateNotificationSettings(&settings.Notification); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// Validate Output settings
	if err := validateOutputSettings(settings); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	// If there are any errors, return the ValidationError
	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

// validateMainSettings validates the Main section
func validateMainSettings(settings *Settings) error {
	switch settings.Main.Environment {
	case EnvironmentDevelopment, EnvironmentProduction:
		return nil
	default:
		return fmt.Errorf("main.environment must be %q or %q, got %q",
			EnvironmentDevelopment, EnvironmentProduction, settings.Main.Environment)
	}
}

// validateWebServerSettings validates the WebServer-specific settings
func validateWebServerSettings(settings *WebServerSettings) error {
	if settings.Enabled {
		// Check if port is provided when enabled
		if settings.Port == "" {
			return errors.New("WebServer port is required when enabled")
		}
	}
	return nil
}

// validateDispatchSettings validates the command dispatch settings
func validateDispatchSettings(settings *DispatchSettings) error {
	var errs []string

	if settings.ControlTTL <= 0 {
		errs = append(errs, "dispatch controlttl must be positive")
	}
	if settings.WifiTTL <= 0 {
		errs = append(errs, "dispatch wifittl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("dispatch settings errors: %v", errs)
	}
	return nil
}

// validateMQTTSettings validates the MQTT uplink settings
func validateMQTTSettings(settings *MQTTSettings) error {
	if !settings.Enabled {
		return nil
	}

	if settings.Broker == "" {
		return errors.New("MQTT broker is required when the uplink is enabled")
	}

	validScheme := false
	for _, scheme := range []string{"tcp://", "ssl://", "mqtt://", "mqtts://", "ws://", "wss://"} {
		if strings.HasPrefix(settings.Broker, scheme) {
			validScheme = true
			break
		}
	}
	if !validScheme {
		return fmt.Errorf("MQTT broker must start with a valid scheme (tcp://, ssl://, mqtt://, mqtts://, ws:// or wss://), got %q", settings.Broker)
	}

	if settings.Topic == "" {
		return errors.New("MQTT topic is required when the uplink is enabled")
	}

	return nil
}

// validateNotificationSettings validates the push notification settings
func validateNotificationSettings(settings *NotificationSettings) error {
	if !settings.Enabled {
		return nil
	}

	if settings.MaxPerMinute < 0 {
		return errors.New("notification maxperminute must be non-negative")
	}

	for i := range settings.Providers {
		p := &settings.Providers[i]
		if !p.Enabled {
			continue
		}
		switch p.Type {
		case "shoutrrr", "webhook":
			if p.URL == "" {
				return fmt.Errorf("notification provider %d (%s) requires a url", i, p.Type)
			}
		default:
			return fmt.Errorf("unsupported notification provider type: %s", p.Type)
		}
	}

	return nil
}

// validateOutputSettings ensures exactly one datastore backend is usable
func validateOutputSettings(settings *Settings) error {
	enabled := 0
	if settings.Output.SQLite.Enabled {
		enabled++
		if settings.Output.SQLite.Path == "" {
			return errors.New("output.sqlite.path is required when sqlite output is enabled")
		}
	}
	if settings.Output.MySQL.Enabled {
		enabled++
	}
	if settings.Output.Postgres.Enabled {
		enabled++
	}

	switch {
	case enabled == 0:
		return errors.New("no datastore enabled: enable one of output.sqlite, output.mysql or output.postgres")
	case enabled > 1:
		return errors.New("multiple datastores enabled: enable only one of output.sqlite, output.mysql or output.postgres")
	}
	return nil
}
