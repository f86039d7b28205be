// config.go: This file contains the configuration for the HerdTrack-Go application. It defines the settings struct and functions to load and save the settings.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

//go:embed config.yaml
var configFiles embed.FS

// Environment values for Main.Environment. Production suppresses detailed
// storage error messages in API responses.
const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
)

// LogConfig defines the configuration for a log file
type LogConfig struct {
	Enabled     bool         // true to enable this log
	Path        string       // Path to the log file
	Rotation    RotationType // Type of log rotation
	MaxSize     int64        // Max size in bytes for RotationSize
	RotationDay string       // Day of the week for RotationWeekly (as a string: "Sunday", "Monday", etc.)
}

// RotationType defines different types of log rotations.
type RotationType string

const (
	RotationDaily  RotationType = "daily"
	RotationWeekly RotationType = "weekly"
	RotationSize   RotationType = "size"
)

// IngestSettings contains settings for the location ingestion pipeline.
type IngestSettings struct {
	Debug bool // true to enable debug mode
}

// DispatchSettings contains settings for the command dispatch protocol.
type DispatchSettings struct {
	Debug      bool          // true to enable debug mode
	ControlTTL time.Duration // default time-to-live for control commands
	WifiTTL    time.Duration // default time-to-live for wifi_update commands
}

// MQTTSettings contains settings for the MQTT telemetry uplink.
type MQTTSettings struct {
	Enabled  bool   // true to enable the MQTT uplink listener
	Broker   string // MQTT broker (tcp://host:port)
	ClientID string // MQTT client id, random suffix appended when empty
	Topic    string // topic filter for collar location reports
	Username string // MQTT username
	Password string // MQTT password
}

// NotificationProvider defines one push notification delivery channel.
type NotificationProvider struct {
	Type    string `yaml:"type"`    // "shoutrrr" or "webhook"
	Enabled bool   `yaml:"enabled"` // true to enable this provider
	URL     string `yaml:"url"`     // shoutrrr service URL or webhook endpoint
}

// NotificationSettings contains settings for alert push notifications.
type NotificationSettings struct {
	Enabled      bool                   // true to enable push notifications
	Debug        bool                   // true to enable debug mode
	MaxPerMinute int                    // rate limit for outbound pushes, 0 for unlimited
	Providers    []NotificationProvider // delivery channels
}

// LiveSettings contains settings for the SSE live position stream.
type LiveSettings struct {
	Enabled bool // true to enable the /api/v2/live SSE endpoint
}

// WebServerSettings contains settings for the HTTP API server.
type WebServerSettings struct {
	Debug   bool      // true to enable debug mode
	Enabled bool      // true to enable web server
	Port    string    // port for web server
	Log     LogConfig // logging configuration for web server
	Live    LiveSettings
}

// SentrySettings contains settings for error telemetry.
type SentrySettings struct {
	Enabled bool   // true to enable Sentry error reporting (opt-in)
	DSN     string // Sentry project DSN
}

// BackupRetention defines backup retention policy
type BackupRetention struct {
	MaxAge     string `yaml:"maxage"`     // Duration string like "30d", "6m", "1y"
	MaxBackups int    `yaml:"maxbackups"` // Maximum number of backups to keep
	MinBackups int    `yaml:"minbackups"` // Minimum number of backups to keep regardless of age
}

// BackupTarget defines settings for a backup target
type BackupTarget struct {
	Type     string         `yaml:"type"`     // "local", "ftp" or "sftp"
	Enabled  bool           `yaml:"enabled"`  // true to enable this target
	Settings map[string]any `yaml:"settings"` // Target-specific settings
}

// BackupConfig defines the configuration for backups
type BackupConfig struct {
	Enabled   bool            `yaml:"enabled"`   // true to enable backup functionality
	Debug     bool            `yaml:"debug"`     // true to enable debug logging
	Retention BackupRetention `yaml:"retention"` // Backup retention settings
	Targets   []BackupTarget  `yaml:"targets"`   // List of backup targets
}

// Settings contains all configuration options for the HerdTrack-Go application.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"` // Version from build
	BuildDate string `yaml:"-"` // Build date from build

	Main struct {
		Name        string    // name of this HerdTrack-Go node, used to identify report sources
		Environment string    // "development" or "production"
		Log         LogConfig // logging configuration
	}

	Ingest IngestSettings // location ingestion pipeline settings

	Dispatch DispatchSettings // command dispatch settings

	MQTT MQTTSettings // MQTT uplink settings

	Notification NotificationSettings // alert push notification settings

	WebServer WebServerSettings // HTTP API server settings

	Output struct {
		SQLite struct {
			Enabled bool   // true to enable sqlite output
			Path    string // path to sqlite database
		}

		MySQL struct {
			Enabled  bool   // true to enable mysql output
			Username string // username for mysql database
			Password string // password for mysql database
			Database string // database name for mysql database
			Host     string // host for mysql database
			Port     string // port for mysql database
		}

		Postgres struct {
			Enabled  bool   // true to enable postgres output
			Username string // username for postgres database
			Password string // password for postgres database
			Database string // database name for postgres database
			Host     string // host for postgres database
			Port     string // port for postgres database
			SSLMode  string // disable, require, verify-ca or verify-full
		}
	}

	Backup BackupConfig // Backup configuration

	Sentry SentrySettings // Error telemetry configuration
}

// IsProduction reports whether the node runs with production error gating.
func (s *Settings) IsProduction() bool {
	return s.Main.Environment == EnvironmentProduction
}

// settingsInstance is the current settings instance
var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into the settings instance.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	// Create a new settings struct
	settings := &Settings{}

	// Initialize viper and read config
	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	// Unmarshal the config into settings
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	// Validate settings
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	// Save settings instance
	settingsInstance = settings
	return settingsInstance, nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	// Get OS specific config paths
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}

	// Assign config paths to Viper
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	// Set default values for each configuration parameter
	// function defined in defaults.go
	setDefaultConfig()

	// Bind environment variable overrides, function defined in env.go
	if err := configureEnvironmentVariables(); err != nil {
		// Invalid env values are reported but do not block startup
		log.Printf("warning: %v", err)
	}

	// Read configuration file
	err = viper.ReadInConfig()
	if err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Config file not found, create config with defaults
			return createDefaultConfig()
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig creates a default config file and writes it to the default config path
func createDefaultConfig() error {
	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	configPath := filepath.Join(configPaths[0], "config.yaml")
	defaultConfig := getDefaultConfig()

	// Create directories for config file
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	// Write default config file
	if err := os.WriteFile(configPath, []byte(defaultConfig), 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	fmt.Println("Created default config file at:", configPath)
	return viper.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		log.Fatalf("Error reading config file: %v", err)
	}
	return string(data)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings saves the current settings to the configuration file.
// It uses SaveYAMLConfig to handle the atomic write process.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	// Create a copy of the settings so the write happens against a stable view
	settingsCopy := *settingsInstance

	// Find the path of the current config file
	configPath, err := FindConfigFile()
	if err != nil {
		return fmt.Errorf("error finding config file: %w", err)
	}

	// Save the settings to the config file
	if err := SaveYAMLConfig(configPath, &settingsCopy); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	log.Printf("Settings saved successfully to %s", configPath)
	return nil
}

// Setting returns the current settings instance, initializing it if necessary
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			_, err := Load()
			if err != nil {
				log.Fatalf("Error loading settings: %v", err)
			}
		}
	})
	return GetSettings()
}

// SaveYAMLConfig updates the YAML configuration file with new settings.
// It overwrites the existing file, not preserving comments or structure.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	// Marshal the settings struct to YAML
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	// Write the YAML data to a temporary file
	// This is done to ensure atomic write operation
	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	// Ensure the temporary file is removed in case of any failure
	defer os.Remove(tempFileName)

	// Write the YAML data to the temporary file
	if _, err := tempFile.Write(yamlData); err != nil {
		tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	// Close the temporary file after writing
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	// Try to rename the temporary file to replace the original config file
	// This is typically an atomic operation on most filesystems
	if err := os.Rename(tempFileName, configPath); err != nil {
		// If rename fails (e.g., cross-device link), fall back to copy & delete
		if err := moveFile(tempFileName, configPath); err != nil {
			return fmt.Errorf("error copying config file: %w", err)
		}
	}

	return nil
}
