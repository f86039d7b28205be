package conf

import (
	"strings"
	"testing"
	"time"
)

// validSettings returns a Settings struct that passes validation, for use as
// a baseline that individual tests mutate.
func validSettings() *Settings {
	s := &Settings{}
	s.Main.Environment = EnvironmentDevelopment
	s.Dispatch.ControlTTL = time.Hour
	s.Dispatch.WifiTTL = 24 * time.Hour
	s.WebServer.Enabled = true
	s.WebServer.Port = "8080"
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "herdtrack.db"
	return s
}

func TestValidateSettings_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateSettings(validSettings()); err != nil {
		t.Errorf("Expected valid settings, got error: %v", err)
	}
}

func TestValidateSettings_Environment(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		environment string
		wantErr     bool
	}{
		{"development", EnvironmentDevelopment, false},
		{"production", EnvironmentProduction, false},
		{"unknown value rejected", "staging", true},
		{"empty value rejected", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.Main.Environment = tt.environment
			err := ValidateSettings(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_DispatchTTLs(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		controlTTL time.Duration
		wifiTTL    time.Duration
		wantErr    bool
	}{
		{"default TTLs", time.Hour, 24 * time.Hour, false},
		{"short but positive", time.Second, time.Second, false},
		{"zero control TTL rejected", 0, 24 * time.Hour, true},
		{"zero wifi TTL rejected", time.Hour, 0, true},
		{"negative control TTL rejected", -time.Minute, 24 * time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.Dispatch.ControlTTL = tt.controlTTL
			s.Dispatch.WifiTTL = tt.wifiTTL
			err := ValidateSettings(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_MQTTBroker(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		enabled bool
		broker  string
		topic   string
		wantErr bool
	}{
		{"disabled uplink skips validation", false, "", "", false},
		{"tcp broker", true, "tcp://localhost:1883", "herdtrack/+/location", false},
		{"ssl broker", true, "ssl://broker.example.com:8883", "herdtrack/+/location", false},
		{"wss broker", true, "wss://broker.example.com/mqtt", "herdtrack/+/location", false},
		{"missing broker rejected", true, "", "herdtrack/+/location", true},
		{"http scheme rejected", true, "http://broker.example.com", "herdtrack/+/location", true},
		{"bare host rejected", true, "localhost:1883", "herdtrack/+/location", true},
		{"missing topic rejected", true, "tcp://localhost:1883", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.MQTT.Enabled = tt.enabled
			s.MQTT.Broker = tt.broker
			s.MQTT.Topic = tt.topic
			err := ValidateSettings(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_NotificationProviders(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		providers []NotificationProvider
		wantErr   bool
	}{
		{"no providers", nil, false},
		{"shoutrrr provider", []NotificationProvider{{Type: "shoutrrr", Enabled: true, URL: "telegram://token@telegram?chats=@c"}}, false},
		{"webhook provider", []NotificationProvider{{Type: "webhook", Enabled: true, URL: "https://example.com/hook"}}, false},
		{"disabled provider not validated", []NotificationProvider{{Type: "smoke-signal", Enabled: false}}, false},
		{"unknown type rejected", []NotificationProvider{{Type: "smoke-signal", Enabled: true, URL: "x"}}, true},
		{"missing url rejected", []NotificationProvider{{Type: "webhook", Enabled: true}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.Notification.Enabled = true
			s.Notification.Providers = tt.providers
			err := ValidateSettings(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_ExactlyOneDatastore(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		sqlite   bool
		mysql    bool
		postgres bool
		wantErr  bool
	}{
		{"sqlite only", true, false, false, false},
		{"mysql only", false, true, false, false},
		{"postgres only", false, false, true, false},
		{"none enabled rejected", false, false, false, true},
		{"sqlite and mysql rejected", true, true, false, true},
		{"all enabled rejected", true, true, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			s.Output.SQLite.Enabled = tt.sqlite
			s.Output.MySQL.Enabled = tt.mysql
			s.Output.Postgres.Enabled = tt.postgres
			err := ValidateSettings(s)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateSettings() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSettings_CollectsAllErrors(t *testing.T) {
	t.Parallel()

	s := validSettings()
	s.Main.Environment = "staging"
	s.Dispatch.ControlTTL = 0
	s.Output.SQLite.Enabled = false

	err := ValidateSettings(s)
	if err == nil {
		t.Fatal("Expected validation to fail")
	}

	var ve ValidationError
	if !asValidationError(err, &ve) {
		t.Fatalf("Expected ValidationError, got %T", err)
	}
	if len(ve.Errors) != 3 {
		t.Errorf("Expected 3 errors, got %d: %v", len(ve.Errors), ve.Errors)
	}
	for _, want := range []string{"main.environment", "controlttl", "no datastore"} {
		found := false
		for _, msg := range ve.Errors {
			if strings.Contains(msg, want) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected an error mentioning %q, got: %v", want, ve.Errors)
		}
	}
}

func asValidationError(err error, target *ValidationError) bool {
	ve, ok := err.(ValidationError)
	if ok {
		*target = ve
	}
	return ok
}
