package conf

import (
	"testing"
)

func TestValidateEnvBrokerURL(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"tcp broker", "tcp://localhost:1883", false},
		{"ssl broker", "ssl://broker.example.com:8883", false},
		{"mqtts broker", "mqtts://broker.example.com", false},
		{"websocket broker", "wss://broker.example.com/mqtt", false},
		{"http scheme", "http://broker.example.com", true},
		{"missing host", "tcp://", true},
		{"plain host", "localhost", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvBrokerURL(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEnvBrokerURL(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnvPort(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"common port", "8080", false},
		{"minimum", "1", false},
		{"maximum", "65535", false},
		{"zero", "0", true},
		{"too large", "65536", true},
		{"not a number", "eighty", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvPort(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEnvPort(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestValidateEnvDuration(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"hours", "1h", false},
		{"mixed", "1h30m", false},
		{"zero rejected", "0s", true},
		{"negative rejected", "-5m", true},
		{"bare number rejected", "60", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := validateEnvDuration(tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEnvDuration(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBindings(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for _, b := range getEnvBindings() {
		if b.ConfigKey == "" || b.EnvVar == "" {
			t.Errorf("Binding with empty key or env var: %+v", b)
		}
		if seen[b.EnvVar] {
			t.Errorf("Duplicate env var binding: %s", b.EnvVar)
		}
		seen[b.EnvVar] = true
	}
	if !seen["HERDTRACK_MQTT_PASSWORD"] {
		t.Error("Expected MQTT password to be bindable from the environment")
	}
}
