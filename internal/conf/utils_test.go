package conf

import (
	"testing"
)

func TestParseRetentionPeriod(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		retention string
		wantHours int
		wantErr   bool
	}{
		{"plain integer is hours", "48", 48, false},
		{"hours suffix", "24h", 24, false},
		{"days suffix", "7d", 168, false},
		{"weeks suffix", "2w", 336, false},
		{"months suffix", "3m", 2160, false},
		{"years suffix", "1y", 8760, false},
		{"empty input", "", 0, true},
		{"bad suffix", "30x", 0, true},
		{"suffix without number", "d", 0, true},
		{"garbage", "soon", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseRetentionPeriod(tt.retention)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRetentionPeriod(%q) error = %v, wantErr %v", tt.retention, err, tt.wantErr)
			}
			if got != tt.wantHours {
				t.Errorf("ParseRetentionPeriod(%q) = %d, want %d", tt.retention, got, tt.wantHours)
			}
		})
	}
}

func TestGetDefaultConfigPaths(t *testing.T) {
	t.Parallel()

	paths, err := GetDefaultConfigPaths()
	if err != nil {
		t.Fatalf("GetDefaultConfigPaths() error: %v", err)
	}
	if len(paths) == 0 {
		t.Fatal("Expected at least one default config path")
	}
	for _, p := range paths {
		if p == "" {
			t.Error("Got an empty config path")
		}
	}
}
