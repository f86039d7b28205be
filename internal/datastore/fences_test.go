// fences_test.go: Tests for virtual fence creation validation.
package datastore

import (
	"testing"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFence_ValidBounds(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		radius float64
	}{
		{"typical", 47.5, 18.9, 500},
		{"latitude lower bound", -90, 0, 100},
		{"latitude upper bound", 90, 0, 100},
		{"longitude lower bound", 0, -180, 100},
		{"longitude upper bound", 0, 180, 100},
		{"radius lower bound", 0, 0, FenceRadiusMin},
		{"radius upper bound", 0, 0, FenceRadiusMax},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fence := Fence{
				FarmID:       1,
				Name:         "pasture " + tc.name,
				Latitude:     tc.lat,
				Longitude:    tc.lon,
				RadiusMeters: tc.radius,
				Active:       true,
			}
			require.NoError(t, ds.CreateFence(&fence))
			assert.NotZero(t, fence.ID)
		})
	}
}

func TestCreateFence_RejectsOutOfRangeGeometry(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	tests := []struct {
		name   string
		lat    float64
		lon    float64
		radius float64
	}{
		{"latitude below range", -90.001, 0, 100},
		{"latitude above range", 90.001, 0, 100},
		{"longitude below range", 0, -180.001, 100},
		{"longitude above range", 0, 180.001, 100},
		{"radius below range", 0, 0, FenceRadiusMin - 1},
		{"radius above range", 0, 0, FenceRadiusMax + 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ds.CreateFence(&Fence{
				FarmID:       1,
				Name:         "bad fence",
				Latitude:     tc.lat,
				Longitude:    tc.lon,
				RadiusMeters: tc.radius,
			})
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err), "expected validation error, got %v", err)
		})
	}
}

func TestCreateFence_RequiresName(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	err := ds.CreateFence(&Fence{FarmID: 1, Latitude: 0, Longitude: 0, RadiusMeters: 100})
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
