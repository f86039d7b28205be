// telemetry_test.go: tests for the ingestion and read endpoints
package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herdtrack/herdtrack-go/internal/datastore"
)

func createTestAnimal(t *testing.T, ds datastore.Interface, collarID string) *datastore.Animal {
	t.Helper()
	animal := &datastore.Animal{
		FarmID:   1,
		Name:     "Mansikki",
		Tag:      "FI-042",
		Species:  "cattle",
		CollarID: collarID,
	}
	require.NoError(t, ds.CreateAnimal(animal))
	return animal
}

func TestPostTelemetry_AttributedReport(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)
	animal := createTestAnimal(t, ds, "collar-001")

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/telemetry",
		`{"collar_id": "collar-001", "latitude": 61.5, "longitude": 23.8, "battery_level": 84}`)

	require.NoError(t, controller.PostTelemetry(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.NotZero(t, body["id"])

	// History row and current position both exist after the dual write.
	count, err := ds.CountTrackPoints(animal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	position, err := ds.GetCurrentPosition(animal.ID)
	require.NoError(t, err)
	assert.InDelta(t, 61.5, position.Latitude, 1e-9)
}

func TestPostTelemetry_SecondReportAppendsHistoryAndMovesCurrent(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)
	animal := createTestAnimal(t, ds, "collar-001")

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/telemetry",
		`{"collar_id": "collar-001", "latitude": 61.5, "longitude": 23.8}`)
	require.NoError(t, controller.PostTelemetry(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/telemetry",
		`{"collar_id": "collar-001", "latitude": 61.6, "longitude": 23.9}`)
	require.NoError(t, controller.PostTelemetry(ctx))
	require.Equal(t, http.StatusOK, rec.Code)

	// Each report appends a history row; the current position is a single
	// row per entity key that follows the latest report.
	count, err := ds.CountTrackPoints(animal.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count, "second report appends exactly one history row")

	position, err := ds.GetCurrentPosition(animal.ID)
	require.NoError(t, err)
	assert.InDelta(t, 61.6, position.Latitude, 1e-9)
	assert.InDelta(t, 23.9, position.Longitude, 1e-9)

	markers, err := ds.GetMarkers()
	require.NoError(t, err)
	assert.Len(t, markers, 1, "exactly one current position row for the key")
}

func TestPostTelemetry_MissingCoordinatesIs400(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/telemetry",
		`{"collar_id": "collar-001", "latitude": 61.5}`)

	require.NoError(t, controller.PostTelemetry(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostTelemetry_MalformedBodyIs400(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/telemetry", `{"latitude": "north"}`)

	require.NoError(t, controller.PostTelemetry(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetCurrentPosition_ByAnimalCollarAndSentinel(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)
	animal := createTestAnimal(t, ds, "collar-001")

	require.NoError(t, ds.UpsertCurrentPosition(&datastore.CurrentPosition{
		AnimalID:   animal.ID,
		CollarID:   "collar-001",
		Latitude:   61.5,
		Longitude:  23.8,
		RecordedAt: time.Now(),
	}))
	require.NoError(t, ds.UpsertCurrentPosition(&datastore.CurrentPosition{
		AnimalID:   datastore.SentinelEntityID,
		CollarID:   "stray-collar",
		Latitude:   60.1,
		Longitude:  24.9,
		RecordedAt: time.Now(),
	}))

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/telemetry/current?animal_id=1", "")
	require.NoError(t, controller.GetCurrentPosition(ctx))
	body := decodeBody(t, rec)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 61.5, data["Latitude"], 1e-9)

	ctx, rec = newJSONContext(e, http.MethodGet, "/api/v2/telemetry/current?collar_id=collar-001", "")
	require.NoError(t, controller.GetCurrentPosition(ctx))
	body = decodeBody(t, rec)
	require.NotNil(t, body["data"])

	// No parameters selects the sentinel record.
	ctx, rec = newJSONContext(e, http.MethodGet, "/api/v2/telemetry/current", "")
	require.NoError(t, controller.GetCurrentPosition(ctx))
	body = decodeBody(t, rec)
	data, ok = body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stray-collar", data["CollarID"])
}

func TestGetCurrentPosition_AbsentRowIsNullNotError(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/telemetry/current?animal_id=99", "")
	require.NoError(t, controller.GetCurrentPosition(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Nil(t, body["data"])
}

func TestGetMarkers_JoinAndCache(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)
	animal := createTestAnimal(t, ds, "collar-001")

	require.NoError(t, ds.UpsertCurrentPosition(&datastore.CurrentPosition{
		AnimalID:   animal.ID,
		CollarID:   "collar-001",
		Latitude:   61.5,
		Longitude:  23.8,
		RecordedAt: time.Now(),
	}))

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/telemetry/markers", "")
	require.NoError(t, controller.GetMarkers(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	markers, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, markers, 1)
	marker := markers[0].(map[string]any)
	assert.Equal(t, "Mansikki", marker["name"])
	assert.Equal(t, "FI-042", marker["tag"])

	// A new position within the cache window is not visible yet.
	require.NoError(t, ds.UpsertCurrentPosition(&datastore.CurrentPosition{
		AnimalID:   animal.ID,
		CollarID:   "collar-001",
		Latitude:   62.0,
		Longitude:  24.0,
		RecordedAt: time.Now(),
	}))

	ctx, rec = newJSONContext(e, http.MethodGet, "/api/v2/telemetry/markers", "")
	require.NoError(t, controller.GetMarkers(ctx))
	body = decodeBody(t, rec)
	markers = body["data"].([]any)
	marker = markers[0].(map[string]any)
	assert.InDelta(t, 61.5, marker["latitude"], 1e-9, "cached markers are served within the TTL")
}

func TestGetTrackHistory(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)
	animal := createTestAnimal(t, ds, "collar-001")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		require.NoError(t, ds.SaveTrackPoint(&datastore.TrackPoint{
			AnimalID:   animal.ID,
			CollarID:   "collar-001",
			Latitude:   61.5 + float64(i)*0.001,
			Longitude:  23.8,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/telemetry/history?animal_id=1&limit=3", "")
	require.NoError(t, controller.GetTrackHistory(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	points, ok := body["data"].([]any)
	require.True(t, ok)
	assert.Len(t, points, 3)
	assert.Equal(t, float64(5), body["total"])

	// Newest first.
	first := points[0].(map[string]any)
	assert.InDelta(t, 61.504, first["Latitude"], 1e-9)
}

func TestGetTrackHistory_RequiresAnimalID(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/telemetry/history", "")
	require.NoError(t, controller.GetTrackHistory(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
