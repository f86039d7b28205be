// fences_test.go: tests for fence and animal endpoints
package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFence(t *testing.T) {
	e, ds, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/fences",
		`{"farm_id": 1, "name": "north pasture", "latitude": 61.5, "longitude": 23.8, "radius_meters": 250}`)
	require.NoError(t, controller.CreateFence(ctx))
	assert.Equal(t, http.StatusCreated, rec.Code)

	fences, err := ds.GetFences(1)
	require.NoError(t, err)
	require.Len(t, fences, 1)
	assert.Equal(t, "north pasture", fences[0].Name)
	assert.True(t, fences[0].Active, "fences default to active")
}

func TestCreateFence_GeometryValidation(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	cases := []struct {
		name string
		body string
	}{
		{"radius below minimum", `{"farm_id": 1, "name": "f", "latitude": 61.5, "longitude": 23.8, "radius_meters": 10}`},
		{"radius above maximum", `{"farm_id": 1, "name": "f", "latitude": 61.5, "longitude": 23.8, "radius_meters": 20000}`},
		{"latitude out of range", `{"farm_id": 1, "name": "f", "latitude": 91, "longitude": 23.8, "radius_meters": 250}`},
		{"longitude out of range", `{"farm_id": 1, "name": "f", "latitude": 61.5, "longitude": 181, "radius_meters": 250}`},
		{"missing name", `{"farm_id": 1, "latitude": 61.5, "longitude": 23.8, "radius_meters": 250}`},
		{"missing farm", `{"name": "f", "latitude": 61.5, "longitude": 23.8, "radius_meters": 250}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/fences", tc.body)
			require.NoError(t, controller.CreateFence(ctx))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestListFences_FilterByFarm(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, _ := newJSONContext(e, http.MethodPost, "/api/v2/fences",
		`{"farm_id": 1, "name": "north", "latitude": 61.5, "longitude": 23.8, "radius_meters": 250}`)
	require.NoError(t, controller.CreateFence(ctx))
	ctx, _ = newJSONContext(e, http.MethodPost, "/api/v2/fences",
		`{"farm_id": 2, "name": "south", "latitude": 60.1, "longitude": 24.9, "radius_meters": 500}`)
	require.NoError(t, controller.CreateFence(ctx))

	ctx, rec := newJSONContext(e, http.MethodGet, "/api/v2/fences?farm_id=2", "")
	require.NoError(t, controller.ListFences(ctx))
	body := decodeBody(t, rec)
	fences := body["data"].([]any)
	require.Len(t, fences, 1)
	assert.Equal(t, "south", fences[0].(map[string]any)["Name"])
}

func TestCreateAndListAnimals(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/animals",
		`{"farm_id": 1, "name": "Mansikki", "tag": "FI-042", "species": "cattle", "collar_id": "collar-001"}`)
	require.NoError(t, controller.CreateAnimal(ctx))
	assert.Equal(t, http.StatusCreated, rec.Code)

	ctx, rec = newJSONContext(e, http.MethodGet, "/api/v2/animals?farm_id=1", "")
	require.NoError(t, controller.ListAnimals(ctx))
	body := decodeBody(t, rec)
	animals := body["data"].([]any)
	require.Len(t, animals, 1)
	assert.Equal(t, "Mansikki", animals[0].(map[string]any)["Name"])
}

func TestCreateAnimal_Validation(t *testing.T) {
	e, _, controller := setupTestEnvironment(t)

	ctx, rec := newJSONContext(e, http.MethodPost, "/api/v2/animals", `{"farm_id": 1}`)
	require.NoError(t, controller.CreateAnimal(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	ctx, rec = newJSONContext(e, http.MethodPost, "/api/v2/animals", `{"name": "Mansikki"}`)
	require.NoError(t, controller.CreateAnimal(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
