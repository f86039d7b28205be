// mysql_integration_test.go: Integration test for the MySQL store.
//
// Runs the full dual-write surface against a real MySQL server in a
// container. Skipped with -short or when Docker is unavailable.
package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcmysql "github.com/testcontainers/testcontainers-go/modules/mysql"
)

// setupMySQLStore starts a disposable MySQL container and opens a MySQLStore
// against it.
func setupMySQLStore(t *testing.T) Interface {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping MySQL integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcmysql.Run(ctx, "mysql:8.0",
		tcmysql.WithDatabase("herdtrack_test"),
		tcmysql.WithUsername("herdtrack"),
		tcmysql.WithPassword("herdtrack"),
	)
	if err != nil {
		t.Skipf("could not start MySQL container (docker unavailable?): %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate MySQL container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err, "failed to get container host")

	port, err := container.MappedPort(ctx, "3306/tcp")
	require.NoError(t, err, "failed to get container port")

	settings := createTestSettings(t)
	settings.Output.MySQL.Enabled = true
	settings.Output.MySQL.Username = "herdtrack"
	settings.Output.MySQL.Password = "herdtrack"
	settings.Output.MySQL.Database = "herdtrack_test"
	settings.Output.MySQL.Host = host
	settings.Output.MySQL.Port = port.Port()

	ds := New(settings)
	require.NoError(t, ds.Open(), "failed to open MySQL store")
	t.Cleanup(func() {
		assert.NoError(t, ds.Close(), "failed to close MySQL store")
	})

	return ds
}

func TestMySQLStore_DualWriteSurface(t *testing.T) {
	ds := setupMySQLStore(t)

	recordedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	// History append.
	point := TrackPoint{
		AnimalID:   7,
		CollarID:   "collar-007",
		Latitude:   40.1,
		Longitude:  -73.9,
		RecordedAt: recordedAt,
	}
	require.NoError(t, ds.SaveTrackPoint(&point))
	require.NotZero(t, point.ID)

	// Keyed upsert: insert then overwrite under the same entity key.
	require.NoError(t, ds.UpsertCurrentPosition(&CurrentPosition{
		AnimalID:   7,
		CollarID:   "collar-007",
		Latitude:   40.1,
		Longitude:  -73.9,
		RecordedAt: recordedAt,
	}))
	require.NoError(t, ds.UpsertCurrentPosition(&CurrentPosition{
		AnimalID:   7,
		CollarID:   "collar-007",
		Latitude:   40.2,
		Longitude:  -73.9,
		RecordedAt: recordedAt.Add(time.Minute),
	}))

	got, err := ds.GetCurrentPosition(7)
	require.NoError(t, err)
	assert.InDelta(t, 40.2, got.Latitude, 1e-9)

	mysqlStore, ok := ds.(*MySQLStore)
	require.True(t, ok)
	var count int64
	require.NoError(t, mysqlStore.DB.Model(&CurrentPosition{}).
		Where("animal_id = ?", 7).Count(&count).Error)
	assert.Equal(t, int64(1), count, "upsert must not duplicate rows on MySQL")

	// Command queue round trip.
	cmd := Command{
		DeviceID:    "collar-007",
		CommandType: CommandTypeControl,
		Payload:     `{"sound":true}`,
		ExpiresAt:   time.Now().Add(time.Hour),
	}
	require.NoError(t, ds.InsertCommand(&cmd))

	pending, err := ds.PendingCommands("collar-007", time.Now())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	transitioned, err := ds.AcknowledgeCommand(cmd.ID, "executed", time.Now())
	require.NoError(t, err)
	assert.True(t, transitioned)
}
