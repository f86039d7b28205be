// alerts_test.go: Tests for alert persistence and lifecycle transitions.
package datastore

import (
	"testing"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertAlert_AppliesDefaults(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	alert := Alert{
		FarmID:   1,
		Type:     "low_battery",
		Severity: "warning",
		Title:    "Low battery",
		Message:  "Collar battery below 20%",
	}
	require.NoError(t, ds.InsertAlert(&alert))
	require.NotZero(t, alert.ID)
	assert.Equal(t, AlertStatusActive, alert.Status)
	assert.False(t, alert.TriggeredAt.IsZero())
}

func TestUpdateAlertStatus_ForwardTransitions(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	alert := Alert{FarmID: 1, Type: "fence_breach", Severity: "critical", Title: "Breach"}
	require.NoError(t, ds.InsertAlert(&alert))

	now := time.Now()

	require.NoError(t, ds.UpdateAlertStatus(alert.ID, AlertStatusAcknowledged, "operator-1", now))
	got, err := ds.GetAlert(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusAcknowledged, got.Status)
	assert.Equal(t, "operator-1", got.AcknowledgedBy)
	require.NotNil(t, got.AcknowledgedAt)

	require.NoError(t, ds.UpdateAlertStatus(alert.ID, AlertStatusResolved, "operator-2", now.Add(time.Minute)))
	got, err = ds.GetAlert(alert.ID)
	require.NoError(t, err)
	assert.Equal(t, AlertStatusResolved, got.Status)
	assert.Equal(t, "operator-2", got.ResolvedBy)
	require.NotNil(t, got.ResolvedAt)
}

func TestUpdateAlertStatus_RejectsInvalidTransitions(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	alert := Alert{FarmID: 1, Type: "device_fault", Severity: "info", Title: "Fault"}
	require.NoError(t, ds.InsertAlert(&alert))

	now := time.Now()
	require.NoError(t, ds.UpdateAlertStatus(alert.ID, AlertStatusResolved, "operator-1", now))

	// Resolved is terminal; acknowledging or re-resolving is a conflict.
	err := ds.UpdateAlertStatus(alert.ID, AlertStatusAcknowledged, "operator-2", now)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict), "got %v", err)

	err = ds.UpdateAlertStatus(alert.ID, AlertStatusResolved, "operator-2", now)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConflict), "got %v", err)
}

func TestUpdateAlertStatus_UnknownStatusIsValidationError(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	alert := Alert{FarmID: 1, Type: "device_fault", Severity: "info", Title: "Fault"}
	require.NoError(t, ds.InsertAlert(&alert))

	err := ds.UpdateAlertStatus(alert.ID, "archived", "operator-1", time.Now())
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err), "got %v", err)
}

func TestGetAlerts_FiltersByStatus(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	first := Alert{FarmID: 2, Type: "low_battery", Severity: "warning", Title: "A"}
	require.NoError(t, ds.InsertAlert(&first))
	second := Alert{FarmID: 2, Type: "fence_breach", Severity: "critical", Title: "B"}
	require.NoError(t, ds.InsertAlert(&second))
	require.NoError(t, ds.UpdateAlertStatus(second.ID, AlertStatusResolved, "op", time.Now()))

	active, err := ds.GetAlerts(AlertStatusActive, 100, 0)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, first.ID, active[0].ID)

	all, err := ds.GetAlerts("", 100, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClearAlerts_RemovesOnlyFarmRows(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	require.NoError(t, ds.InsertAlert(&Alert{FarmID: 5, Type: "x", Severity: "info", Title: "X"}))
	require.NoError(t, ds.InsertAlert(&Alert{FarmID: 5, Type: "y", Severity: "info", Title: "Y"}))
	require.NoError(t, ds.InsertAlert(&Alert{FarmID: 6, Type: "z", Severity: "info", Title: "Z"}))

	removed, err := ds.ClearAlerts(5)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	remaining, err := ds.GetAlerts("", 100, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, uint(6), remaining[0].FarmID)
}
