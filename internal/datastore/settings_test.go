// settings_test.go: Tests for the key-value settings store.
package datastore

import (
	"testing"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetting_AbsentKeyIsNotFound(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	_, err := ds.GetSetting(SettingDeviceControl)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err), "absent key should be not-found so callers apply defaults")
}

func TestSetSetting_UpsertOverwrites(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	require.NoError(t, ds.SetSetting(SettingDeviceControl, "on"))

	value, err := ds.GetSetting(SettingDeviceControl)
	require.NoError(t, err)
	assert.Equal(t, "on", value)

	require.NoError(t, ds.SetSetting(SettingDeviceControl, "off"))

	value, err = ds.GetSetting(SettingDeviceControl)
	require.NoError(t, err)
	assert.Equal(t, "off", value)
}

func TestSetSetting_RejectsEmptyKey(t *testing.T) {
	t.Parallel()

	settings := createTestSettings(t)
	ds := createDatabase(t, settings)

	err := ds.SetSetting("", "value")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}
