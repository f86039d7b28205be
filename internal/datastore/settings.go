// settings.go: key-value store for small global flags
package datastore

import (
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SettingDeviceControl is the key of the global device control toggle.
// When the row is absent the toggle defaults to enabled.
const SettingDeviceControl = "device_control_enabled"

// GetSetting retrieves the value for a key. Absent keys return a not-found
// error so callers can apply their documented defaults.
func (ds *DataStore) GetSetting(key string) (string, error) {
	var setting AppSetting
	if err := ds.DB.Where("key = ?", key).First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", notFoundError("setting", key)
		}
		return "", dbError(err, "get-setting", "", "key", key)
	}
	return setting.Value, nil
}

// SetSetting inserts or overwrites a key-value row.
func (ds *DataStore) SetSetting(key, value string) error {
	if key == "" {
		return validationError("setting key is empty", "key", "")
	}

	setting := AppSetting{Key: key, Value: value}

	err := ds.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&setting).Error
	if err != nil {
		return dbError(err, "set-setting", "", "key", key)
	}

	return nil
}
