// alerts.go: alert persistence and lifecycle transitions
package datastore

import (
	"fmt"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
)

// InsertAlert persists a new alert. Text fields are expected to be already
// truncated to the column caps by the alerting package.
func (ds *DataStore) InsertAlert(alert *Alert) error {
	if alert == nil {
		return validationError("alert is nil", "alert", nil)
	}

	if alert.Status == "" {
		alert.Status = AlertStatusActive
	}
	if alert.TriggeredAt.IsZero() {
		alert.TriggeredAt = time.Now()
	}

	if err := ds.DB.Create(alert).Error; err != nil {
		return dbError(err, "insert-alert", errors.PriorityMedium,
			"farm_id", alert.FarmID,
			"alert_type", alert.Type)
	}

	return nil
}

// GetAlert retrieves an alert by its ID.
func (ds *DataStore) GetAlert(id uint) (*Alert, error) {
	var alert Alert
	if err := ds.DB.First(&alert, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("alert", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get-alert", "", "alert_id", id)
	}
	return &alert, nil
}

// GetAlerts lists alerts newest first, optionally filtered by status.
func (ds *DataStore) GetAlerts(status string, limit, offset int) ([]Alert, error) {
	var alerts []Alert

	query := ds.DB.Order("triggered_at " + sortAscendingString(false))
	if status != "" {
		query = query.Where("status = ?", status)
	}

	err := query.Limit(limit).Offset(offset).Find(&alerts).Error
	if err != nil {
		return nil, dbError(err, "get-alerts", "", "status", status)
	}

	return alerts, nil
}

// UpdateAlertStatus transitions an alert to the given status, stamping the
// acting user and timestamp. Only the forward transitions
// active -> acknowledged -> resolved are allowed; anything else is a
// conflict.
func (ds *DataStore) UpdateAlertStatus(id uint, status, actor string, now time.Time) error {
	alert, err := ds.GetAlert(id)
	if err != nil {
		return err
	}

	fields := map[string]any{"status": status}

	switch status {
	case AlertStatusAcknowledged:
		if alert.Status != AlertStatusActive {
			return conflictError(
				errors.NewStd("alert is not active"),
				"update-alert-status", "invalid-transition",
				"alert_id", id, "current_status", alert.Status)
		}
		fields["acknowledged_by"] = actor
		fields["acknowledged_at"] = now
	case AlertStatusResolved:
		if alert.Status == AlertStatusResolved {
			return conflictError(
				errors.NewStd("alert is already resolved"),
				"update-alert-status", "invalid-transition",
				"alert_id", id, "current_status", alert.Status)
		}
		fields["resolved_by"] = actor
		fields["resolved_at"] = now
	default:
		return validationError("unknown alert status", "status", status)
	}

	if err := ds.DB.Model(&Alert{}).Where("id = ?", id).Updates(fields).Error; err != nil {
		return dbError(err, "update-alert-status", errors.PriorityMedium,
			"alert_id", id, "status", status)
	}

	return nil
}

// ClearAlerts deletes all alerts for a farm and returns the number removed.
// This is the privileged bulk administrative path; individual alerts are
// never deleted.
func (ds *DataStore) ClearAlerts(farmID uint) (int64, error) {
	result := ds.DB.Where("farm_id = ?", farmID).Delete(&Alert{})
	if result.Error != nil {
		return 0, dbError(result.Error, "clear-alerts", errors.PriorityHigh,
			"farm_id", farmID)
	}
	return result.RowsAffected, nil
}
