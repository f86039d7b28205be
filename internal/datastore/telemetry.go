// telemetry.go: track point history and current position operations
package datastore

import (
	"fmt"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveTrackPoint appends a new row to the track history. This is the primary
// write of the ingestion dual-write; its failure is fatal to the ingest call.
func (ds *DataStore) SaveTrackPoint(point *TrackPoint) error {
	if point == nil {
		return validationError("track point is nil", "point", nil)
	}

	if err := ds.DB.Create(point).Error; err != nil {
		return dbError(err, "save-track-point", errors.PriorityHigh,
			"animal_id", point.AnimalID,
			"collar_id", point.CollarID)
	}

	return nil
}

// UpdateTrackPoint mutates an existing history row in place. This is the only
// mutation allowed on track history and backs the explicit correction path.
func (ds *DataStore) UpdateTrackPoint(id uint, fields map[string]any) error {
	if len(fields) == 0 {
		return validationError("no fields to update", "fields", fields)
	}

	result := ds.DB.Model(&TrackPoint{}).Where("id = ?", id).Updates(fields)
	if result.Error != nil {
		return dbError(result.Error, "update-track-point", errors.PriorityHigh,
			"track_point_id", id)
	}
	if result.RowsAffected == 0 {
		return notFoundError("track point", fmt.Sprintf("%d", id))
	}

	return nil
}

// GetTrackPoint retrieves a single history row by its ID.
func (ds *DataStore) GetTrackPoint(id uint) (*TrackPoint, error) {
	var point TrackPoint
	if err := ds.DB.First(&point, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("track point", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get-track-point", "", "track_point_id", id)
	}
	return &point, nil
}

// GetTrackHistory retrieves the most recent track points for an animal,
// newest first.
func (ds *DataStore) GetTrackHistory(animalID uint, limit, offset int) ([]TrackPoint, error) {
	var points []TrackPoint

	err := ds.DB.Where("animal_id = ?", animalID).
		Order("recorded_at " + sortAscendingString(false)).
		Limit(limit).
		Offset(offset).
		Find(&points).Error
	if err != nil {
		return nil, dbError(err, "get-track-history", "", "animal_id", animalID)
	}

	return points, nil
}

// CountTrackPoints returns the number of history rows for an animal.
func (ds *DataStore) CountTrackPoints(animalID uint) (int64, error) {
	var count int64
	err := ds.DB.Model(&TrackPoint{}).Where("animal_id = ?", animalID).Count(&count).Error
	if err != nil {
		return 0, dbError(err, "count-track-points", "", "animal_id", animalID)
	}
	return count, nil
}

// UpsertCurrentPosition inserts or overwrites the single current position row
// for the entity key. Only the mirrored columns are overwritten on conflict;
// the datastore's keyed last-write-wins semantics decide races between
// concurrent ingests for the same entity.
func (ds *DataStore) UpsertCurrentPosition(position *CurrentPosition) error {
	if position == nil {
		return validationError("current position is nil", "position", nil)
	}

	position.UpdatedAt = time.Now()

	err := ds.DB.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "animal_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"collar_id",
			"latitude",
			"longitude",
			"recorded_at",
			"battery_level",
			"signal_quality",
			"temperature_celsius",
			"updated_at",
		}),
	}).Create(position).Error
	if err != nil {
		return dbError(err, "upsert-current-position", errors.PriorityMedium,
			"entity_key", position.AnimalID)
	}

	return nil
}

// GetCurrentPosition retrieves the current position row for an entity key.
// Use SentinelEntityID for the unattributed raw feed.
func (ds *DataStore) GetCurrentPosition(entityKey uint) (*CurrentPosition, error) {
	var position CurrentPosition
	if err := ds.DB.Where("animal_id = ?", entityKey).First(&position).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("current position", fmt.Sprintf("%d", entityKey))
		}
		return nil, dbError(err, "get-current-position", "", "entity_key", entityKey)
	}
	return &position, nil
}

// GetCurrentPositionByCollar resolves a collar to its animal and returns that
// animal's current position.
func (ds *DataStore) GetCurrentPositionByCollar(collarID string) (*CurrentPosition, error) {
	animal, err := ds.GetAnimalByCollar(collarID)
	if err != nil {
		return nil, err
	}
	return ds.GetCurrentPosition(animal.ID)
}

// GetMarkers returns all current positions joined with animal display
// metadata for map rendering. The sentinel row joins with no animal and is
// returned with empty metadata. Coordinates are non-nullable columns, so
// every row carries a plottable position.
func (ds *DataStore) GetMarkers() ([]Marker, error) {
	var markers []Marker

	err := ds.DB.Table("current_positions").
		Select("current_positions.animal_id, animals.name, animals.tag, " +
			"current_positions.collar_id, current_positions.latitude, " +
			"current_positions.longitude, current_positions.recorded_at, " +
			"current_positions.battery_level").
		Joins("LEFT JOIN animals ON animals.id = current_positions.animal_id").
		Order("current_positions.recorded_at DESC").
		Scan(&markers).Error
	if err != nil {
		return nil, dbError(err, "get-markers", "")
	}

	return markers, nil
}
