// fences.go: virtual fence definitions
package datastore

import (
	"fmt"

	"github.com/herdtrack/herdtrack-go/internal/errors"
	"gorm.io/gorm"
)

// CreateFence validates and persists a new virtual fence. Geometry bounds
// are enforced here so no invalid fence ever reaches storage.
func (ds *DataStore) CreateFence(fence *Fence) error {
	if fence == nil {
		return validationError("fence is nil", "fence", nil)
	}
	if fence.Name == "" {
		return validationError("fence name is empty", "name", "")
	}
	if fence.Latitude < -90 || fence.Latitude > 90 {
		return validationError("fence latitude out of range", "latitude", fence.Latitude)
	}
	if fence.Longitude < -180 || fence.Longitude > 180 {
		return validationError("fence longitude out of range", "longitude", fence.Longitude)
	}
	if fence.RadiusMeters < FenceRadiusMin || fence.RadiusMeters > FenceRadiusMax {
		return validationError("fence radius out of range", "radius_meters", fence.RadiusMeters)
	}

	if err := ds.DB.Create(fence).Error; err != nil {
		return dbError(err, "create-fence", "", "farm_id", fence.FarmID)
	}

	return nil
}

// GetFence retrieves a fence by its ID.
func (ds *DataStore) GetFence(id uint) (*Fence, error) {
	var fence Fence
	if err := ds.DB.First(&fence, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFoundError("fence", fmt.Sprintf("%d", id))
		}
		return nil, dbError(err, "get-fence", "", "fence_id", id)
	}
	return &fence, nil
}

// GetFences lists fences, optionally scoped to a farm (0 for all).
func (ds *DataStore) GetFences(farmID uint) ([]Fence, error) {
	var fences []Fence

	query := ds.DB.Order("name ASC")
	if farmID != 0 {
		query = query.Where("farm_id = ?", farmID)
	}

	if err := query.Find(&fences).Error; err != nil {
		return nil, dbError(err, "get-fences", "", "farm_id", farmID)
	}

	return fences, nil
}
