// Package events provides an asynchronous event bus for decoupling components
package events

import (
	"fmt"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/errors"
)

// LocationEvent represents a processed location report that can be fanned out
// asynchronously to live subscribers
type LocationEvent interface {
	// GetAnimalID returns the database ID of the animal, or the sentinel
	// zero value for reports that carried no animal identity
	GetAnimalID() uint

	// GetCollarID returns the collar identifier the report arrived with
	GetCollarID() string

	// GetLatitude returns the reported latitude in decimal degrees
	GetLatitude() float64

	// GetLongitude returns the reported longitude in decimal degrees
	GetLongitude() float64

	// GetRecordedAt returns when the position was recorded on the collar
	GetRecordedAt() time.Time

	// GetBattery returns the battery level in percent, NaN-safe zero when absent
	GetBattery() float64

	// GetMetadata returns additional context data
	GetMetadata() map[string]any
}

// locationEventImpl is the concrete implementation of LocationEvent
type locationEventImpl struct {
	animalID   uint
	collarID   string
	latitude   float64
	longitude  float64
	recordedAt time.Time
	battery    float64
	metadata   map[string]any
}

// NewLocationEvent creates a new location event with input validation
func NewLocationEvent(
	animalID uint,
	collarID string,
	latitude, longitude float64,
	recordedAt time.Time,
	battery float64,
) (LocationEvent, error) {
	// Validate input parameters to prevent invalid LocationEvent instances
	if latitude < -90 || latitude > 90 {
		return nil, errors.Newf("NewLocationEvent: latitude must be between -90 and 90, got %f", latitude).
			Component("events").
			Category(errors.CategoryValidation).
			Context("latitude", latitude).
			Build()
	}
	if longitude < -180 || longitude > 180 {
		return nil, errors.Newf("NewLocationEvent: longitude must be between -180 and 180, got %f", longitude).
			Component("events").
			Category(errors.CategoryValidation).
			Context("longitude", longitude).
			Build()
	}
	if recordedAt.IsZero() {
		return nil, errors.Newf("NewLocationEvent: recordedAt cannot be zero").
			Component("events").
			Category(errors.CategoryValidation).
			Build()
	}

	return &locationEventImpl{
		animalID:   animalID,
		collarID:   collarID,
		latitude:   latitude,
		longitude:  longitude,
		recordedAt: recordedAt,
		battery:    battery,
		metadata:   make(map[string]any),
	}, nil
}

// GetAnimalID returns the database ID of the animal
func (e *locationEventImpl) GetAnimalID() uint {
	return e.animalID
}

// GetCollarID returns the collar identifier the report arrived with
func (e *locationEventImpl) GetCollarID() string {
	return e.collarID
}

// GetLatitude returns the reported latitude in decimal degrees
func (e *locationEventImpl) GetLatitude() float64 {
	return e.latitude
}

// GetLongitude returns the reported longitude in decimal degrees
func (e *locationEventImpl) GetLongitude() float64 {
	return e.longitude
}

// GetRecordedAt returns when the position was recorded on the collar
func (e *locationEventImpl) GetRecordedAt() time.Time {
	return e.recordedAt
}

// GetBattery returns the battery level in percent
func (e *locationEventImpl) GetBattery() float64 {
	return e.battery
}

// GetMetadata returns additional context data
func (e *locationEventImpl) GetMetadata() map[string]any {
	return e.metadata
}

// String returns a string representation of the location event
func (e *locationEventImpl) String() string {
	return fmt.Sprintf("Location: animal=%d collar=%s (%.5f, %.5f) at %s",
		e.animalID, e.collarID, e.latitude, e.longitude, e.recordedAt.Format(time.RFC3339))
}
