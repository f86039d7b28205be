// Package ingest implements the location ingestion and current-state
// reconciliation pipeline: validate and route an incoming GPS report,
// append it to the track history, upsert the per-entity current position,
// and publish a live update to in-process subscribers.
package ingest

import "time"

// Report is a transient incoming location report from a collar, a raw GPS
// feed or an operator correction. Optional measurements are pointers so an
// absent value is distinguishable from zero.
type Report struct {
	// UpdateID, when non-zero, marks the report as a correction of the
	// existing history row with that id.
	UpdateID uint `json:"update_id,omitempty"`

	// Entity identity. Either may be absent; a collar id is resolved to an
	// animal through the animals table.
	AnimalID uint   `json:"animal_id,omitempty"`
	CollarID string `json:"collar_id,omitempty"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	Altitude           *float64 `json:"altitude,omitempty"`
	AccuracyMeters     *float64 `json:"accuracy_meters,omitempty"`
	SpeedKmh           *float64 `json:"speed_kmh,omitempty"`
	HeadingDegrees     *float64 `json:"heading_degrees,omitempty"`
	BatteryLevel       *float64 `json:"battery_level,omitempty"`
	SignalQuality      *int     `json:"signal_quality,omitempty"`
	TemperatureCelsius *float64 `json:"temperature_celsius,omitempty"`

	// RecordedAt defaults to ingestion time when the reporter omits it.
	RecordedAt time.Time `json:"recorded_at,omitempty"`

	// SourceNode identifies the ingesting node, stamped on history rows.
	SourceNode string `json:"-"`
}

// HasEntity reports whether the report carries any entity identity.
func (r *Report) HasEntity() bool {
	return r.AnimalID != 0 || r.CollarID != ""
}

// HasCoordinates reports whether both coordinates are present.
func (r *Report) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}

// Ack is the successful result of an ingest call.
type Ack struct {
	// TrackPointID is the id of the history row written or corrected,
	// zero when the report followed the sentinel path.
	TrackPointID uint `json:"id,omitempty"`

	// EntityKey is the current-position key the report reconciled into.
	EntityKey uint `json:"entity_key"`

	// Corrected is true when the report mutated an existing history row.
	Corrected bool `json:"corrected,omitempty"`
}
