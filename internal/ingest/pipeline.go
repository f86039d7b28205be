package ingest

import (
	"log/slog"
	"time"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/events"
	"github.com/herdtrack/herdtrack-go/internal/logging"
	"github.com/herdtrack/herdtrack-go/internal/observability/metrics"
)

// Routing path labels for metrics.
const (
	pathCorrection = "correction"
	pathAttributed = "attributed"
	pathSentinel   = "sentinel"
)

// Pipeline routes location reports into the telemetry store and publishes
// live updates. It is safe for concurrent use; ordering between concurrent
// reports for the same entity is decided by the store's keyed last-write-wins
// upsert, not by the pipeline.
type Pipeline struct {
	settings *conf.Settings
	ds       datastore.Interface
	metrics  *metrics.IngestMetrics
	logger   *slog.Logger
}

// New creates an ingestion pipeline. The metrics collector may be nil.
func New(settings *conf.Settings, ds datastore.Interface, m *metrics.IngestMetrics) *Pipeline {
	return &Pipeline{
		settings: settings,
		ds:       ds,
		metrics:  m,
		logger:   logging.ForService("ingest"),
	}
}

// Ingest validates and routes a single report. Routing order:
//
//  1. A non-zero UpdateID makes the report a correction: the existing
//     history row is overwritten in place, then the current position is
//     reconciled under the row's entity key.
//  2. Missing coordinates fail validation.
//  3. A report with entity identity appends a history row, then upserts
//     the current position for that entity.
//  4. A report without identity upserts only the sentinel current
//     position; no history row is written.
//
// A history write failure is fatal and returned; a current-position upsert
// failure after a durable history write is logged and swallowed, because
// history durability matters more than dashboard freshness. The live update
// publish never fails the call.
func (p *Pipeline) Ingest(report *Report) (*Ack, error) {
	if p.metrics != nil {
		timer := p.metrics.StartIngestTimer()
		defer timer.ObserveDuration()
	}

	if report == nil {
		return nil, p.validationFailure("report is nil", "report", nil)
	}

	if report.UpdateID != 0 {
		return p.ingestCorrection(report)
	}

	if !report.HasCoordinates() {
		return nil, p.validationFailure("latitude and longitude are required",
			"coordinates", nil)
	}
	if err := validateCoordinates(*report.Latitude, *report.Longitude); err != nil {
		if p.metrics != nil {
			p.metrics.IncrementValidationFailures()
		}
		return nil, err
	}

	entityKey, collarID, err := p.resolveEntity(report)
	if err != nil {
		return nil, err
	}

	if report.RecordedAt.IsZero() {
		report.RecordedAt = time.Now()
	}

	if entityKey == datastore.SentinelEntityID && !report.HasEntity() {
		return p.ingestSentinel(report)
	}
	if entityKey == datastore.SentinelEntityID {
		// Unresolvable collar: the report keeps its collar id for display
		// but reconciles into the sentinel key.
		p.logger.Warn("collar not attached to any animal, routing to sentinel",
			"collar_id", report.CollarID)
		return p.ingestSentinel(report)
	}

	return p.ingestAttributed(report, entityKey, collarID)
}

// ingestAttributed appends a history row and reconciles the current
// position for a report with entity identity.
func (p *Pipeline) ingestAttributed(report *Report, entityKey uint, collarID string) (*Ack, error) {
	if p.metrics != nil {
		p.metrics.IncrementReportsReceived(pathAttributed)
	}

	point := trackPointFromReport(report, entityKey, collarID)

	// Primary write: failure is fatal, neither the upsert nor the publish
	// is attempted.
	if err := p.ds.SaveTrackPoint(point); err != nil {
		if p.metrics != nil {
			p.metrics.IncrementHistoryWriteErrors()
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.IncrementHistoryWrites()
	}

	p.reconcileCurrent(report, entityKey, collarID)

	return &Ack{TrackPointID: point.ID, EntityKey: entityKey}, nil
}

// ingestSentinel upserts only the sentinel current position. No history row
// is written for unattributed raw points, so here the upsert is the primary
// write and its failure fails the call.
func (p *Pipeline) ingestSentinel(report *Report) (*Ack, error) {
	if p.metrics != nil {
		p.metrics.IncrementReportsReceived(pathSentinel)
	}

	position := currentPositionFromReport(report, datastore.SentinelEntityID, report.CollarID)
	if err := p.ds.UpsertCurrentPosition(position); err != nil {
		if p.metrics != nil {
			p.metrics.IncrementCurrentUpsertErrors()
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.IncrementCurrentUpserts()
	}

	p.publishLiveUpdate(datastore.SentinelEntityID, report.CollarID, report)

	return &Ack{EntityKey: datastore.SentinelEntityID}, nil
}

// ingestCorrection overwrites an existing history row in place and
// reconciles the current position under the row's entity key. Corrections
// are idempotent: re-applying the same correction leaves the same row with
// the same values. A correction may not change the row's entity identity.
func (p *Pipeline) ingestCorrection(report *Report) (*Ack, error) {
	if p.metrics != nil {
		p.metrics.IncrementReportsReceived(pathCorrection)
	}

	if !report.HasCoordinates() {
		return nil, p.validationFailure("correction requires latitude and longitude",
			"coordinates", nil)
	}
	if err := validateCoordinates(*report.Latitude, *report.Longitude); err != nil {
		if p.metrics != nil {
			p.metrics.IncrementValidationFailures()
		}
		return nil, err
	}

	existing, err := p.ds.GetTrackPoint(report.UpdateID)
	if err != nil {
		return nil, err
	}

	entityKey, collarID, err := p.resolveEntity(report)
	if err != nil {
		return nil, err
	}
	if entityKey != datastore.SentinelEntityID && entityKey != existing.AnimalID {
		return nil, p.validationFailure("correction may not change entity identity",
			"animal_id", entityKey)
	}
	entityKey = existing.AnimalID
	if collarID == "" {
		collarID = existing.CollarID
	}

	if report.RecordedAt.IsZero() {
		report.RecordedAt = time.Now()
	}

	// Full field overwrite: absent optional measurements clear the stored
	// values rather than preserving them.
	fields := map[string]any{
		"latitude":            *report.Latitude,
		"longitude":           *report.Longitude,
		"altitude":            report.Altitude,
		"accuracy_meters":     report.AccuracyMeters,
		"speed_kmh":           report.SpeedKmh,
		"heading_degrees":     report.HeadingDegrees,
		"battery_level":       report.BatteryLevel,
		"signal_quality":      report.SignalQuality,
		"temperature_celsius": report.TemperatureCelsius,
		"recorded_at":         report.RecordedAt,
		"collar_id":           collarID,
	}

	if err := p.ds.UpdateTrackPoint(report.UpdateID, fields); err != nil {
		if !errors.IsNotFound(err) && p.metrics != nil {
			p.metrics.IncrementHistoryWriteErrors()
		}
		return nil, err
	}
	if p.metrics != nil {
		p.metrics.IncrementCorrections()
	}

	// The current position is upserted even if the entity key had no prior
	// row; the corrected values become its latest position.
	p.reconcileCurrent(report, entityKey, collarID)

	return &Ack{TrackPointID: report.UpdateID, EntityKey: entityKey, Corrected: true}, nil
}

// reconcileCurrent upserts the current position and publishes the live
// update. This is the single boundary where secondary-path failures are
// logged and discarded: a failed upsert skips the publish but never fails
// the ingest call that already wrote history.
func (p *Pipeline) reconcileCurrent(report *Report, entityKey uint, collarID string) {
	position := currentPositionFromReport(report, entityKey, collarID)
	if err := p.ds.UpsertCurrentPosition(position); err != nil {
		if p.metrics != nil {
			p.metrics.IncrementCurrentUpsertErrors()
		}
		p.logger.Error("current position upsert failed, history row remains durable",
			"entity_key", entityKey,
			"collar_id", collarID,
			"error", err)
		return
	}
	if p.metrics != nil {
		p.metrics.IncrementCurrentUpserts()
	}

	p.publishLiveUpdate(entityKey, collarID, report)
}

// publishLiveUpdate broadcasts the reconciled position to in-process
// subscribers. Fire and forget: failures are logged and swallowed.
func (p *Pipeline) publishLiveUpdate(entityKey uint, collarID string, report *Report) {
	if !events.HasActiveConsumers() {
		return
	}

	battery := 0.0
	if report.BatteryLevel != nil {
		battery = *report.BatteryLevel
	}

	event, err := events.NewLocationEvent(entityKey, collarID,
		*report.Latitude, *report.Longitude, report.RecordedAt, battery)
	if err != nil {
		p.logger.Warn("failed to build live update event", "error", err)
		return
	}

	if events.GetEventBus().TryPublishLocation(event) {
		if p.metrics != nil {
			p.metrics.IncrementEventsPublished()
		}
	} else {
		if p.metrics != nil {
			p.metrics.IncrementEventsDropped()
		}
		if p.settings != nil && p.settings.Ingest.Debug {
			p.logger.Debug("live update dropped", "entity_key", entityKey)
		}
	}
}

// resolveEntity maps the report's identity fields to a current-position key.
// A report with an animal id uses it directly; a collar id is resolved
// through the animals table. An unresolvable collar leaves the report
// without identity, so it follows the sentinel path.
func (p *Pipeline) resolveEntity(report *Report) (entityKey uint, collarID string, err error) {
	if report.AnimalID != 0 {
		return report.AnimalID, report.CollarID, nil
	}

	if report.CollarID == "" {
		return datastore.SentinelEntityID, "", nil
	}

	animal, err := p.ds.GetAnimalByCollar(report.CollarID)
	if err != nil {
		if errors.IsNotFound(err) {
			return datastore.SentinelEntityID, report.CollarID, nil
		}
		return 0, "", err
	}

	return animal.ID, report.CollarID, nil
}

// validationFailure records the metric and builds a validation error.
func (p *Pipeline) validationFailure(message, field string, value any) error {
	if p.metrics != nil {
		p.metrics.IncrementValidationFailures()
	}
	return errors.Newf("%s", message).
		Component("ingest").
		Category(errors.CategoryValidation).
		Context("field", field).
		Context("value", value).
		Build()
}

// validateCoordinates enforces the WGS84 coordinate domain.
func validateCoordinates(latitude, longitude float64) error {
	if latitude < -90 || latitude > 90 {
		return errors.Newf("latitude must be between -90 and 90, got %f", latitude).
			Component("ingest").
			Category(errors.CategoryValidation).
			Context("latitude", latitude).
			Build()
	}
	if longitude < -180 || longitude > 180 {
		return errors.Newf("longitude must be between -180 and 180, got %f", longitude).
			Component("ingest").
			Category(errors.CategoryValidation).
			Context("longitude", longitude).
			Build()
	}
	return nil
}

// trackPointFromReport maps a report to a full history row.
func trackPointFromReport(report *Report, entityKey uint, collarID string) *datastore.TrackPoint {
	return &datastore.TrackPoint{
		SourceNode:         report.SourceNode,
		AnimalID:           entityKey,
		CollarID:           collarID,
		Latitude:           *report.Latitude,
		Longitude:          *report.Longitude,
		Altitude:           report.Altitude,
		AccuracyMeters:     report.AccuracyMeters,
		SpeedKmh:           report.SpeedKmh,
		HeadingDegrees:     report.HeadingDegrees,
		BatteryLevel:       report.BatteryLevel,
		SignalQuality:      report.SignalQuality,
		TemperatureCelsius: report.TemperatureCelsius,
		RecordedAt:         report.RecordedAt,
	}
}

// currentPositionFromReport maps a report to the mirrored subset of fields
// stored in the current position table. Altitude, accuracy, speed and
// heading stay history-only.
func currentPositionFromReport(report *Report, entityKey uint, collarID string) *datastore.CurrentPosition {
	return &datastore.CurrentPosition{
		AnimalID:           entityKey,
		CollarID:           collarID,
		Latitude:           *report.Latitude,
		Longitude:          *report.Longitude,
		RecordedAt:         report.RecordedAt,
		BatteryLevel:       report.BatteryLevel,
		SignalQuality:      report.SignalQuality,
		TemperatureCelsius: report.TemperatureCelsius,
	}
}
