// Package alerting records herd alerts (fence breaches, low battery, device
// faults), walks them through their status lifecycle, and pushes best-effort
// notifications for newly raised conditions.
package alerting

import (
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/datastore"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/logging"
	"github.com/herdtrack/herdtrack-go/internal/notification"
)

// AlertPayload is an incoming alert to record. Optional associations and
// coordinates are pointers so absence is representable.
type AlertPayload struct {
	FarmID        uint     `json:"farm_id"`
	AnimalID      *uint    `json:"animal_id,omitempty"`
	FenceID       *uint    `json:"fence_id,omitempty"`
	Type          string   `json:"type"`
	Severity      string   `json:"severity"`
	Title         string   `json:"title"`
	Message       string   `json:"message"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
	AutoGenerated bool     `json:"auto_generated"`
}

// Service owns alert recording and lifecycle transitions.
type Service struct {
	settings *conf.Settings
	ds       datastore.Interface
	logger   *slog.Logger
}

// New creates an alerting service.
func New(settings *conf.Settings, ds datastore.Interface) *Service {
	return &Service{
		settings: settings,
		ds:       ds,
		logger:   logging.ForService("alerting"),
	}
}

// RecordAlert persists an alert and fires a best-effort push notification.
// Over-length text fields are truncated to the storage caps rather than
// rejected; a collar in the field should never lose an alert to a long
// message. The notification can fail without affecting the stored alert or
// the returned result.
func (s *Service) RecordAlert(payload *AlertPayload) (*datastore.Alert, error) {
	if payload == nil {
		return nil, s.validationFailure("alert payload is nil", "payload")
	}
	if payload.FarmID == 0 {
		return nil, s.validationFailure("farm_id is required", "farm_id")
	}
	if payload.Type == "" {
		return nil, s.validationFailure("type is required", "type")
	}

	alert := &datastore.Alert{
		FarmID:        payload.FarmID,
		AnimalID:      payload.AnimalID,
		FenceID:       payload.FenceID,
		Type:          truncate(payload.Type, datastore.AlertTypeMaxLen),
		Severity:      truncate(payload.Severity, datastore.AlertSeverityMaxLen),
		Title:         truncate(payload.Title, datastore.AlertTitleMaxLen),
		Message:       truncate(payload.Message, datastore.AlertMessageMaxLen),
		Latitude:      payload.Latitude,
		Longitude:     payload.Longitude,
		AutoGenerated: payload.AutoGenerated,
	}

	if err := s.ds.InsertAlert(alert); err != nil {
		return nil, err
	}

	s.notify(alert)

	return alert, nil
}

// Acknowledge transitions an active alert to acknowledged, stamping the actor.
func (s *Service) Acknowledge(id uint, actor string) error {
	return s.ds.UpdateAlertStatus(id, datastore.AlertStatusAcknowledged, actor, time.Now())
}

// Resolve transitions an alert to resolved, stamping the actor.
func (s *Service) Resolve(id uint, actor string) error {
	return s.ds.UpdateAlertStatus(id, datastore.AlertStatusResolved, actor, time.Now())
}

// Get returns a single alert by id.
func (s *Service) Get(id uint) (*datastore.Alert, error) {
	return s.ds.GetAlert(id)
}

// List returns alerts, optionally filtered by status, newest first.
func (s *Service) List(status string, limit, offset int) ([]datastore.Alert, error) {
	return s.ds.GetAlerts(status, limit, offset)
}

// Clear bulk-deletes a farm's alerts. Privileged callers only; everyone
// else gets a forbidden error and nothing is deleted.
func (s *Service) Clear(farmID uint, privileged bool) (int64, error) {
	if !privileged {
		return 0, errors.ForbiddenError("clearing alerts requires elevated access")
	}
	if farmID == 0 {
		return 0, s.validationFailure("farm_id is required", "farm_id")
	}

	deleted, err := s.ds.ClearAlerts(farmID)
	if err != nil {
		return 0, err
	}

	s.logger.Info("alerts cleared", "farm_id", farmID, "deleted", deleted)
	return deleted, nil
}

// notify pushes the alert to the notification service. Failures are
// invisible to the caller; the alert row is already durable.
func (s *Service) notify(alert *datastore.Alert) {
	if s.settings != nil && !s.settings.Notification.Enabled {
		return
	}

	metadata := map[string]any{
		"alert_id": alert.ID,
		"farm_id":  alert.FarmID,
		"type":     alert.Type,
	}
	if alert.AnimalID != nil {
		metadata["animal_id"] = *alert.AnimalID
	}
	if alert.FenceID != nil {
		metadata["fence_id"] = *alert.FenceID
	}

	notification.NotifyAlert(alert.Severity, alert.Title, alert.Message, metadata)
}

func (s *Service) validationFailure(message, field string) error {
	return errors.Newf("%s", message).
		Component("alerting").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}

// truncate caps a string at max bytes without splitting a UTF-8 rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
