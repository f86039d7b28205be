package mqtt

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/herdtrack/herdtrack-go/internal/conf"
	"github.com/herdtrack/herdtrack-go/internal/errors"
	"github.com/herdtrack/herdtrack-go/internal/ingest"
	"github.com/herdtrack/herdtrack-go/internal/observability/metrics"
)

// Uplink subscribes to the collar location topic and feeds every payload
// into the ingestion pipeline. Topics follow herdtrack/<collar_id>/location;
// the collar id from the topic fills in when the payload omits it.
type Uplink struct {
	settings *conf.Settings
	client   Client
	pipeline *ingest.Pipeline
	metrics  *metrics.MQTTMetrics
}

// NewUplink creates an uplink feeding the given pipeline.
func NewUplink(settings *conf.Settings, client Client, pipeline *ingest.Pipeline, m *metrics.MQTTMetrics) *Uplink {
	return &Uplink{
		settings: settings,
		client:   client,
		pipeline: pipeline,
		metrics:  m,
	}
}

// Start connects to the broker and subscribes to the configured topic.
func (u *Uplink) Start(ctx context.Context) error {
	if err := u.client.Connect(ctx); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTConnection).
			Context("broker", u.settings.MQTT.Broker).
			Build()
	}

	topic := u.settings.MQTT.Topic
	if topic == "" {
		topic = "herdtrack/+/location"
	}
	if err := u.client.Subscribe(topic, u.handleMessage); err != nil {
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryMQTTSubscribe).
			Context("topic", topic).
			Build()
	}
	return nil
}

// Stop disconnects from the broker.
func (u *Uplink) Stop() {
	u.client.Disconnect()
}

// handleMessage parses one uplink payload and ingests it. Malformed
// payloads are counted and dropped; a broken collar must not take the
// uplink down.
func (u *Uplink) handleMessage(topic string, payload []byte) {
	report, err := parseReport(payload)
	if err != nil {
		if u.metrics != nil {
			u.metrics.IncrementMalformedPayloads()
		}
		mqttLogger.Warn("dropping malformed uplink payload",
			"topic", topic, "error", err)
		return
	}

	if report.CollarID == "" {
		report.CollarID = collarFromTopic(topic)
	}
	if u.settings != nil {
		report.SourceNode = u.settings.Main.Name
	}

	if _, err := u.pipeline.Ingest(report); err != nil {
		if u.metrics != nil {
			u.metrics.IncrementErrors()
		}
		mqttLogger.Error("uplink ingest failed",
			"topic", topic,
			"collar_id", report.CollarID,
			"error", err)
	}
}

// parseReport decodes a JSON location payload. Unknown fields are rejected
// so collar firmware bugs surface as malformed payloads instead of silently
// dropped measurements.
func parseReport(payload []byte) (*ingest.Report, error) {
	decoder := json.NewDecoder(strings.NewReader(string(payload)))
	decoder.DisallowUnknownFields()

	var report ingest.Report
	if err := decoder.Decode(&report); err != nil {
		return nil, err
	}
	return &report, nil
}

// collarFromTopic extracts the collar id segment from a
// herdtrack/<collar_id>/location topic. Empty when the topic does not
// match the convention.
func collarFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[2] != "location" {
		return ""
	}
	return parts[1]
}
