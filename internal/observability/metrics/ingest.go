// Package metrics provides custom Prometheus metrics for various components of the HerdTrack-Go application.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// IngestMetrics contains all Prometheus metrics related to the location
// ingestion pipeline. The split between history and current counters mirrors
// the pipeline's dual-write: a history error fails the ingest while a current
// upsert error does not, so the two must be observable independently.
type IngestMetrics struct {
	ReportsReceived     *prometheus.CounterVec
	HistoryWrites       prometheus.Counter
	HistoryWriteErrors  prometheus.Counter
	Corrections         prometheus.Counter
	CurrentUpserts      prometheus.Counter
	CurrentUpsertErrors prometheus.Counter
	EventsPublished     prometheus.Counter
	EventsDropped       prometheus.Counter
	ValidationFailures  prometheus.Counter
	IngestLatency       prometheus.Histogram
	registry            *prometheus.Registry
}

// NewIngestMetrics creates a new instance of IngestMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewIngestMetrics(registry *prometheus.Registry) (*IngestMetrics, error) {
	m := &IngestMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize ingest metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register ingest metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for IngestMetrics.
func (m *IngestMetrics) initMetrics() error {
	m.ReportsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ingest_reports_received_total",
		Help: "Total number of location reports received, by routing path",
	}, []string{"path"})

	m.HistoryWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_history_writes_total",
		Help: "Total number of track points appended to history",
	})

	m.HistoryWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_history_write_errors_total",
		Help: "Total number of failed history writes (fatal to the ingest call)",
	})

	m.Corrections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_corrections_total",
		Help: "Total number of in-place history corrections applied",
	})

	m.CurrentUpserts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_current_upserts_total",
		Help: "Total number of current position upserts",
	})

	m.CurrentUpsertErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_current_upsert_errors_total",
		Help: "Total number of failed current position upserts (non-fatal after a durable history write)",
	})

	m.EventsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_live_updates_published_total",
		Help: "Total number of live update events handed to the event bus",
	})

	m.EventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_live_updates_dropped_total",
		Help: "Total number of live update events dropped by the event bus",
	})

	m.ValidationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ingest_validation_failures_total",
		Help: "Total number of reports rejected by validation",
	})

	m.IngestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ingest_latency_seconds",
		Help:    "Latency of complete ingest calls in seconds",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
	})

	return nil
}

// IncrementReportsReceived increments the received counter for a routing path.
func (m *IngestMetrics) IncrementReportsReceived(path string) {
	m.ReportsReceived.WithLabelValues(path).Inc()
}

// IncrementHistoryWrites increments the count of history rows appended.
func (m *IngestMetrics) IncrementHistoryWrites() {
	m.HistoryWrites.Inc()
}

// IncrementHistoryWriteErrors increments the count of failed history writes.
func (m *IngestMetrics) IncrementHistoryWriteErrors() {
	m.HistoryWriteErrors.Inc()
}

// IncrementCorrections increments the count of in-place corrections.
func (m *IngestMetrics) IncrementCorrections() {
	m.Corrections.Inc()
}

// IncrementCurrentUpserts increments the count of current position upserts.
func (m *IngestMetrics) IncrementCurrentUpserts() {
	m.CurrentUpserts.Inc()
}

// IncrementCurrentUpsertErrors increments the count of failed upserts.
func (m *IngestMetrics) IncrementCurrentUpsertErrors() {
	m.CurrentUpsertErrors.Inc()
}

// IncrementEventsPublished increments the count of published live updates.
func (m *IngestMetrics) IncrementEventsPublished() {
	m.EventsPublished.Inc()
}

// IncrementEventsDropped increments the count of dropped live updates.
func (m *IngestMetrics) IncrementEventsDropped() {
	m.EventsDropped.Inc()
}

// IncrementValidationFailures increments the count of rejected reports.
func (m *IngestMetrics) IncrementValidationFailures() {
	m.ValidationFailures.Inc()
}

// StartIngestTimer starts a timer for measuring ingest latency.
func (m *IngestMetrics) StartIngestTimer() *IngestTimer {
	return &IngestTimer{
		startTime: time.Now(),
		metrics:   m,
	}
}

// IngestTimer is a helper struct for measuring ingest latency.
type IngestTimer struct {
	startTime time.Time
	metrics   *IngestMetrics
}

// ObserveDuration stops the timer and records the duration.
func (it *IngestTimer) ObserveDuration() {
	it.metrics.IngestLatency.Observe(time.Since(it.startTime).Seconds())
}

// Collect implements the prometheus.Collector interface.
func (m *IngestMetrics) Collect(ch chan<- prometheus.Metric) {
	m.ReportsReceived.Collect(ch)
	ch <- m.HistoryWrites
	ch <- m.HistoryWriteErrors
	ch <- m.Corrections
	ch <- m.CurrentUpserts
	ch <- m.CurrentUpsertErrors
	ch <- m.EventsPublished
	ch <- m.EventsDropped
	ch <- m.ValidationFailures
	ch <- m.IngestLatency
}

// Describe implements the prometheus.Collector interface.
func (m *IngestMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.ReportsReceived.Describe(ch)
	ch <- m.HistoryWrites.Desc()
	ch <- m.HistoryWriteErrors.Desc()
	ch <- m.Corrections.Desc()
	ch <- m.CurrentUpserts.Desc()
	ch <- m.CurrentUpsertErrors.Desc()
	ch <- m.EventsPublished.Desc()
	ch <- m.EventsDropped.Desc()
	ch <- m.ValidationFailures.Desc()
	ch <- m.IngestLatency.Desc()
}
