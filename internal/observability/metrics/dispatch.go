package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// DispatchMetrics contains all Prometheus metrics related to the command
// dispatch protocol.
type DispatchMetrics struct {
	CommandsEnqueued     *prometheus.CounterVec
	PollRequests         prometheus.Counter
	CommandsDelivered    prometheus.Counter
	CommandsAcknowledged prometheus.Counter
	DuplicateAcks        prometheus.Counter
	registry             *prometheus.Registry
}

// NewDispatchMetrics creates a new instance of DispatchMetrics.
// It requires a Prometheus registry to register the metrics.
// It returns an error if metric registration fails.
func NewDispatchMetrics(registry *prometheus.Registry) (*DispatchMetrics, error) {
	m := &DispatchMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to initialize dispatch metrics: %w", err)
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register dispatch metrics: %w", err)
	}
	return m, nil
}

// initMetrics initializes all metrics for DispatchMetrics.
func (m *DispatchMetrics) initMetrics() error {
	m.CommandsEnqueued = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_commands_enqueued_total",
		Help: "Total number of commands enqueued, by command type",
	}, []string{"command_type"})

	m.PollRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_poll_requests_total",
		Help: "Total number of device poll requests served",
	})

	m.CommandsDelivered = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_commands_delivered_total",
		Help: "Total number of pending commands handed to polling devices",
	})

	m.CommandsAcknowledged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_commands_acknowledged_total",
		Help: "Total number of command acknowledgements that performed the transition",
	})

	m.DuplicateAcks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_duplicate_acks_total",
		Help: "Total number of acknowledgements that were no-op repeats",
	})

	return nil
}

// IncrementCommandsEnqueued increments the enqueued counter for a command type.
func (m *DispatchMetrics) IncrementCommandsEnqueued(commandType string) {
	m.CommandsEnqueued.WithLabelValues(commandType).Inc()
}

// IncrementPollRequests increments the count of poll requests.
func (m *DispatchMetrics) IncrementPollRequests() {
	m.PollRequests.Inc()
}

// AddCommandsDelivered adds to the count of delivered commands.
func (m *DispatchMetrics) AddCommandsDelivered(n int) {
	m.CommandsDelivered.Add(float64(n))
}

// IncrementCommandsAcknowledged increments the count of effective acks.
func (m *DispatchMetrics) IncrementCommandsAcknowledged() {
	m.CommandsAcknowledged.Inc()
}

// IncrementDuplicateAcks increments the count of repeated acks.
func (m *DispatchMetrics) IncrementDuplicateAcks() {
	m.DuplicateAcks.Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *DispatchMetrics) Collect(ch chan<- prometheus.Metric) {
	m.CommandsEnqueued.Collect(ch)
	ch <- m.PollRequests
	ch <- m.CommandsDelivered
	ch <- m.CommandsAcknowledged
	ch <- m.DuplicateAcks
}

// Describe implements the prometheus.Collector interface.
func (m *DispatchMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.CommandsEnqueued.Describe(ch)
	ch <- m.PollRequests.Desc()
	ch <- m.CommandsDelivered.Desc()
	ch <- m.CommandsAcknowledged.Desc()
	ch <- m.DuplicateAcks.Desc()
}
