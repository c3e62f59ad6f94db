package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Dispatch steps and outcomes used as label values.
const (
	StepAnnouncement = "announcement"
	StepPoll         = "poll"

	StatusSuccess = "success"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Metrics groups every collector the bot exports.
type Metrics struct {
	// DispatchSteps counts channel calls by step and status.
	DispatchSteps *prometheus.CounterVec

	// Renders counts document renders by status.
	Renders *prometheus.CounterVec

	// DraftOperations counts draft store calls by operation and status.
	DraftOperations *prometheus.CounterVec

	// WorkingListSize is the current number of events in the working list.
	WorkingListSize prometheus.Gauge
}

// New registers the collectors on the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors on reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		DispatchSteps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "weekendbot",
				Name:      "dispatch_steps_total",
				Help:      "Messaging channel calls by step and status",
			},
			[]string{"step", "status"},
		),
		Renders: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "weekendbot",
				Name:      "renders_total",
				Help:      "Announcement document renders by status",
			},
			[]string{"status"},
		),
		DraftOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "weekendbot",
				Name:      "draft_operations_total",
				Help:      "Draft store operations by operation and status",
			},
			[]string{"operation", "status"},
		),
		WorkingListSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "weekendbot",
				Name:      "working_list_events",
				Help:      "Events currently in the working list",
			},
		),
	}

	reg.MustRegister(
		m.DispatchSteps,
		m.Renders,
		m.DraftOperations,
		m.WorkingListSize,
	)

	return m
}

// Nop returns collectors registered nowhere, for callers that do not export
// metrics.
func Nop() *Metrics {
	return NewWithRegistry(prometheus.NewRegistry())
}

// Status maps an error to StatusSuccess or StatusFailed.
func Status(err error) string {
	if err != nil {
		return StatusFailed
	}
	return StatusSuccess
}
