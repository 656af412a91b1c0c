package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the login throttle counters
type Metrics struct {
	GateRejections *prometheus.CounterVec
	Submissions    prometheus.Counter
	Outcomes       *prometheus.CounterVec
	Lockouts       prometheus.Counter
	StorageErrors  *prometheus.CounterVec
}

// New creates the counters and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		GateRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginguard_gate_rejections_total",
				Help: "Submissions rejected by the validation gate, by reason",
			},
			[]string{"reason"},
		),
		Submissions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "loginguard_submissions_total",
				Help: "Submissions forwarded to the identity server",
			},
		),
		Outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginguard_outcomes_total",
				Help: "Authentication outcomes observed after a reload",
			},
			[]string{"outcome"},
		),
		Lockouts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "loginguard_lockouts_total",
				Help: "Identifiers that entered the lockout window",
			},
		),
		StorageErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loginguard_storage_errors_total",
				Help: "Key-value store failures, by operation",
			},
			[]string{"op"},
		),
	}

	reg.MustRegister(m.GateRejections, m.Submissions, m.Outcomes, m.Lockouts, m.StorageErrors)
	return m
}

// NewUnregistered creates counters that are not exported anywhere
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
