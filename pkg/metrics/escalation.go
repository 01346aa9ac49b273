package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EscalationMetrics counts booking escalation outcomes per trigger
// ("manual" or "sweep").
type EscalationMetrics struct {
	outcomes      *prometheus.CounterVec
	sweepBookings prometheus.Counter
	sweepDuration prometheus.Histogram
}

func NewEscalationMetrics(reg prometheus.Registerer) *EscalationMetrics {
	if reg == nil {
		return &EscalationMetrics{}
	}
	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_escalation_outcomes_total",
		Help: "Escalation decisions applied to bookings.",
	}, []string{"trigger", "outcome"})
	sweepBookings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_sweep_processed_total",
		Help: "Overdue bookings picked up by sweeps.",
	})
	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_sweep_duration_seconds",
		Help:    "Wall time of overdue sweeps.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(outcomes, sweepBookings, sweepDuration)
	return &EscalationMetrics{
		outcomes:      outcomes,
		sweepBookings: sweepBookings,
		sweepDuration: sweepDuration,
	}
}

func (m *EscalationMetrics) IncOutcome(trigger, outcome string) {
	if m == nil || m.outcomes == nil {
		return
	}
	m.outcomes.WithLabelValues(normalizeLabel(trigger), normalizeLabel(outcome)).Inc()
}

func (m *EscalationMetrics) ObserveSweep(processed int, duration time.Duration) {
	if m == nil || m.sweepBookings == nil {
		return
	}
	m.sweepBookings.Add(float64(processed))
	m.sweepDuration.Observe(duration.Seconds())
}
