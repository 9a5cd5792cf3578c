package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for decision callbacks.
type Metrics struct {
	// Callback outcomes by decision status
	DecisionOutcome *prometheus.CounterVec

	// Callbacks rejected by signature verification
	SignatureFailures prometheus.Counter

	// Callback processing latency
	HandleLatency prometheus.Histogram
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycbridge_decisions_total",
			Help: "Total decision callbacks by status and outcome",
		}, []string{"status", "outcome"}), // outcome: processed, ignored, error, duplicate, rejected

		SignatureFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycbridge_decision_signature_failures_total",
			Help: "Total decision callbacks rejected for an invalid or missing signature",
		}),

		HandleLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycbridge_decision_handle_duration_seconds",
			Help:    "Duration of decision callback processing",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// IncrementOutcome records a callback outcome.
func (m *Metrics) IncrementOutcome(status, outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(status, outcome).Inc()
	}
}

func (m *Metrics) IncrementSignatureFailure() {
	if m != nil {
		m.SignatureFailures.Inc()
	}
}

func (m *Metrics) ObserveHandleLatency(d time.Duration) {
	if m != nil {
		m.HandleLatency.Observe(d.Seconds())
	}
}
