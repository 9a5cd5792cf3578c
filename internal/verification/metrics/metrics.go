package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for session creation.
type Metrics struct {
	// Session creation outcomes: created, validation, not_configured, rejected, unavailable, store_error
	SessionsCreated *prometheus.CounterVec

	// Provider round-trip latency by result
	ProviderLatency *prometheus.HistogramVec
}

// New registers the verification metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the verification metrics on reg.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SessionsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycbridge_sessions_created_total",
			Help: "Total verification session creation attempts by outcome",
		}, []string{"outcome"}),

		ProviderLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycbridge_provider_request_duration_seconds",
			Help:    "Duration of verification provider session requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"result"}),
	}
}

// IncrementSession records a session creation outcome.
func (m *Metrics) IncrementSession(outcome string) {
	if m != nil {
		m.SessionsCreated.WithLabelValues(outcome).Inc()
	}
}

// ObserveProviderLatency records one provider call.
func (m *Metrics) ObserveProviderLatency(result string, d time.Duration) {
	if m != nil {
		m.ProviderLatency.WithLabelValues(result).Observe(d.Seconds())
	}
}
