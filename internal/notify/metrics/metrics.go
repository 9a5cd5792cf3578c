package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for outbound notifications.
type Metrics struct {
	// Delivery results: sent, failed, dropped, skipped, breaker_open
	Notifications *prometheus.CounterVec

	// Attempts including retries
	Attempts prometheus.Counter

	// Current queue depth
	QueueDepth prometheus.Gauge
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kycbridge_notifications_total",
			Help: "Total notifications by delivery result",
		}, []string{"result"}),

		Attempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "kycbridge_notification_attempts_total",
			Help: "Total delivery attempts including retries",
		}),

		QueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kycbridge_notification_queue_depth",
			Help: "Messages waiting for a delivery worker",
		}),
	}
}

func (m *Metrics) IncrementResult(result string) {
	if m != nil {
		m.Notifications.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncrementAttempt() {
	if m != nil {
		m.Attempts.Inc()
	}
}

func (m *Metrics) SetQueueDepth(n int) {
	if m != nil {
		m.QueueDepth.Set(float64(n))
	}
}
