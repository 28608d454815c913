package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Исходы публикации события из outbox.
const (
	OutboxResultSent      = "sent"
	OutboxResultRetry     = "retry"
	OutboxResultFailed    = "failed"
	OutboxResultDLQ       = "dlq"
	OutboxResultDLQFailed = "dlq_failed"
)

// OutboxMetrics описывает доставку событий заказов в брокер.
type OutboxMetrics struct {
	publishes     *prometheus.CounterVec
	pending       prometheus.Gauge
	oldestPending prometheus.Gauge
}

// NewOutboxMetrics регистрирует метрики outbox в registerer (nil означает DefaultRegisterer).
func NewOutboxMetrics(registerer prometheus.Registerer) *OutboxMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	return &OutboxMetrics{
		publishes: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_outbox_publish_total",
			Help: "Outbox publish outcomes grouped by order event type.",
		}, []string{"event_type", "result"}),
		pending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orders_outbox_pending_records",
			Help: "Order events waiting in the outbox.",
		}),
		oldestPending: registerGauge(registerer, prometheus.GaugeOpts{
			Name: "orders_outbox_oldest_pending_age_seconds",
			Help: "Age of the oldest pending order event.",
		}),
	}
}

// RecordPublish учитывает исход публикации события eventType.
func (m *OutboxMetrics) RecordPublish(eventType, result string) {
	if m == nil {
		return
	}
	m.publishes.WithLabelValues(eventType, result).Inc()
}

// SetBacklog обновляет размер backlog и возраст самого старого события.
func (m *OutboxMetrics) SetBacklog(pending int, oldest time.Duration) {
	if m == nil {
		return
	}
	if oldest < 0 {
		oldest = 0
	}
	m.pending.Set(float64(pending))
	m.oldestPending.Set(oldest.Seconds())
}
