// Package metrics содержит Prometheus-метрики сервиса заказов.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// OrderMetrics содержит метрики операций с заказами и HTTP-слоя.
type OrderMetrics struct {
	ordersCreated      prometheus.Counter
	ordersDeleted      prometheus.Counter
	validationFailures prometheus.Counter
	orderAmount        prometheus.Histogram

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewOrderMetrics регистрирует метрики в prometheus.DefaultRegisterer.
func NewOrderMetrics() *OrderMetrics {
	return NewOrderMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

// NewOrderMetricsWithRegisterer регистрирует метрики в указанном registerer.
func NewOrderMetricsWithRegisterer(registerer prometheus.Registerer) *OrderMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &OrderMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total number of orders created",
		}),
		ordersDeleted: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_deleted_total",
			Help: "Total number of orders deleted",
		}),
		validationFailures: registerCounter(registerer, prometheus.CounterOpts{
			Name: "orders_validation_failures_total",
			Help: "Total number of rejected create order requests",
		}),
		orderAmount: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "orders_amount",
			Help:    "Total amount of created orders",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 5000},
		}),
		httpRequests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "orders_http_requests_total",
			Help: "Total number of HTTP requests grouped by route and status code",
		}, []string{"method", "route", "code"}),
		httpRequestDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "orders_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route"}),
	}
}

// RecordOrderCreated учитывает созданный заказ и его сумму.
func (m *OrderMetrics) RecordOrderCreated(total decimal.Decimal) {
	if m == nil {
		return
	}
	m.ordersCreated.Inc()
	m.orderAmount.Observe(total.InexactFloat64())
}

// RecordOrderDeleted увеличивает счётчик удалённых заказов.
func (m *OrderMetrics) RecordOrderDeleted() {
	if m == nil {
		return
	}
	m.ordersDeleted.Inc()
}

// RecordValidationFailure увеличивает счётчик отклонённых запросов.
func (m *OrderMetrics) RecordValidationFailure() {
	if m == nil {
		return
	}
	m.validationFailures.Inc()
}

// RecordHTTPRequest учитывает обработанный HTTP-запрос.
// route содержит шаблон маршрута chi, а не фактический путь.
func (m *OrderMetrics) RecordHTTPRequest(method, route string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
