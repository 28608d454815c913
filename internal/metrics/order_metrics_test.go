package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

func TestNewOrderMetricsWithRegisterer(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	if metrics == nil {
		t.Fatal("NewOrderMetricsWithRegisterer should not return nil")
	}
	if metrics.ordersCreated == nil || metrics.ordersDeleted == nil || metrics.validationFailures == nil {
		t.Fatal("order counters should not be nil")
	}
	if metrics.orderAmount == nil {
		t.Fatal("orderAmount histogram should not be nil")
	}
	if metrics.httpRequests == nil || metrics.httpRequestDuration == nil {
		t.Fatal("http collectors should not be nil")
	}
}

func TestNewOrderMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.RecordOrderDeleted()
	second.RecordOrderDeleted()

	if got := counterValue(t, first.ordersDeleted); got != 2 {
		t.Fatalf("expected shared counter value 2, got %f", got)
	}
}

func TestRecordOrderCreated(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordOrderCreated(decimal.RequireFromString("150.50"))
	metrics.RecordOrderCreated(decimal.RequireFromString("10.00"))

	if got := counterValue(t, metrics.ordersCreated); got != 2 {
		t.Fatalf("expected created counter 2, got %f", got)
	}

	metric := &dto.Metric{}
	if err := metrics.orderAmount.Write(metric); err != nil {
		t.Fatalf("failed to write histogram: %v", err)
	}
	if metric.Histogram.GetSampleCount() != 2 {
		t.Fatalf("expected 2 samples, got %d", metric.Histogram.GetSampleCount())
	}
	if sum := metric.Histogram.GetSampleSum(); sum < 160.49 || sum > 160.51 {
		t.Fatalf("expected sum around 160.50, got %f", sum)
	}
}

func TestRecordValidationFailure(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordValidationFailure()

	if got := counterValue(t, metrics.validationFailures); got != 1 {
		t.Fatalf("expected validation failures 1, got %f", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	metrics := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	metrics.RecordHTTPRequest("GET", "/orders/{id}", 404, 15*time.Millisecond)
	metrics.RecordHTTPRequest("GET", "/orders/{id}", 404, 5*time.Millisecond)
	metrics.RecordHTTPRequest("POST", "", 400, time.Millisecond)

	counter, err := metrics.httpRequests.GetMetricWithLabelValues("GET", "/orders/{id}", "404")
	if err != nil {
		t.Fatalf("get counter: %v", err)
	}
	if got := counterValue(t, counter); got != 2 {
		t.Fatalf("expected 2 requests, got %f", got)
	}

	unmatched, err := metrics.httpRequests.GetMetricWithLabelValues("POST", "unmatched", "400")
	if err != nil {
		t.Fatalf("get unmatched counter: %v", err)
	}
	if got := counterValue(t, unmatched); got != 1 {
		t.Fatalf("expected unmatched route to be counted once, got %f", got)
	}
}

func TestNilOrderMetricsIsNoop(t *testing.T) {
	var metrics *OrderMetrics

	metrics.RecordOrderCreated(decimal.NewFromInt(1))
	metrics.RecordOrderDeleted()
	metrics.RecordValidationFailure()
	metrics.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
}

func counterValue(t *testing.T, counter prometheus.Counter) float64 {
	t.Helper()
	metric := &dto.Metric{}
	if err := counter.Write(metric); err != nil {
		t.Fatalf("failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}
