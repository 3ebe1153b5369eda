package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// recordMetrics holds the singleton instance
	recordMetrics *RecordMetrics
	// meter is the global meter for record metrics
	meter = otel.GetMeterProvider().Meter(instrumentationName)
)

// RecordMetrics holds metrics for record cache operations
type RecordMetrics struct {
	// Tracks the total number of records added by kind (account, order, position)
	recordsAddedTotal metric.Int64Counter
}

// GetRecordMetrics returns the RecordMetrics singleton
func GetRecordMetrics() *RecordMetrics {
	if recordMetrics == nil {
		// Initialize metrics
		recordsAddedTotal, err := meter.Int64Counter(
			"store.records_added.total",
			metric.WithDescription("Total number of records added to the cache"),
			metric.WithUnit("{record}"),
		)
		if err != nil {
			return &RecordMetrics{}
		}

		recordMetrics = &RecordMetrics{
			recordsAddedTotal: recordsAddedTotal,
		}
	}

	return recordMetrics
}

// RecordAdded increments the records added counter
func (m *RecordMetrics) RecordAdded(ctx context.Context, kind string, count int64) {
	if m.recordsAddedTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("record.kind", kind),
	}
	m.recordsAddedTotal.Add(ctx, count, metric.WithAttributes(attrs...))
}
