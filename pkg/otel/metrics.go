package otel

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	instrumentationName = "github.com/erain9/tradecache/pkg/otel"
)

var (
	storeMetrics     *StoreMetrics
	storeMetricsOnce sync.Once
	metricsLock      sync.RWMutex
)

// StoreMetrics holds the metrics instruments for execution store monitoring
type StoreMetrics struct {
	// Latency metrics
	commandLatency metric.Float64Histogram

	// Traffic metrics
	commandsTotal metric.Int64Counter

	// Error metrics
	errorTotal metric.Int64Counter

	// Soft anomalies surfaced by the index maintenance protocol
	anomaliesTotal metric.Int64Counter
}

// NewStoreMetrics creates a new StoreMetrics instance
func NewStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	commandLatency, err := meter.Float64Histogram(
		"store.command.duration",
		metric.WithDescription("Latency (seconds) of execution store commands"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	commandsTotal, err := meter.Int64Counter(
		"store.commands.total",
		metric.WithDescription("Total number of execution store commands started"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, err
	}

	errorTotal, err := meter.Int64Counter(
		"store.errors.total",
		metric.WithDescription("Total number of execution store command failures"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	anomaliesTotal, err := meter.Int64Counter(
		"store.anomalies.total",
		metric.WithDescription("Total number of index conflicts and missing records observed"),
		metric.WithUnit("{anomaly}"),
	)
	if err != nil {
		return nil, err
	}

	return &StoreMetrics{
		commandLatency: commandLatency,
		commandsTotal:  commandsTotal,
		errorTotal:     errorTotal,
		anomaliesTotal: anomaliesTotal,
	}, nil
}

// GetStoreMetrics returns a singleton instance of StoreMetrics
func GetStoreMetrics(meter metric.Meter) (*StoreMetrics, error) {
	var err error
	storeMetricsOnce.Do(func() {
		storeMetrics, err = NewStoreMetrics(meter)
	})
	if err != nil {
		return nil, err
	}
	return storeMetrics, nil
}

// RecordCommandLatency records the latency of a store command
func (m *StoreMetrics) RecordCommandLatency(ctx context.Context, command string, duration time.Duration) error {
	metricsLock.Lock()
	defer metricsLock.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("store.command", command),
	}
	m.commandLatency.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	return nil
}

// IncCommands increments the total commands counter
func (m *StoreMetrics) IncCommands(ctx context.Context, command string) error {
	metricsLock.Lock()
	defer metricsLock.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("store.command", command),
	}
	m.commandsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

// IncErrors increments the error counter
func (m *StoreMetrics) IncErrors(ctx context.Context, command string) error {
	metricsLock.Lock()
	defer metricsLock.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("store.command", command),
	}
	m.errorTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	return nil
}

// IncAnomalies increments the anomaly counter for the given kind
func (m *StoreMetrics) IncAnomalies(ctx context.Context, kind string, count int64) error {
	metricsLock.Lock()
	defer metricsLock.Unlock()

	attrs := []attribute.KeyValue{
		attribute.String("store.anomaly.kind", kind),
	}
	m.anomaliesTotal.Add(ctx, count, metric.WithAttributes(attrs...))
	return nil
}
