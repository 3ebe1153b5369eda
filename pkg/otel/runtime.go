package otel

import (
	"time"

	hostmetrics "go.opentelemetry.io/contrib/instrumentation/host"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
)

// StartRuntimeMetrics initializes OpenTelemetry runtime and host metrics
// collection: memory allocation, GC statistics, CPU, network and disk I/O.
func StartRuntimeMetrics() error {
	// Runtime metrics (memory, GC, etc)
	if err := runtime.Start(
		runtime.WithMinimumReadMemStatsInterval(time.Second * 30),
	); err != nil {
		return err
	}

	// Host metrics (CPU, memory, network, disk)
	return hostmetrics.Start()
}
