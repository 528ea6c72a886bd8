package services

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fleetsync/server/internal/observability"
)

const instrumentationName = "github.com/fleetsync/server/services"

type syncMetrics struct {
	runs     metric.Int64Counter
	duration metric.Float64Histogram
}

var (
	metricsOnce sync.Once
	metricsInst *syncMetrics
)

// getSyncMetrics lazily creates the sync cycle instruments. Instrument
// creation failures are logged and metrics become no-ops.
func getSyncMetrics() *syncMetrics {
	metricsOnce.Do(func() {
		meter := otel.Meter(instrumentationName)

		runs, err := meter.Int64Counter(
			"sync.runs",
			metric.WithDescription("Total number of sync cycles executed"),
			metric.WithUnit("{runs}"),
		)
		if err != nil {
			observability.Warnf("Failed to create sync.runs counter: %v", err)
			return
		}

		duration, err := meter.Float64Histogram(
			"sync.duration",
			metric.WithDescription("Sync cycle duration in milliseconds"),
			metric.WithUnit("ms"),
		)
		if err != nil {
			observability.Warnf("Failed to create sync.duration histogram: %v", err)
			return
		}

		metricsInst = &syncMetrics{runs: runs, duration: duration}
	})
	return metricsInst
}

func recordSyncRun(service string, success bool, elapsed time.Duration) {
	m := getSyncMetrics()
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("service", service),
		attribute.Bool("success", success),
	)
	ctx := context.Background()
	m.runs.Add(ctx, 1, attrs)
	m.duration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}
