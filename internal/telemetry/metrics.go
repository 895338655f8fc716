package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// FetchMetricsMeterName is the name used for the fetch scheduler meter
	FetchMetricsMeterName = "github.com/chuckbuilds/ledmatrix/fetch"

	// RotationMetricsMeterName is the name used for the rotation controller meter
	RotationMetricsMeterName = "github.com/chuckbuilds/ledmatrix/rotation"
)

// Outcome labels for fetch results.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// FetchMetrics holds the OpenTelemetry instruments for the fetch scheduler
type FetchMetrics struct {
	attempts     metric.Int64Counter
	results      metric.Int64Counter
	coalesced    metric.Int64Counter
	queueDepth   metric.Int64UpDownCounter
	fetchSeconds metric.Float64Histogram
}

// NewFetchMetrics creates a new FetchMetrics instance with the given meter
// provider. If provider is nil, it returns nil (no-op metrics).
func NewFetchMetrics(provider metric.MeterProvider) (*FetchMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(FetchMetricsMeterName)

	attempts, err := meter.Int64Counter(
		"ledmatrix_fetch_attempts_total",
		metric.WithDescription("Number of fetch attempts, including retries"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	results, err := meter.Int64Counter(
		"ledmatrix_fetch_results_total",
		metric.WithDescription("Terminal fetch results by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	coalesced, err := meter.Int64Counter(
		"ledmatrix_fetch_coalesced_total",
		metric.WithDescription("Submissions coalesced onto an in-flight fetch for the same cache key"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	queueDepth, err := meter.Int64UpDownCounter(
		"ledmatrix_fetch_queue_depth",
		metric.WithDescription("Number of fetch requests waiting for a worker"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	fetchSeconds, err := meter.Float64Histogram(
		"ledmatrix_fetch_duration_seconds",
		metric.WithDescription("Duration of terminal fetch operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30),
	)
	if err != nil {
		return nil, err
	}

	return &FetchMetrics{
		attempts:     attempts,
		results:      results,
		coalesced:    coalesced,
		queueDepth:   queueDepth,
		fetchSeconds: fetchSeconds,
	}, nil
}

// RecordAttempt records a single fetch attempt for a cache key.
func (m *FetchMetrics) RecordAttempt(ctx context.Context, key string) {
	if m == nil || m.attempts == nil {
		return
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// RecordResult records a terminal fetch result and its total duration.
func (m *FetchMetrics) RecordResult(ctx context.Context, key, outcome string, seconds float64) {
	if m == nil || m.results == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("key", key),
		attribute.String("outcome", outcome),
	)
	m.results.Add(ctx, 1, attrs)
	m.fetchSeconds.Record(ctx, seconds, attrs)
}

// RecordCoalesced records a submission merged onto an in-flight fetch.
func (m *FetchMetrics) RecordCoalesced(ctx context.Context, key string) {
	if m == nil || m.coalesced == nil {
		return
	}
	m.coalesced.Add(ctx, 1, metric.WithAttributes(attribute.String("key", key)))
}

// AddQueueDepth adjusts the queued-request gauge by delta.
func (m *FetchMetrics) AddQueueDepth(ctx context.Context, delta int64) {
	if m == nil || m.queueDepth == nil {
		return
	}
	m.queueDepth.Add(ctx, delta)
}

// RotationMetrics holds the OpenTelemetry instruments for the rotation controller
type RotationMetrics struct {
	modeSwitches   metric.Int64Counter
	providerFaults metric.Int64Counter
}

// NewRotationMetrics creates a new RotationMetrics instance with the given
// meter provider. If provider is nil, it returns nil (no-op metrics).
func NewRotationMetrics(provider metric.MeterProvider) (*RotationMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(RotationMetricsMeterName)

	modeSwitches, err := meter.Int64Counter(
		"ledmatrix_mode_switches_total",
		metric.WithDescription("Display mode changes by destination mode and reason"),
		metric.WithUnit("{switch}"),
	)
	if err != nil {
		return nil, err
	}

	providerFaults, err := meter.Int64Counter(
		"ledmatrix_provider_faults_total",
		metric.WithDescription("Recovered provider panics and render errors"),
		metric.WithUnit("{fault}"),
	)
	if err != nil {
		return nil, err
	}

	return &RotationMetrics{
		modeSwitches:   modeSwitches,
		providerFaults: providerFaults,
	}, nil
}

// RecordModeSwitch records a mode change and why it happened
// (rotation, live, on_demand, on_demand_expired).
func (m *RotationMetrics) RecordModeSwitch(ctx context.Context, mode, reason string) {
	if m == nil || m.modeSwitches == nil {
		return
	}
	m.modeSwitches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.String("reason", reason),
	))
}

// RecordProviderFault records a recovered fault in a provider's Update or Render.
func (m *RotationMetrics) RecordProviderFault(ctx context.Context, providerName, op string) {
	if m == nil || m.providerFaults == nil {
		return
	}
	m.providerFaults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", providerName),
		attribute.String("op", op),
	))
}
