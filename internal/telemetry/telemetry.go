// Package telemetry provides OpenTelemetry metric instrumentation for the
// ledmatrix daemon, exported in Prometheus format on the control API.
package telemetry

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Telemetry owns the meter provider and the Prometheus registry its
// metrics are bridged into. The caller is responsible for calling
// Shutdown when the application exits.
type Telemetry struct {
	meterProvider metric.MeterProvider
	registry      *prometheus.Registry
	sdkProvider   *sdkmetric.MeterProvider
}

// New creates a Telemetry instance exporting metrics to an in-process
// Prometheus registry served via Handler.
func New(serviceName, serviceVersion string) (*Telemetry, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry resource: %w", err)
	}

	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	return &Telemetry{
		meterProvider: provider,
		registry:      registry,
		sdkProvider:   provider,
	}, nil
}

// NewNoop creates a Telemetry instance whose instruments discard all
// recordings. Useful in tests and when metrics are disabled.
func NewNoop() *Telemetry {
	return &Telemetry{
		meterProvider: noop.NewMeterProvider(),
	}
}

// MeterProvider returns the meter provider for instrument creation.
func (t *Telemetry) MeterProvider() metric.MeterProvider {
	return t.meterProvider
}

// Handler returns the HTTP handler serving the Prometheus scrape
// endpoint, or nil when metrics are disabled.
func (t *Telemetry) Handler() http.Handler {
	if t.registry == nil {
		return nil
	}
	return promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{})
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t.sdkProvider == nil {
		return nil
	}
	return t.sdkProvider.Shutdown(ctx)
}
