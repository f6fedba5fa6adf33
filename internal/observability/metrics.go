package observability

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes the OpenTelemetry metrics provider with a
// Prometheus exporter. It returns the HTTP handler for the /metrics endpoint
// and a shutdown function for application exit.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(
		metric.WithReader(exporter),
	)

	otel.SetMeterProvider(provider)

	return promhttp.Handler(), provider.Shutdown, nil
}

// NewActivityCounter creates the counter incremented once per generated
// activity, labeled by job and activity type.
func NewActivityCounter() (otelmetric.Int64Counter, error) {
	meter := otel.Meter("simplane")
	return meter.Int64Counter("simplane.activities.generated",
		otelmetric.WithDescription("Total simulated activities generated"))
}

// RegisterActiveJobsGauge registers an observable gauge reporting the
// current number of live job runners.
func RegisterActiveJobsGauge(count func() int) error {
	meter := otel.Meter("simplane")
	_, err := meter.Int64ObservableGauge("simplane.jobs.active",
		otelmetric.WithDescription("Number of jobs with a live runner"),
		otelmetric.WithInt64Callback(func(_ context.Context, o otelmetric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}))
	return err
}
