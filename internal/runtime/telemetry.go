package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/voxnotelabs/voxnote/internal/config"
	"github.com/voxnotelabs/voxnote/internal/persist"
)

// telemetry owns the daemon's trace and metric providers. Traces go to an
// OTLP collector when one is configured, to stdout otherwise; metrics are
// served to Prometheus scrapes through handler.
type telemetry struct {
	log     *slog.Logger
	traces  *sdktrace.TracerProvider
	metrics *sdkmetric.MeterProvider
	handler http.Handler
}

func newTelemetry(cfg config.Config, logger *slog.Logger) (*telemetry, error) {
	t := &telemetry{log: logger.With(slog.String("component", "telemetry"))}

	ctx := context.Background()
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.RuntimeName),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}

	exporter, err := t.traceExporter(ctx, cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("create trace exporter: %w", err)
	}
	t.traces = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(t.traces)

	// A failed Prometheus exporter leaves /metrics unmounted but keeps the
	// meter provider working so counters still no-op cleanly.
	promExporter, err := prometheus.New()
	if err != nil {
		t.log.Warn("prometheus exporter unavailable, /metrics disabled",
			slog.String("error", err.Error()))
		t.metrics = sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	} else {
		t.metrics = sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(promExporter),
			sdkmetric.WithResource(res),
		)
		t.handler = promhttp.Handler()
	}
	otel.SetMeterProvider(t.metrics)

	return t, nil
}

func (t *telemetry) traceExporter(ctx context.Context, cfg config.TelemetryConfig) (sdktrace.SpanExporter, error) {
	endpoint := strings.TrimSpace(cfg.OTLPEndpoint)
	if endpoint == "" {
		t.log.Info("no OTLP endpoint configured, tracing to stdout")
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	t.log.Info("tracing to OTLP collector", slog.String("endpoint", endpoint))
	return otlptracegrpc.New(ctx, opts...)
}

// observeRecoveries exports the note store's corruption-recovery count as an
// observable counter, read on every scrape.
func (t *telemetry) observeRecoveries(store *persist.Store) {
	meter := otel.Meter("voxnote/persist")
	_, err := meter.Int64ObservableCounter("voxnote.persist.recoveries",
		metric.WithDescription("Times persisted notes were discarded as corrupt and replaced with an empty list"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(store.Recoveries())
			return nil
		}))
	if err != nil {
		t.log.Warn("failed to register persistence recovery counter",
			slog.String("error", err.Error()))
	}
}

func (t *telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.metrics != nil {
		if err := t.metrics.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if t.traces != nil {
		if err := t.traces.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
