// Package telemetry wires OpenTelemetry tracing and metrics for relkit
// commands. It is off unless RELKIT_OTEL_ENABLED=true; when off, the global
// providers are no-ops.
//
// # Configuration
//
//	RELKIT_OTEL_ENABLED=true                  enable telemetry (default: off)
//	RELKIT_OTEL_STDOUT=true                   write spans and metrics to stderr
//	OTEL_EXPORTER_OTLP_METRICS_ENDPOINT=...   OTLP/HTTP metrics endpoint (e.g. localhost:4318)
//	OTEL_EXPORTER_OTLP_ENDPOINT=...           fallback endpoint for metrics
//
// Exporters write to stderr, never stdout, so --json output stays parseable.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationScope = "github.com/relkit/relkit"

// exportWriter receives the stdout-style exporters' output.
var exportWriter io.Writer = os.Stderr

// providers holds what Init installed, for Shutdown.
var providers struct {
	tracer *sdktrace.TracerProvider
	meter  *sdkmetric.MeterProvider
}

// Enabled reports whether telemetry is active (RELKIT_OTEL_ENABLED=true).
func Enabled() bool {
	return os.Getenv("RELKIT_OTEL_ENABLED") == "true"
}

func stdoutExport() bool {
	return os.Getenv("RELKIT_OTEL_STDOUT") == "true"
}

// Init installs the global providers for one relkit invocation.
func Init(ctx context.Context, serviceName, version string) error {
	if !Enabled() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
		return nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
		resource.WithProcess(),
	)
	if err != nil {
		return fmt.Errorf("telemetry: resource: %w", err)
	}

	tp, err := newTracerProvider(res)
	if err != nil {
		return fmt.Errorf("telemetry: trace provider: %w", err)
	}
	mp, err := newMeterProvider(ctx, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return fmt.Errorf("telemetry: metric provider: %w", err)
	}

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	providers.tracer, providers.meter = tp, mp
	return nil
}

// newTracerProvider samples every span. Spans are only exported with
// RELKIT_OTEL_STDOUT; a CLI run is short enough that a synchronous exporter
// is used.
func newTracerProvider(res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if stdoutExport() {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(exportWriter), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithSyncer(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

// newMeterProvider uses manual-flush periodic readers: Shutdown collects
// once at exit, which is all a single command needs.
func newMeterProvider(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}

	if stdoutExport() {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(exportWriter))
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	if endpoint := otlpMetricsEndpoint(); endpoint != "" {
		exp, err := buildOTLPMetricExporter(ctx, endpoint)
		if err != nil {
			return nil, fmt.Errorf("otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}

	return sdkmetric.NewMeterProvider(opts...), nil
}

func otlpMetricsEndpoint() string {
	if v := os.Getenv("OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); v != "" {
		return v
	}
	return os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Tracer returns a tracer with the given instrumentation name (or the global scope).
func Tracer(name string) trace.Tracer {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Tracer(name)
}

// Meter returns a meter with the given instrumentation name (or the global scope).
func Meter(name string) metric.Meter {
	if name == "" {
		name = instrumentationScope
	}
	return otel.Meter(name)
}

// Shutdown flushes pending spans and metrics. Safe to call when Init
// installed no-op providers, and more than once.
func Shutdown(ctx context.Context) {
	var errs []error
	if providers.tracer != nil {
		errs = append(errs, providers.tracer.Shutdown(ctx))
	}
	if providers.meter != nil {
		errs = append(errs, providers.meter.Shutdown(ctx))
	}
	providers.tracer, providers.meter = nil, nil
	if err := errors.Join(errs...); err != nil {
		fmt.Fprintf(exportWriter, "Warning: telemetry shutdown: %v\n", err)
	}
}
