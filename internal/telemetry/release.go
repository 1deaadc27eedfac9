package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const releaseScopeName = "github.com/relkit/relkit/release"

var releaseMetrics struct {
	checkRuns    metric.Int64Counter
	checkDur     metric.Float64Histogram
	guardBlocks  metric.Int64Counter
	tokensMinted metric.Int64Counter
}

var releaseMetricsOnce sync.Once

func initReleaseMetrics() {
	m := Meter(releaseScopeName)
	releaseMetrics.checkRuns, _ = m.Int64Counter("relkit.check.runs",
		metric.WithDescription("Checks evaluated, by check name and outcome"),
	)
	releaseMetrics.checkDur, _ = m.Float64Histogram("relkit.check.duration",
		metric.WithDescription("Check evaluation time in milliseconds"),
		metric.WithUnit("ms"),
	)
	releaseMetrics.guardBlocks, _ = m.Int64Counter("relkit.guard.blocks",
		metric.WithDescription("Commands stopped by a guard before their body ran"),
	)
	releaseMetrics.tokensMinted, _ = m.Int64Counter("relkit.token.minted",
		metric.WithDescription("Confirmation and override tokens minted"),
		metric.WithUnit("{token}"),
	)
}

// StartSpan opens a span in the release scope.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer(releaseScopeName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// CheckRun traces one check evaluation. Call the returned func with the
// outcome when the check finishes.
func CheckRun(ctx context.Context, name string) (context.Context, func(success bool)) {
	releaseMetricsOnce.Do(initReleaseMetrics)
	ctx, span := StartSpan(ctx, "check."+name, attribute.String("relkit.check", name))
	start := time.Now()
	return ctx, func(success bool) {
		attrs := metric.WithAttributes(
			attribute.String("check", name),
			attribute.Bool("success", success),
		)
		releaseMetrics.checkRuns.Add(ctx, 1, attrs)
		releaseMetrics.checkDur.Record(ctx, float64(time.Since(start).Milliseconds()), attrs)
		span.SetAttributes(attribute.Bool("relkit.check.success", success))
		if !success {
			span.SetStatus(codes.Error, "check failed")
		}
		span.End()
	}
}

// GuardBlocked counts a command stopped by guard for action.
func GuardBlocked(ctx context.Context, guard, action string) {
	releaseMetricsOnce.Do(initReleaseMetrics)
	releaseMetrics.guardBlocks.Add(ctx, 1, metric.WithAttributes(
		attribute.String("guard", guard),
		attribute.String("action", action),
	))
	trace.SpanFromContext(ctx).AddEvent("guard.blocked", trace.WithAttributes(
		attribute.String("relkit.guard", guard),
		attribute.String("relkit.action", action),
	))
}

// TokenMinted counts a token minted for action. The token value is never
// recorded.
func TokenMinted(ctx context.Context, action string) {
	releaseMetricsOnce.Do(initReleaseMetrics)
	releaseMetrics.tokensMinted.Add(ctx, 1, metric.WithAttributes(attribute.String("action", action)))
}
