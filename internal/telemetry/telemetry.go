// Package telemetry configures OpenTelemetry tracing for aisoc hosts and
// wraps each simulation request in a span.
package telemetry

import (
	"context"
	"strconv"

	"github.com/nvandessel/aisociety/internal/society"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ServiceName identifies aisoc in exported traces.
const ServiceName = "aisoc"

const tracerName = "github.com/nvandessel/aisociety"

// Setup initialises OpenTelemetry tracing with an OTLP/HTTP exporter.
//
// Tracing is opt-in: when endpoint is empty Setup returns a no-op shutdown
// function and no global provider is registered.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName, endpoint string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// StartSimulation starts a span for one simulation requested through source
// ("cli", "http" or "mcp").
func StartSimulation(ctx context.Context, source string, p society.Params) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "society.simulate", trace.WithAttributes(
		attribute.String("aisoc.source", source),
		attribute.Int("aisoc.years", p.Years),
		attribute.Int("aisoc.population", p.Population),
		attribute.Float64("aisoc.start_automation", p.StartAutomation),
		attribute.Float64("aisoc.automation_growth", p.AutomationGrowth),
		attribute.Bool("aisoc.ubi_enabled", p.UBIEnabled),
		attribute.Float64("aisoc.ai_tax_rate", p.AITaxRate),
	))
}

// EndSimulation records the outcome on span and ends it.
func EndSimulation(span trace.Span, res *society.Result, err error) {
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case res != nil && len(res.Years) > 0:
		last := len(res.Years) - 1
		// uint64 seeds do not fit an int64 attribute.
		span.SetAttributes(
			attribute.String("aisoc.seed", strconv.FormatUint(res.Seed, 10)),
			attribute.Float64("aisoc.final_avg_income", res.AvgIncome[last]),
			attribute.Float64("aisoc.final_stability", res.Stability[last]),
			attribute.Float64("aisoc.final_gini", res.Gini[last]),
		)
	}
	span.End()
}

// TraceID returns the trace ID carried by ctx, or "" when there is none.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}
