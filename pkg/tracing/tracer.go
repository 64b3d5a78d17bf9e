// Package tracing configures OpenTelemetry span export for the Executor
// Loop's action-loop phases and provider calls (spec.md §4.5, §6).
//
// Grounded on haasonsaas-nexus/internal/observability/tracing.go's
// NewTracer/shutdown shape: a no-op tracer when no collector endpoint is
// configured, otherwise a batching OTLP exporter registered as the global
// TracerProvider. Adapted onto OTLP/HTTP rather than the teacher's transport
// to avoid reintroducing the grpc/protobuf stack this module already
// dropped (see DESIGN.md).
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/codeready-toolchain/tarsy/pkg/config"
)

// tracerName identifies this module's instrumentation scope to whatever
// backend receives the exported spans.
const tracerName = "github.com/codeready-toolchain/tarsy"

// Shutdown flushes and stops the registered TracerProvider. Safe to call on
// the no-op provider returned when tracing is disabled.
type Shutdown func(context.Context) error

// Init configures the global OpenTelemetry TracerProvider from cfg and
// returns a Shutdown to call on process exit. When cfg.Enabled is false (or
// no endpoint is set), the global no-op provider is left in place and spans
// created via Tracer() are discarded without allocating an exporter.
func Init(ctx context.Context, cfg config.TracingConfig) (Shutdown, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(ctx, otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tarsy-agent"
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
	))
	if err != nil {
		res = resource.Default()
	}

	ratio := cfg.SamplingRatio
	if ratio <= 0 {
		ratio = 1.0
	}
	var sampler sdktrace.Sampler
	switch {
	case ratio >= 1.0:
		sampler = sdktrace.AlwaysSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(ratio)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return provider.Shutdown, nil
}

// Tracer returns this module's named Tracer off the current global
// TracerProvider — the no-op implementation until Init registers a real one.
func Tracer() trace.Tracer { return otel.Tracer(tracerName) }

// StartPhase opens a span for one Executor Loop phase (spec.md §4.5:
// classify, plan, act, reflect, respond).
func StartPhase(ctx context.Context, phase string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "executor."+phase, trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("executor.phase", phase)))
}

// StartProviderCall opens a span around one outbound LLM provider call.
func StartProviderCall(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "llm."+provider, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
		))
}

// End closes span, recording err on it when non-nil.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
