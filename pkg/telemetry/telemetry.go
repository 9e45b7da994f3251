// Package telemetry provides OpenTelemetry integration for the client.
// Spans wrap generation, streaming, and embedding calls; usage counters
// are attached as span attributes after attribution.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/llmwire/llmwire/pkg/provider/types"
)

const (
	// TracerName is the name used for the client tracer
	TracerName = "llmwire"
)

// Settings configures telemetry for calls.
// Telemetry is disabled by default and must be explicitly enabled.
type Settings struct {
	// IsEnabled controls whether telemetry is active. Defaults to false.
	IsEnabled bool

	// Tracer is a custom OpenTelemetry tracer. If nil, the global tracer
	// will be used.
	Tracer trace.Tracer
}

// GetTracer returns an appropriate tracer based on the settings.
// If telemetry is disabled, returns a no-op tracer.
func GetTracer(settings *Settings) trace.Tracer {
	if settings == nil || !settings.IsEnabled {
		return noop.NewTracerProvider().Tracer(TracerName)
	}
	if settings.Tracer != nil {
		return settings.Tracer
	}
	return otel.Tracer(TracerName)
}

// RecordSpan creates and executes a telemetry span for an operation.
// Errors are recorded on the span before it ends.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	name string,
	attrs []attribute.KeyValue,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	defer span.End()

	result, err := fn(ctx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var zero T
		return zero, err
	}
	return result, nil
}

// RecordError records an error on a span and sets the span status.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// ModelAttributes returns the common span attributes for a call.
func ModelAttributes(model *types.Model) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("llm.model.provider", model.Provider),
		attribute.String("llm.model.id", model.ID),
	}
}

// RecordUsage attaches attributed usage counters to the span.
func RecordUsage(span trace.Span, u types.Usage) {
	span.SetAttributes(
		attribute.Int64("llm.usage.input_tokens", u.InputTokens),
		attribute.Int64("llm.usage.output_tokens", u.OutputTokens),
		attribute.Int64("llm.usage.reasoning_tokens", u.ReasoningTokens),
		attribute.Int64("llm.usage.cached_tokens", u.CachedTokens),
	)
	if u.Cost != nil {
		span.SetAttributes(attribute.Float64("llm.usage.cost", *u.Cost))
	}
}
