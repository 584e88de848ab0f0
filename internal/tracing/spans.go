package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartGenerationSpan creates a child span for one full generation request
// (the router's retry-over-providers loop).
func StartGenerationSpan(ctx context.Context, requestID string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "generation.request",
		trace.WithAttributes(attribute.String("request.id", requestID)),
	)
}

// StartAttemptSpan creates a child span for a single provider attempt within
// a generation request.
func StartAttemptSpan(ctx context.Context, provider, model string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "generation.attempt",
		trace.WithAttributes(
			attribute.String("attempt.provider", provider),
			attribute.String("attempt.model", model),
		),
	)
}

// StartUpstreamSpan creates a child span for an upstream backend call.
func StartUpstreamSpan(ctx context.Context, url, provider string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "upstream.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("upstream.url", url),
			attribute.String("upstream.provider", provider),
		),
	)
}

// InjectHeaders injects the current trace context (traceparent, tracestate)
// into the given HTTP request headers so the upstream service can continue
// the trace.
func InjectHeaders(ctx context.Context, req *http.Request) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
}

// SetResultAttributes adds generation-result attributes to the current span.
func SetResultAttributes(ctx context.Context, provider, model string, tokens int, cost float64) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("result.provider", provider),
		attribute.String("result.model", model),
		attribute.Int("result.tokens", tokens),
		attribute.Float64("result.cost", cost),
	)
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
	}
}
