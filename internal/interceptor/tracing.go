package interceptor

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gezibash/arc-skill/internal/middleware"
	"github.com/gezibash/arc-skill/internal/observability"
)

// SpanName is the name of the span covering one invocation.
const SpanName = "skill.invoke"

type spanKey struct{}

// Tracing starts a span in the request hook and ends it in the response
// hook. Handlers run inside the span.
func Tracing() Hooks {
	return Hooks{
		Request: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			attrs := []attribute.KeyValue{
				attribute.String("skill.request_id", info.Request.RequestID()),
				attribute.String("skill.request_type", info.Request.RequestType()),
			}
			if intent := info.Request.IntentName(); intent != "" {
				attrs = append(attrs, attribute.String("skill.intent", intent))
			}
			ctx, span := observability.StartSpan(ctx, SpanName, attrs...)
			return context.WithValue(ctx, spanKey{}, span), nil
		},
		Response: func(ctx context.Context, info *middleware.CallInfo) (context.Context, error) {
			span, ok := ctx.Value(spanKey{}).(trace.Span)
			if !ok {
				return ctx, nil
			}
			span.SetAttributes(
				attribute.String("skill.handler", handlerLabel(info)),
				attribute.String("skill.outcome", string(info.Outcome)),
			)
			var err error
			if info.Outcome == middleware.OutcomeFailed {
				err = info.Err
			} else if info.Err != nil {
				span.AddEvent("recovered", trace.WithAttributes(
					attribute.String("error", info.Err.Error()),
					attribute.String("kind", ErrorKind(info.Err)),
				))
			}
			observability.EndSpan(span, err)
			return ctx, nil
		},
	}
}
