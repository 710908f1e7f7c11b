package usecase

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/matchdaylabs/qualprob/internal/usecase"

// startUsecaseSpan opens a child span when the caller is already traced.
// Untraced batch runs get the parent's noop span back, so cron invocations
// without a collector configured pay nothing.
func startUsecaseSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	parent := trace.SpanFromContext(ctx)
	if operation == "" || !parent.SpanContext().IsValid() {
		return ctx, parent
	}
	return otel.Tracer(tracerName).Start(ctx, operation)
}
