package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/twcadmin/internal/errors"
)

// StartCommandSpan creates a span for a CLI command execution.
//
// Usage:
//
//	ctx, span := telemetry.StartCommandSpan(ctx, "brands reorder")
//	defer span.End()
func StartCommandSpan(ctx context.Context, cmdName string) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("commands")
	ctx, span := tracer.Start(ctx, "command."+cmdName)

	span.SetAttributes(
		attribute.String("command", cmdName),
		attribute.String("component", "cli"),
	)

	return ctx, span
}

// StartReorderSpan creates a span around one reorder commit.
func StartReorderSpan(ctx context.Context, collection string, items int) (context.Context, trace.Span) {
	tracer := GetTracerProvider().Tracer("reorder")
	ctx, span := tracer.Start(ctx, "reorder.commit")

	span.SetAttributes(
		attribute.String("collection", collection),
		attribute.Int("items", items),
		attribute.String("component", "reorder"),
	)

	return ctx, span
}

// RecordSuccess marks a span as successful with optional result attributes.
func RecordSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
	span.SetStatus(codes.Ok, "")
}

// RecordError records an error in a span and sets error status.
// Coded errors also carry their code.
func RecordError(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.Bool("error", true))
	if code := errors.CodeOf(err); code != "" {
		span.SetAttributes(attribute.String("error.code", string(code)))
	}
}
