package otel

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ai-judge/ai-judge/internal/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type SpanFunction func(context.Context) error

// WithSpan runs fn inside a child span when tracing is enabled, otherwise it
// just runs fn. Empty attribute values are dropped.
func WithSpan(ctx context.Context, serviceConfig *config.Config, logger *slog.Logger, component string, operation string, attributes map[string]string, fn SpanFunction) error {
	spanCtx := ctx
	var span trace.Span

	if serviceConfig != nil && serviceConfig.IsOTELEnabled() {
		spanCtx, span = otel.Tracer(component).Start(ctx, operation)

		var atts []attribute.KeyValue
		for key, value := range attributes {
			if value != "" {
				atts = append(atts, attribute.String(key, value))
			}
		}
		span.SetAttributes(atts...)
	}

	err := fn(spanCtx)

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, fmt.Sprintf("%s failed", operation))
			logger.Debug("Span failed", "component", component, "operation", operation, "error", err.Error())
		} else {
			span.SetStatus(codes.Ok, fmt.Sprintf("%s successful", operation))
		}
		span.End()
	}

	return err
}
