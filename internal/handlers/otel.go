package handlers

import (
	"github.com/ai-judge/ai-judge/internal/executioncontext"
	"github.com/ai-judge/ai-judge/internal/otel"
)

const component = "handlers"

// withSpan runs fn in a span named after operation, atts are name/value pairs.
func (h *Handlers) withSpan(ctx *executioncontext.ExecutionContext, fn otel.SpanFunction, operation string, atts ...string) error {
	attributes := make(map[string]string)
	for i := 0; i < len(atts); i += 2 {
		if i+1 >= len(atts) {
			attributes[atts[i]] = ""
		} else {
			attributes[atts[i]] = atts[i+1]
		}
	}
	attributes["request_id"] = ctx.RequestID
	return otel.WithSpan(
		ctx.Ctx,
		h.serviceConfig,
		ctx.Logger,
		component,
		operation,
		attributes,
		fn,
	)
}
