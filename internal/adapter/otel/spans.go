package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "fieldwork"

// StartGoalSpan starts a span covering one agent goal from set to terminal
// state.
func StartGoalSpan(ctx context.Context, agent, goal string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "goal",
		trace.WithAttributes(
			attribute.String("agent.name", agent),
			attribute.String("goal.text", goal),
		),
	)
}

// StartReviewSpan starts a span for a gate review.
func StartReviewSpan(ctx context.Context, subject string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "review",
		trace.WithAttributes(
			attribute.String("review.subject", subject),
		),
	)
}
