package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
)

// MetricsSink implements engine.ActionSink by counting action events into
// the metric instruments.
type MetricsSink struct {
	m *Metrics
}

// NewMetricsSink wraps the instruments as a sink.
func NewMetricsSink(m *Metrics) *MetricsSink {
	return &MetricsSink{m: m}
}

// Record counts the event.
func (s *MetricsSink) Record(ctx context.Context, evt event.ActionEvent) {
	agent := metric.WithAttributes(attribute.String("agent.name", evt.Agent))

	switch evt.Type {
	case event.TypeReason:
		s.m.Iterations.Add(ctx, 1, agent)
	case event.TypeToolCall:
		s.m.ToolCalls.Add(ctx, 1, agent)
	case event.TypeGoalComplete:
		s.m.GoalsComplete.Add(ctx, 1, agent)
	case event.TypeAssignBlocked, event.TypeAssignmentBlocked,
		event.TypeCollectionBlocked, event.TypeExecutionBlocked:
		s.m.BlockedCalls.Add(ctx, 1, agent,
			metric.WithAttributes(attribute.String("block.type", string(evt.Type))))
	}
}
