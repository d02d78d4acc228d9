package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "fieldwork"

// Metrics holds the engine's metric instruments.
type Metrics struct {
	Iterations    metric.Int64Counter
	ToolCalls     metric.Int64Counter
	BlockedCalls  metric.Int64Counter
	ModelCalls    metric.Int64Counter
	ModelCost     metric.Float64Histogram
	GoalDuration  metric.Float64Histogram
	GoalsComplete metric.Int64Counter
	GoalsBlocked  metric.Int64Counter
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Iterations, err = meter.Int64Counter("fieldwork.engine.iterations",
		metric.WithDescription("Reason/act cycles executed"))
	if err != nil {
		return nil, err
	}

	m.ToolCalls, err = meter.Int64Counter("fieldwork.engine.toolcalls",
		metric.WithDescription("Tool calls executed"))
	if err != nil {
		return nil, err
	}

	m.BlockedCalls, err = meter.Int64Counter("fieldwork.gate.blocked",
		metric.WithDescription("Tool calls blocked by the approval gate"))
	if err != nil {
		return nil, err
	}

	m.ModelCalls, err = meter.Int64Counter("fieldwork.llm.calls",
		metric.WithDescription("Model provider calls"))
	if err != nil {
		return nil, err
	}

	m.ModelCost, err = meter.Float64Histogram("fieldwork.llm.cost_usd",
		metric.WithDescription("Cost per model call in USD"))
	if err != nil {
		return nil, err
	}

	m.GoalDuration, err = meter.Float64Histogram("fieldwork.goal.duration_seconds",
		metric.WithDescription("Time from goal set to terminal state"))
	if err != nil {
		return nil, err
	}

	m.GoalsComplete, err = meter.Int64Counter("fieldwork.goals.completed",
		metric.WithDescription("Goals reaching the complete state"))
	if err != nil {
		return nil, err
	}

	m.GoalsBlocked, err = meter.Int64Counter("fieldwork.goals.blocked",
		metric.WithDescription("Goals ending blocked"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
