// Package cost defines domain types for model spend aggregation.
package cost

import "time"

// Entry records a single model call.
type Entry struct {
	Timestamp time.Time `json:"timestamp"`
	Agent     string    `json:"agent,omitempty"`
	Model     string    `json:"model"`
	TokensIn  int       `json:"tokens_in"`
	TokensOut int       `json:"tokens_out"`
	CostUSD   float64   `json:"cost_usd"`
}

// Summary holds aggregate spend and token metrics.
type Summary struct {
	TotalCostUSD   float64 `json:"total_cost_usd"`
	TotalTokensIn  int64   `json:"total_tokens_in"`
	TotalTokensOut int64   `json:"total_tokens_out"`
	CallCount      int     `json:"call_count"`
	AvgCostPerCall float64 `json:"avg_cost_per_call"`
}

// ModelSummary breaks down spend by model.
type ModelSummary struct {
	Model string `json:"model"`
	Summary
}

// AgentSummary breaks down spend by agent.
type AgentSummary struct {
	Agent string `json:"agent"`
	Summary
}
