package llm

import (
	"sort"
	"sync"

	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
)

// Ledger accumulates the spend of every model call made through a Gateway.
// Safe for concurrent use.
type Ledger struct {
	mu      sync.Mutex
	entries []cost.Entry
}

// NewLedger creates an empty cost ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record appends one call's spend.
func (l *Ledger) Record(e cost.Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Summary returns the aggregate spend across all recorded calls.
func (l *Ledger) Summary() cost.Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return summarize(l.entries)
}

// ByModel returns per-model aggregates sorted by model name.
func (l *Ledger) ByModel() []cost.ModelSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	groups := make(map[string][]cost.Entry)
	for _, e := range l.entries {
		groups[e.Model] = append(groups[e.Model], e)
	}

	out := make([]cost.ModelSummary, 0, len(groups))
	for model, entries := range groups {
		out = append(out, cost.ModelSummary{Model: model, Summary: summarize(entries)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

// ByAgent returns per-agent aggregates sorted by agent name. Calls made
// without caller attribution are grouped under the empty name.
func (l *Ledger) ByAgent() []cost.AgentSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	groups := make(map[string][]cost.Entry)
	for _, e := range l.entries {
		groups[e.Agent] = append(groups[e.Agent], e)
	}

	out := make([]cost.AgentSummary, 0, len(groups))
	for agent, entries := range groups {
		out = append(out, cost.AgentSummary{Agent: agent, Summary: summarize(entries)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Agent < out[j].Agent })
	return out
}

// Entries returns a copy of all recorded entries in call order.
func (l *Ledger) Entries() []cost.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]cost.Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func summarize(entries []cost.Entry) cost.Summary {
	var s cost.Summary
	for _, e := range entries {
		s.TotalCostUSD += e.CostUSD
		s.TotalTokensIn += int64(e.TokensIn)
		s.TotalTokensOut += int64(e.TokensOut)
		s.CallCount++
	}
	if s.CallCount > 0 {
		s.AvgCostPerCall = s.TotalCostUSD / float64(s.CallCount)
	}
	return s
}
