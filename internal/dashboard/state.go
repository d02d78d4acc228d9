// Package dashboard aggregates live engagement state for the read-only
// HTTP dashboard: team status, per-agent trails, model spend, approval
// gate status and the shared task ledgers.
package dashboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/budget"
	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
	"github.com/fieldwork-ai/fieldwork/internal/gate"
	"github.com/fieldwork-ai/fieldwork/internal/ledger"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
	"github.com/fieldwork-ai/fieldwork/internal/team"
)

// AgentSummary is one row in the team overview.
type AgentSummary struct {
	Name        string `json:"name"`
	Role        string `json:"role"`
	State       string `json:"state"`
	Goal        string `json:"goal,omitempty"`
	ActionCount int    `json:"action_count"`
	MemoryCount int    `json:"memory_count"`
	Documents   int    `json:"documents"`
}

// CostReport is the full spend breakdown for the engagement.
type CostReport struct {
	Summary cost.Summary        `json:"summary"`
	ByModel []cost.ModelSummary `json:"by_model"`
	ByAgent []cost.AgentSummary `json:"by_agent"`
}

// LedgerOverview is one agent's task counts plus the rendered markdown.
type LedgerOverview struct {
	Agent     string `json:"agent"`
	Open      int    `json:"open"`
	Completed int    `json:"completed"`
	Delegated int    `json:"delegated"`
	Markdown  string `json:"markdown"`
}

// State exposes read-only views over the running engagement. All methods
// are safe for concurrent use; the underlying components do their own
// locking.
type State struct {
	team    *team.Team
	gateway *llm.Gateway
	gate    *gate.Gate
	ledgers *ledger.Store
	started time.Time
	now     func() time.Time

	mu     sync.RWMutex
	budget *budget.Tracker
}

// New builds the dashboard state over the live components. ledgers may be
// nil when no task directory is configured.
func New(t *team.Team, gw *llm.Gateway, g *gate.Gate, ledgers *ledger.Store, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		team:    t,
		gateway: gw,
		gate:    g,
		ledgers: ledgers,
		started: now(),
		now:     now,
	}
}

// Uptime reports how long the engagement has been running.
func (s *State) Uptime() time.Duration {
	return s.now().Sub(s.started)
}

// Team returns a summary row per agent, in team order.
func (s *State) Team() []AgentSummary {
	agents := s.team.Agents()
	out := make([]AgentSummary, 0, len(agents))
	for _, a := range agents {
		out = append(out, summarize(a))
	}
	return out
}

// Agent returns one agent's summary, or an error when the name is unknown.
func (s *State) Agent(name string) (AgentSummary, error) {
	a, ok := s.team.Get(name)
	if !ok {
		return AgentSummary{}, fmt.Errorf("no agent named %q on the team", name)
	}
	return summarize(a), nil
}

// Actions returns the tail of an agent's action trail, newest last. A
// limit <= 0 returns the whole trail.
func (s *State) Actions(name string, limit int) ([]event.ActionEvent, error) {
	a, ok := s.team.Get(name)
	if !ok {
		return nil, fmt.Errorf("no agent named %q on the team", name)
	}
	actions := a.Actions()
	if limit > 0 && len(actions) > limit {
		actions = actions[len(actions)-limit:]
	}
	return actions, nil
}

// Memory returns the tail of an agent's conversation memory, newest last.
// A limit <= 0 returns the whole memory.
func (s *State) Memory(name string, limit int) ([]conversation.Message, error) {
	a, ok := s.team.Get(name)
	if !ok {
		return nil, fmt.Errorf("no agent named %q on the team", name)
	}
	memory := a.Memory()
	if limit > 0 && len(memory) > limit {
		memory = memory[len(memory)-limit:]
	}
	return memory, nil
}

// Costs returns the gateway spend breakdown.
func (s *State) Costs() CostReport {
	return CostReport{
		Summary: s.gateway.Ledger().Summary(),
		ByModel: s.gateway.Ledger().ByModel(),
		ByAgent: s.gateway.Ledger().ByAgent(),
	}
}

// Approvals returns the gate status for every review subject.
func (s *State) Approvals() []gate.Approval {
	return s.gate.Approvals()
}

// SetBudget installs the hour tracker once the audit plan is approved.
// Until then Budget reports that no budget exists yet.
func (s *State) SetBudget(t *budget.Tracker) {
	s.mu.Lock()
	s.budget = t
	s.mu.Unlock()
}

// Budget returns the hours variance report for the approved plan.
func (s *State) Budget() (budget.Report, error) {
	s.mu.RLock()
	t := s.budget
	s.mu.RUnlock()
	if t == nil {
		return budget.Report{}, fmt.Errorf("no approved audit plan yet")
	}
	return t.Report(), nil
}

// Ledger returns one agent's task list overview.
func (s *State) Ledger(agent string) (LedgerOverview, error) {
	if s.ledgers == nil {
		return LedgerOverview{}, fmt.Errorf("task ledger not configured")
	}
	l, err := s.ledgers.Read(agent)
	if err != nil {
		return LedgerOverview{}, fmt.Errorf("read ledger for %s: %w", agent, err)
	}
	return LedgerOverview{
		Agent:     l.Agent,
		Open:      len(l.Current),
		Completed: len(l.Completed),
		Delegated: len(l.Delegated),
		Markdown:  l.Render(),
	}, nil
}

func summarize(a *engine.Agent) AgentSummary {
	return AgentSummary{
		Name:        a.Name(),
		Role:        a.Role(),
		State:       string(a.State()),
		Goal:        a.Goal(),
		ActionCount: len(a.Actions()),
		MemoryCount: len(a.Memory()),
		Documents:   len(a.Documents()),
	}
}
