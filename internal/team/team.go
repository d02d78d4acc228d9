package team

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/fieldwork-ai/fieldwork/internal/engine"
)

// Team is the set of running agents. It doubles as the message channel
// between them: an agent's send_message decision is delivered into the
// recipient's memory.
type Team struct {
	log *slog.Logger

	mu     sync.RWMutex
	agents map[string]*engine.Agent
	order  []string
}

// NewTeam builds an empty team.
func NewTeam(log *slog.Logger) *Team {
	return &Team{
		log:    log,
		agents: make(map[string]*engine.Agent),
	}
}

// Add registers an agent. A second agent with the same name replaces the
// first.
func (t *Team) Add(a *engine.Agent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := strings.ToLower(a.Name())
	if _, exists := t.agents[key]; !exists {
		t.order = append(t.order, key)
	}
	t.agents[key] = a
}

// Get looks an agent up by name, case-insensitive.
func (t *Team) Get(name string) (*engine.Agent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.agents[strings.ToLower(name)]
	return a, ok
}

// Agents returns the members in registration order.
func (t *Team) Agents() []*engine.Agent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*engine.Agent, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.agents[key])
	}
	return out
}

// Deliver implements engine.Messenger by injecting the message into the
// recipient's memory.
func (t *Team) Deliver(ctx context.Context, from, to, message string) error {
	recipient, ok := t.Get(to)
	if !ok {
		return fmt.Errorf("no agent named %q on the team", to)
	}
	recipient.ReceiveMessage(ctx, from, message)
	t.log.Info("message delivered", "from", from, "to", to)
	return nil
}

// Run drives each named agent toward its goal concurrently and waits for
// all of them. Goals key by agent name; an unknown name fails before any
// agent starts. The first agent error cancels the rest.
func (t *Team) Run(ctx context.Context, goals map[string]string) error {
	type assignment struct {
		agent *engine.Agent
		goal  string
	}
	assignments := make([]assignment, 0, len(goals))
	for name, goal := range goals {
		a, ok := t.Get(name)
		if !ok {
			return fmt.Errorf("no agent named %q on the team", name)
		}
		assignments = append(assignments, assignment{agent: a, goal: goal})
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, as := range assignments {
		g.Go(func() error {
			return as.agent.Run(ctx, as.goal)
		})
	}
	return g.Wait()
}
