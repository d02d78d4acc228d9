package team

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/config"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
	"github.com/fieldwork-ai/fieldwork/internal/ledger"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
	"github.com/fieldwork-ai/fieldwork/internal/tool"
)

// Factory builds agents from personas, wiring the shared gateway, guard,
// event sink and workspace directories into each one.
type Factory struct {
	client    llm.Client
	guard     engine.Guard
	sink      engine.ActionSink
	messenger engine.Messenger
	store     *ledger.Store
	workspace config.Workspace
	eng       config.Engine
	now       func() time.Time
	log       *slog.Logger

	clientFor func(model string) llm.Client
}

// SelectModel installs a per-model client constructor. Personas with a
// Model override then get their own client instead of the shared one.
func (f *Factory) SelectModel(fn func(model string) llm.Client) { f.clientFor = fn }

// NewFactory wires the shared infrastructure every agent gets. guard,
// sink and messenger may be nil.
func NewFactory(client llm.Client, store *ledger.Store, workspace config.Workspace, eng config.Engine,
	guard engine.Guard, sink engine.ActionSink, messenger engine.Messenger,
	now func() time.Time, log *slog.Logger) *Factory {
	if now == nil {
		now = time.Now
	}
	return &Factory{
		client:    client,
		guard:     guard,
		sink:      sink,
		messenger: messenger,
		store:     store,
		workspace: workspace,
		eng:       eng,
		now:       now,
		log:       log,
	}
}

// Build turns a persona into a ready agent with its tool bundle and
// synthesized system prompt. Unknown tool names are an error.
func (f *Factory) Build(p Persona) (*engine.Agent, error) {
	reg := tool.NewRegistry()
	for _, name := range p.ToolNames {
		tl, err := f.makeTool(name)
		if err != nil {
			return nil, fmt.Errorf("persona %s: %w", p.ID, err)
		}
		if err := reg.Register(tl); err != nil {
			return nil, fmt.Errorf("persona %s: %w", p.ID, err)
		}
	}

	knowledge := append([]string(nil), p.Knowledge...)
	if extra, err := f.loadKnowledge(p.ID); err == nil && extra != "" {
		knowledge = append(knowledge, extra)
	}

	prompt := engine.SystemPrompt(p.Name, p.Role, p.PromptTemplate, reg.All(), knowledge)

	client := f.client
	if p.Model != "" && f.clientFor != nil {
		client = f.clientFor(p.Model)
	}

	opts := []engine.Option{
		engine.WithSystemPrompt(prompt),
		engine.WithClock(f.now),
		engine.WithMaxIterations(f.eng.MaxIterations),
		engine.WithStepDelay(f.eng.StepDelay),
	}
	if f.guard != nil {
		opts = append(opts, engine.WithGuard(f.guard))
	}
	if f.sink != nil {
		opts = append(opts, engine.WithSink(f.sink))
	}
	if f.messenger != nil {
		opts = append(opts, engine.WithMessenger(f.messenger))
	}

	return engine.NewAgent(p.Name, p.Role, client, reg, f.log, opts...), nil
}

// BuildTeam builds every persona and registers the agents on t, which is
// usually also the factory's messenger.
func (f *Factory) BuildTeam(t *Team, personas []Persona) error {
	for _, p := range personas {
		a, err := f.Build(p)
		if err != nil {
			return err
		}
		t.Add(a)
	}
	return nil
}

func (f *Factory) makeTool(name string) (tool.Tool, error) {
	switch name {
	case "manage_tasks":
		return tool.NewTaskTool(f.store), nil
	case "create_workpaper":
		return tool.NewWorkpaperTool(f.workspace.WorkpaperDir, f.now), nil
	case "store_evidence":
		return tool.NewEvidenceTool(f.workspace.EvidenceDir, f.now), nil
	case "execute_test":
		ev := tool.NewEvidenceTool(f.workspace.EvidenceDir, f.now)
		return tool.NewTestTool(ev, f.workspace.ResultsDir, f.now), nil
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

// loadKnowledge reads optional per-persona reference material from the
// knowledge directory. A missing file is not an error.
func (f *Factory) loadKnowledge(id string) (string, error) {
	if f.workspace.KnowledgeDir == "" {
		return "", nil
	}
	path := filepath.Join(f.workspace.KnowledgeDir, id+".md")
	data, err := os.ReadFile(path) //nolint:gosec // G304: path derived from persona id
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}
