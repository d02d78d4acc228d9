// Package engine implements the reasoning loop that drives an agent:
// set a goal, ask the model for a decision, act on it, repeat until the
// goal completes or the iteration budget runs out.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fieldwork-ai/fieldwork/internal/domain/conversation"
	"github.com/fieldwork-ai/fieldwork/internal/domain/decision"
	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
	"github.com/fieldwork-ai/fieldwork/internal/tool"
)

const tracerName = "fieldwork"

// State is the agent's goal state.
type State string

const (
	StateIdle     State = "idle"
	StateWorking  State = "working"
	StateComplete State = "complete"
	StateBlocked  State = "blocked"
)

const correctiveMessage = "Your response wasn't in the expected JSON format. \n" +
	"Please respond with a valid JSON object specifying your action."

// Block is returned by a Guard to suppress a tool call. The action type
// names the blocked event that gets logged in place of the tool call.
type Block struct {
	Action event.Type
	Reason string
}

// Guard is consulted before every tool call. A non-nil Block stops the
// tool from running; the reason is surfaced to the model so it can adapt.
type Guard interface {
	CheckTool(agent, toolName string, args map[string]any) *Block
}

// Messenger delivers agent-to-agent messages.
type Messenger interface {
	Deliver(ctx context.Context, from, to, message string) error
}

// ActionSink receives every action event an agent records. Implementations
// must not block; slow consumers buffer or drop.
type ActionSink interface {
	Record(ctx context.Context, evt event.ActionEvent)
}

// Agent is a single reasoning agent. All exported methods are safe for
// concurrent use, though an agent normally runs on one goroutine.
type Agent struct {
	name   string
	role   string
	client llm.Client
	tools  *tool.Registry
	log    *slog.Logger

	guard     Guard
	messenger Messenger
	sink      ActionSink
	now       func() time.Time

	maxIterations int
	stepDelay     time.Duration
	sleep         func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	state     State
	goal      string
	system    conversation.Message
	memory    []conversation.Message
	actions   []event.ActionEvent
	documents []string
}

// Option configures an Agent.
type Option func(*Agent)

// WithGuard installs a pre-tool-call guard.
func WithGuard(g Guard) Option { return func(a *Agent) { a.guard = g } }

// WithMessenger installs the channel send_message decisions go through.
func WithMessenger(m Messenger) Option { return func(a *Agent) { a.messenger = m } }

// WithSink mirrors action events to an external consumer.
func WithSink(s ActionSink) Option { return func(a *Agent) { a.sink = s } }

// WithClock overrides the timestamp source, e.g. with the simulated clock.
func WithClock(now func() time.Time) Option { return func(a *Agent) { a.now = now } }

// WithSystemPrompt replaces the synthesized system message.
func WithSystemPrompt(prompt string) Option {
	return func(a *Agent) { a.system = conversation.System(prompt) }
}

// WithMaxIterations caps Run's reason/act cycles.
func WithMaxIterations(n int) Option { return func(a *Agent) { a.maxIterations = n } }

// WithStepDelay sets the pause between Run iterations.
func WithStepDelay(d time.Duration) Option { return func(a *Agent) { a.stepDelay = d } }

// NewAgent builds an agent around a model client and its tool registry.
// The system message is synthesized from the role and tool schemas unless
// WithSystemPrompt overrides it.
func NewAgent(name, role string, client llm.Client, tools *tool.Registry, log *slog.Logger, opts ...Option) *Agent {
	a := &Agent{
		name:          name,
		role:          role,
		client:        client,
		tools:         tools,
		log:           log.With("agent", name),
		now:           time.Now,
		maxIterations: 10,
		stepDelay:     500 * time.Millisecond,
		state:         StateIdle,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.system.Content == "" {
		a.system = conversation.System(SystemPrompt(name, role, "", tools.All(), nil))
	}
	if a.sleep == nil {
		a.sleep = sleepCtx
	}
	return a
}

func (a *Agent) Name() string { return a.name }
func (a *Agent) Role() string { return a.role }

// State returns the current goal state.
func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Goal returns the active goal, empty when idle.
func (a *Agent) Goal() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.goal
}

// Memory returns a copy of the conversation memory, system message excluded.
func (a *Agent) Memory() []conversation.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]conversation.Message, len(a.memory))
	copy(out, a.memory)
	return out
}

// Actions returns a copy of the append-only action log.
func (a *Agent) Actions() []event.ActionEvent {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]event.ActionEvent, len(a.actions))
	copy(out, a.actions)
	return out
}

// Documents returns everything the agent chose to document.
func (a *Agent) Documents() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.documents))
	copy(out, a.documents)
	return out
}

// Tools exposes the agent's registry, e.g. for dashboard listings.
func (a *Agent) Tools() *tool.Registry { return a.tools }

// SetGoal assigns a goal and moves the agent to the working state.
func (a *Agent) SetGoal(ctx context.Context, goal string) {
	a.mu.Lock()
	a.goal = goal
	a.state = StateWorking
	a.memory = append(a.memory, conversation.User(fmt.Sprintf(
		"Your goal: %s\n\nThink step by step about how to achieve this goal. What should you do first?", goal)))
	a.mu.Unlock()

	a.record(ctx, event.TypeGoalSet, goal, nil, "")
	a.log.Info("goal set", "goal", goal)
}

// Reason asks the model for the next decision. A malformed response earns
// exactly one corrective re-prompt; a second failure is a hard error.
func (a *Agent) Reason(ctx context.Context) (decision.Decision, error) {
	ctx = llm.WithCaller(ctx, a.name)

	resp, err := a.client.Chat(ctx, a.transcript())
	if err != nil {
		return nil, fmt.Errorf("reason: %w", err)
	}

	d, perr := decision.Parse(resp.Content)
	if perr != nil {
		a.appendMemory(
			conversation.Assistant(resp.Content),
			conversation.User(correctiveMessage),
		)
		resp, err = a.client.Chat(ctx, a.transcript())
		if err != nil {
			return nil, fmt.Errorf("reason retry: %w", err)
		}
		if d, perr = decision.Parse(resp.Content); perr != nil {
			return nil, fmt.Errorf("reason: %w", perr)
		}
	}

	a.appendMemory(conversation.Assistant(resp.Content))
	a.record(ctx, event.TypeReason, snippet(reasoning(d), 200), nil, "")
	return d, nil
}

// Act executes a decision. Tool failures and guard blocks are folded back
// into memory so the model can adapt; only infrastructure faults return an
// error.
func (a *Agent) Act(ctx context.Context, d decision.Decision) error {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "engine.act",
		trace.WithAttributes(attribute.String("agent.name", a.name)))
	defer span.End()

	switch d := d.(type) {
	case decision.UseTool:
		return a.actUseTool(ctx, d)

	case decision.GoalComplete:
		a.mu.Lock()
		a.state = StateComplete
		a.mu.Unlock()
		details, _ := json.Marshal(map[string]string{"summary": d.Summary, "next_steps": d.NextSteps})
		a.record(ctx, event.TypeGoalComplete, snippet(d.Summary, 200), details, "success")
		a.log.Info("goal complete", "summary", snippet(d.Summary, 120))
		return nil

	case decision.Document:
		a.mu.Lock()
		a.documents = append(a.documents, d.Content)
		a.mu.Unlock()
		a.record(ctx, event.TypeDocument, snippet(d.Content, 200), nil, "success")
		a.appendMemory(conversation.User("Documentation recorded.\n\nWhat should you do next?"))
		return nil

	case decision.SendMessage:
		return a.actSendMessage(ctx, d)

	default:
		return fmt.Errorf("act: unhandled decision %T", d)
	}
}

func (a *Agent) actUseTool(ctx context.Context, d decision.UseTool) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("tool.name", d.Tool))

	if a.guard != nil {
		if block := a.guard.CheckTool(a.name, d.Tool, d.Args); block != nil {
			a.record(ctx, block.Action, block.Reason, nil, "blocked")
			a.appendMemory(conversation.User(fmt.Sprintf(
				"Tool '%s' was blocked: %s\n\nWhat should you do next?", d.Tool, block.Reason)))
			a.log.Warn("tool blocked", "tool", d.Tool, "reason", block.Reason)
			return nil
		}
	}

	tl, ok := a.tools.Get(d.Tool)
	if !ok {
		a.record(ctx, event.TypeToolCall, d.Tool, nil, "not_found")
		a.appendMemory(conversation.User(fmt.Sprintf(
			"Tool '%s' not found. Available tools: %s", d.Tool, strings.Join(a.tools.Names(), ", "))))
		return nil
	}

	if err := tool.ValidateArgs(tl, d.Args); err != nil {
		a.record(ctx, event.TypeToolCall, d.Tool, nil, "invalid_args")
		a.appendMemory(conversation.User(fmt.Sprintf(
			"Tool '%s' failed: %v\n\nAdjust your approach and try again.", d.Tool, err)))
		return nil
	}

	result, err := tl.Execute(ctx, d.Args)
	if err != nil {
		a.record(ctx, event.TypeToolCall, d.Tool, nil, "error")
		a.appendMemory(conversation.User(fmt.Sprintf(
			"Tool '%s' failed: %v\n\nAdjust your approach and try again.", d.Tool, err)))
		a.log.Warn("tool failed", "tool", d.Tool, "error", err)
		return nil
	}

	details, _ := json.Marshal(d.Args)
	a.record(ctx, event.TypeToolCall, d.Tool, details, "success")

	rendered, merr := json.MarshalIndent(result, "", "  ")
	if merr != nil {
		rendered = []byte(fmt.Sprintf("%v", result))
	}
	a.appendMemory(conversation.User(fmt.Sprintf(
		"Tool '%s' executed successfully.\n\nResult:\n%s\n\nWhat should you do next?", d.Tool, rendered)))
	return nil
}

func (a *Agent) actSendMessage(ctx context.Context, d decision.SendMessage) error {
	details, _ := json.Marshal(map[string]string{"to": d.To, "message": d.Message})

	if a.messenger == nil {
		a.record(ctx, event.TypeMessage, "to "+d.To, details, "undeliverable")
		a.appendMemory(conversation.User(fmt.Sprintf(
			"No message channel is available to reach '%s'. Continue with your own tools.", d.To)))
		return nil
	}

	if err := a.messenger.Deliver(ctx, a.name, d.To, d.Message); err != nil {
		a.record(ctx, event.TypeMessage, "to "+d.To, details, "error")
		a.appendMemory(conversation.User(fmt.Sprintf(
			"Message to '%s' failed: %v\n\nWhat should you do next?", d.To, err)))
		return nil
	}

	a.record(ctx, event.TypeMessage, "to "+d.To, details, "success")
	a.appendMemory(conversation.User(fmt.Sprintf(
		"Message sent to '%s'.\n\nWhat should you do next?", d.To)))
	return nil
}

// ReceiveMessage injects a message from another agent into memory. Used by
// the team messenger on delivery.
func (a *Agent) ReceiveMessage(ctx context.Context, from, message string) {
	a.appendMemory(conversation.User(fmt.Sprintf("Message from %s: %s", from, message)))
	details, _ := json.Marshal(map[string]string{"from": from, "message": message})
	a.record(ctx, event.TypeMessage, "from "+from, details, "received")
}

// Run sets the goal and drives reason/act cycles until the goal completes,
// the context is canceled, an error occurs, or the iteration budget is
// exhausted. Every terminal condition except completion leaves the agent
// blocked.
func (a *Agent) Run(ctx context.Context, goal string) error {
	a.SetGoal(ctx, goal)

	for iter := 0; a.State() == StateWorking; iter++ {
		if err := ctx.Err(); err != nil {
			a.block("run canceled")
			return err
		}
		if iter >= a.maxIterations {
			a.block(fmt.Sprintf("reached max iterations (%d)", a.maxIterations))
			return nil
		}

		d, err := a.Reason(ctx)
		if err != nil {
			a.block(err.Error())
			return err
		}
		if err := a.Act(ctx, d); err != nil {
			a.block(err.Error())
			return err
		}

		if a.State() == StateWorking && a.stepDelay > 0 {
			if err := a.sleep(ctx, a.stepDelay); err != nil {
				a.block("run canceled")
				return err
			}
		}
	}
	return nil
}

// Reset clears the goal and conversation memory and returns the agent to
// idle. The action log is append-only and survives resets.
func (a *Agent) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.goal = ""
	a.state = StateIdle
	a.memory = nil
}

func (a *Agent) block(reason string) {
	a.mu.Lock()
	a.state = StateBlocked
	a.mu.Unlock()
	a.log.Warn("agent blocked", "reason", reason)
}

// transcript assembles the full message list: system prompt then memory.
func (a *Agent) transcript() []conversation.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	msgs := make([]conversation.Message, 0, len(a.memory)+1)
	msgs = append(msgs, a.system)
	msgs = append(msgs, a.memory...)
	return msgs
}

func (a *Agent) appendMemory(msgs ...conversation.Message) {
	a.mu.Lock()
	a.memory = append(a.memory, msgs...)
	a.mu.Unlock()
}

func (a *Agent) record(ctx context.Context, typ event.Type, description string, details json.RawMessage, result string) {
	evt := event.ActionEvent{
		ID:          uuid.NewString(),
		Agent:       a.name,
		Type:        typ,
		Description: description,
		Details:     details,
		Result:      result,
		CreatedAt:   a.now(),
	}
	a.mu.Lock()
	a.actions = append(a.actions, evt)
	a.mu.Unlock()

	if a.sink != nil {
		a.sink.Record(ctx, evt)
	}
}

// reasoning extracts the free-text rationale carried by a decision.
func reasoning(d decision.Decision) string {
	switch d := d.(type) {
	case decision.UseTool:
		if d.Reasoning != "" {
			return d.Reasoning
		}
		return "use tool " + d.Tool
	case decision.GoalComplete:
		return d.Summary
	case decision.Document:
		if d.Reasoning != "" {
			return d.Reasoning
		}
		return "document findings"
	case decision.SendMessage:
		return "message " + d.To
	default:
		return ""
	}
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
