package tool

import (
	"context"
	"fmt"

	"github.com/fieldwork-ai/fieldwork/internal/ledger"
)

// TaskTool lets an agent manage its markdown task ledger and delegate
// work to other agents. Every action identifies the acting agent via
// agent_name so a shared store can serve the whole team.
type TaskTool struct {
	store *ledger.Store
}

func NewTaskTool(store *ledger.Store) *TaskTool {
	return &TaskTool{store: store}
}

func (t *TaskTool) Name() string { return "manage_tasks" }

func (t *TaskTool) Description() string {
	return "Read, create, assign and complete tasks tracked in per-agent markdown ledgers."
}

func (t *TaskTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "action", Type: "string", Required: true,
			Description: "One of: read_my_tasks, create_task, assign_task, accept_task, complete_task, list_all_tasks"},
		{Name: "agent_name", Type: "string", Required: true, Description: "Name of the acting agent"},
		{Name: "task_description", Type: "string", Description: "Task text for create_task and assign_task"},
		{Name: "assignee", Type: "string", Description: "Receiving agent for assign_task"},
		{Name: "priority", Type: "string", Default: "medium", Description: "Task priority (low, medium, high)"},
		{Name: "task_index", Type: "number", Description: "1-based index into open tasks for accept_task and complete_task"},
		{Name: "due_date", Type: "string", Description: "Optional due date (YYYY-MM-DD)"},
	}
}

func (t *TaskTool) Execute(_ context.Context, args map[string]any) (map[string]any, error) {
	action := str(args, "action")
	agent := str(args, "agent_name")

	switch action {
	case "read_my_tasks":
		l, err := t.store.Read(agent)
		if err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		return map[string]any{
			"agent":           l.Agent,
			"tasks":           l.Render(),
			"open_count":      len(l.Current),
			"completed_count": len(l.Completed),
			"delegated_count": len(l.Delegated),
		}, nil

	case "create_task":
		desc := str(args, "task_description")
		if desc == "" {
			return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("create_task requires task_description")}
		}
		if err := t.store.Create(agent, desc, str(args, "priority"), str(args, "due_date")); err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		return map[string]any{"created": desc, "agent": agent}, nil

	case "assign_task":
		desc := str(args, "task_description")
		assignee := str(args, "assignee")
		if desc == "" || assignee == "" {
			return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("assign_task requires task_description and assignee")}
		}
		if err := t.store.Assign(agent, assignee, desc, str(args, "priority"), str(args, "due_date")); err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		return map[string]any{"assigned": desc, "from": agent, "to": assignee}, nil

	case "accept_task":
		idx, ok := intArg(args, "task_index")
		if !ok || idx < 1 {
			return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("accept_task requires a positive task_index")}
		}
		task, err := t.store.Accept(agent, idx-1)
		if err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		return map[string]any{"accepted": task.Description, "assigned_by": task.AssignedBy, "status": task.Status}, nil

	case "complete_task":
		idx, ok := intArg(args, "task_index")
		if !ok || idx < 1 {
			return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("complete_task requires a positive task_index")}
		}
		task, err := t.store.Complete(agent, idx-1)
		if err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		return map[string]any{"completed": task.Description, "completed_on": task.CompletedOn}, nil

	case "list_all_tasks":
		all, err := t.store.All()
		if err != nil {
			return nil, &ExecutionError{Tool: t.Name(), Err: err}
		}
		agents := make(map[string]any, len(all))
		for name, l := range all {
			agents[name] = map[string]any{
				"open":      len(l.Current),
				"completed": len(l.Completed),
				"delegated": len(l.Delegated),
			}
		}
		return map[string]any{"agents": agents}, nil

	default:
		return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("unknown action %q", action)}
	}
}

// intArg reads a numeric argument, accepting the float64 that JSON
// decoding produces as well as native ints.
func intArg(args map[string]any, key string) (int, bool) {
	switch v := args[key].(type) {
	case int:
		return v, true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}
