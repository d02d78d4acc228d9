package tool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/ledger"
)

func newTaskTool(t *testing.T) *TaskTool {
	t.Helper()
	store := ledger.NewStore(t.TempDir(), func() time.Time {
		return time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)
	})
	return NewTaskTool(store)
}

func TestTaskToolCreateAndRead(t *testing.T) {
	tt := newTaskTool(t)
	ctx := context.Background()

	_, err := tt.Execute(ctx, map[string]any{
		"action":           "create_task",
		"agent_name":       "Esther",
		"task_description": "Draft risk assessment",
		"priority":         "high",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := tt.Execute(ctx, map[string]any{
		"action":     "read_my_tasks",
		"agent_name": "Esther",
	})
	if err != nil {
		t.Fatal(err)
	}
	if res["open_count"] != 1 {
		t.Errorf("open_count = %v", res["open_count"])
	}
	tasks, _ := res["tasks"].(string)
	if tasks == "" {
		t.Error("expected rendered ledger")
	}
}

func TestTaskToolAssignShowsOnBothSides(t *testing.T) {
	tt := newTaskTool(t)
	ctx := context.Background()

	_, err := tt.Execute(ctx, map[string]any{
		"action":           "assign_task",
		"agent_name":       "Esther",
		"assignee":         "Hillel",
		"task_description": "Collect IAM credential report",
	})
	if err != nil {
		t.Fatal(err)
	}

	res, err := tt.Execute(ctx, map[string]any{
		"action":     "list_all_tasks",
		"agent_name": "Esther",
	})
	if err != nil {
		t.Fatal(err)
	}
	agents, _ := res["agents"].(map[string]any)
	esther, _ := agents["Esther"].(map[string]any)
	hillel, _ := agents["Hillel"].(map[string]any)
	if esther["delegated"] != 1 {
		t.Errorf("esther delegated = %v", esther["delegated"])
	}
	if hillel["open"] != 1 {
		t.Errorf("hillel open = %v", hillel["open"])
	}
}

func TestTaskToolCompleteUsesOneBasedIndex(t *testing.T) {
	tt := newTaskTool(t)
	ctx := context.Background()

	for _, desc := range []string{"First", "Second"} {
		if _, err := tt.Execute(ctx, map[string]any{
			"action":           "create_task",
			"agent_name":       "Neil",
			"task_description": desc,
		}); err != nil {
			t.Fatal(err)
		}
	}

	// task_index arrives as float64 when decoded from model JSON.
	res, err := tt.Execute(ctx, map[string]any{
		"action":     "complete_task",
		"agent_name": "Neil",
		"task_index": float64(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res["completed"] != "First" {
		t.Errorf("completed = %v", res["completed"])
	}
}

func TestTaskToolAcceptMarksTaskInProgress(t *testing.T) {
	tt := newTaskTool(t)
	ctx := context.Background()

	if _, err := tt.Execute(ctx, map[string]any{
		"action":           "assign_task",
		"agent_name":       "Esther",
		"assignee":         "Hillel",
		"task_description": "Collect IAM user listing",
	}); err != nil {
		t.Fatal(err)
	}

	res, err := tt.Execute(ctx, map[string]any{
		"action":     "accept_task",
		"agent_name": "Hillel",
		"task_index": float64(1),
	})
	if err != nil {
		t.Fatal(err)
	}
	if res["accepted"] != "Collect IAM user listing" {
		t.Errorf("accepted = %v", res["accepted"])
	}
	if res["assigned_by"] != "Esther" {
		t.Errorf("assigned_by = %v", res["assigned_by"])
	}
	if res["status"] != "In Progress" {
		t.Errorf("status = %v", res["status"])
	}
}

func TestTaskToolAcceptRequiresIndex(t *testing.T) {
	tt := newTaskTool(t)

	_, err := tt.Execute(context.Background(), map[string]any{
		"action":     "accept_task",
		"agent_name": "Hillel",
	})
	if err == nil {
		t.Fatal("expected error for missing task_index")
	}
}

func TestTaskToolRejectsUnknownAction(t *testing.T) {
	tt := newTaskTool(t)

	_, err := tt.Execute(context.Background(), map[string]any{
		"action":     "explode",
		"agent_name": "Juman",
	})
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
}
