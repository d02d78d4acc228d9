package tool

import (
	"context"
	"errors"
	"testing"
)

type stubTool struct {
	name   string
	params []Parameter
}

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub" }
func (s *stubTool) Parameters() []Parameter { return s.params }
func (s *stubTool) Execute(context.Context, map[string]any) (map[string]any, error) {
	return map[string]any{"ok": true}, nil
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubTool{name: "manage_tasks"}); err != nil {
		t.Fatal(err)
	}
	err := r.Register(&stubTool{name: "manage_tasks"})
	if !errors.Is(err, ErrToolExists) {
		t.Fatalf("expected ErrToolExists, got %v", err)
	}
}

func TestRegistryPreservesOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := r.Register(&stubTool{name: name}); err != nil {
			t.Fatal(err)
		}
	}
	got := r.Names()
	want := []string{"zeta", "alpha", "mid"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("names = %v, want %v", got, want)
		}
	}
	if r.Len() != 3 {
		t.Errorf("len = %d, want 3", r.Len())
	}
	if _, ok := r.Get("alpha"); !ok {
		t.Error("Get(alpha) missed")
	}
	if _, ok := r.Get("nope"); ok {
		t.Error("Get(nope) should miss")
	}
}

func TestSchemaShape(t *testing.T) {
	params := []Parameter{
		{Name: "action", Type: "string", Description: "what to do", Required: true},
		{Name: "priority", Type: "string", Description: "how urgent", Default: "medium"},
	}
	schema := Schema(params)

	if schema["type"] != "object" {
		t.Errorf("type = %v", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok || len(props) != 2 {
		t.Fatalf("properties = %v", schema["properties"])
	}
	prio, _ := props["priority"].(map[string]any)
	if prio["default"] != "medium" {
		t.Errorf("priority default = %v", prio["default"])
	}
	required, _ := schema["required"].([]string)
	if len(required) != 1 || required[0] != "action" {
		t.Errorf("required = %v", required)
	}
}

func TestValidateArgsMissingRequired(t *testing.T) {
	tool := &stubTool{name: "x", params: []Parameter{
		{Name: "source", Required: true},
		{Name: "note"},
	}}

	if err := ValidateArgs(tool, map[string]any{"source": "IAM"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	err := ValidateArgs(tool, map[string]any{"note": "n"})
	var execErr *ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ExecutionError, got %v", err)
	}
	if execErr.Tool != "x" {
		t.Errorf("tool = %q", execErr.Tool)
	}
}
