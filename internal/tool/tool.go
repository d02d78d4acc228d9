// Package tool defines the capability surface agents act through: the Tool
// interface, per-agent registries, and the built-in workpaper, evidence and
// task tools.
package tool

import (
	"context"
	"fmt"
)

// Parameter describes one tool argument.
type Parameter struct {
	Name        string
	Type        string // "string", "number", "boolean", "object", "array"
	Description string
	Required    bool
	Default     any
}

// Tool is a capability an agent can invoke by name. Execute receives the raw
// argument map from the model's decision; unknown keys are passed through
// untouched so tools can accept open-ended input.
type Tool interface {
	Name() string
	Description() string
	Parameters() []Parameter
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// ExecutionError reports a tool failure the agent can recover from by
// adapting its approach.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Schema renders a parameter list as a JSON-schema object, the shape
// embedded in agent prompts.
func Schema(params []Parameter) map[string]any {
	properties := make(map[string]any, len(params))
	required := []string{}

	for _, p := range params {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		properties[p.Name] = prop

		if p.Required {
			required = append(required, p.Name)
		}
	}

	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// ValidateArgs checks that every required parameter is present. Keys not
// declared by the tool are left alone.
func ValidateArgs(tool Tool, args map[string]any) error {
	for _, p := range tool.Parameters() {
		if !p.Required {
			continue
		}
		if _, ok := args[p.Name]; !ok {
			return &ExecutionError{
				Tool: tool.Name(),
				Err:  fmt.Errorf("missing required parameter %q", p.Name),
			}
		}
	}
	return nil
}
