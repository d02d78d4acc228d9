// Package decision parses model responses into the closed set of actions an
// agent can take. Models are prompted to answer with a single JSON object,
// but in practice wrap it in prose or code fences; Parse digs the object out
// before decoding it.
package decision

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decision is one of UseTool, GoalComplete, Document or SendMessage.
// The set is closed: no other package can implement it.
type Decision interface {
	isDecision()
}

// UseTool asks for a registered tool to be invoked.
type UseTool struct {
	Tool      string
	Args      map[string]any
	Reasoning string
}

// GoalComplete declares the current goal achieved.
type GoalComplete struct {
	Summary   string
	NextSteps string
}

// Document records findings or analysis without invoking a tool.
type Document struct {
	Content   string
	Reasoning string
}

// SendMessage addresses another agent by name.
type SendMessage struct {
	To      string
	Message string
}

func (UseTool) isDecision()      {}
func (GoalComplete) isDecision() {}
func (Document) isDecision()     {}
func (SendMessage) isDecision()  {}

// ParseError reports a response that could not be turned into a Decision.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	raw := e.Raw
	if len(raw) > 200 {
		raw = raw[:200] + "..."
	}
	return fmt.Sprintf("parse decision: %s: %q", e.Reason, raw)
}

// wire is the union of all fields the model may emit. Which ones are
// meaningful depends on the action tag.
type wire struct {
	Action     string         `json:"action"`
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	Reasoning  string         `json:"reasoning"`
	Summary    string         `json:"summary"`
	NextSteps  flexText       `json:"next_steps"`
	Content    string         `json:"content"`
	To         string         `json:"to"`
	Message    string         `json:"message"`
}

// flexText accepts either a JSON string or an array of strings.
type flexText string

func (t *flexText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = flexText(s)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = flexText(strings.Join(list, "; "))
		return nil
	}
	return fmt.Errorf("next_steps: expected string or array of strings")
}

// Parse extracts the JSON object from a model response and decodes it into a
// Decision. Acceptance order: ```json fence, bare ``` fence, response
// starting with '{', then the first '{' through the last '}'.
func Parse(content string) (Decision, error) {
	jsonStr, err := extract(content)
	if err != nil {
		return nil, err
	}

	var w wire
	if err := json.Unmarshal([]byte(jsonStr), &w); err != nil {
		return nil, &ParseError{Reason: err.Error(), Raw: content}
	}

	switch w.Action {
	case "use_tool":
		args := w.Parameters
		if args == nil {
			args = map[string]any{}
		}
		return UseTool{Tool: w.Tool, Args: args, Reasoning: w.Reasoning}, nil
	case "goal_complete":
		return GoalComplete{Summary: w.Summary, NextSteps: string(w.NextSteps)}, nil
	case "document":
		return Document{Content: w.Content, Reasoning: w.Reasoning}, nil
	case "send_message":
		return SendMessage{To: w.To, Message: w.Message}, nil
	case "":
		return nil, &ParseError{Reason: "missing action field", Raw: content}
	default:
		return nil, &ParseError{Reason: "unknown action " + w.Action, Raw: content}
	}
}

func extract(content string) (string, error) {
	content = strings.TrimSpace(content)

	if i := strings.Index(content, "```json"); i >= 0 {
		start := i + len("```json")
		if end := strings.Index(content[start:], "```"); end >= 0 {
			return strings.TrimSpace(content[start : start+end]), nil
		}
	}
	if i := strings.Index(content, "```"); i >= 0 {
		start := i + len("```")
		if end := strings.Index(content[start:], "```"); end >= 0 {
			return strings.TrimSpace(content[start : start+end]), nil
		}
	}
	if strings.HasPrefix(content, "{") {
		return content, nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1], nil
	}
	return "", &ParseError{Reason: "no JSON object found in response", Raw: content}
}
