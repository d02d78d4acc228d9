// Package ledger implements the shared markdown task lists agents delegate
// work through. Each agent owns one file (<agent>-tasks.md) with Current,
// Completed and Delegated sections; the Store serializes access per agent
// and keeps cross-agent assignment atomic.
package ledger

import (
	"fmt"
	"strings"
)

// Section headers in the markdown wire format.
const (
	headerCurrent   = "## Current Tasks"
	headerCompleted = "## Completed Tasks"
	headerDelegated = "## Delegated Tasks (Waiting on Others)"
)

// Task is one checklist entry with its indented metadata.
type Task struct {
	Description string
	Done        bool
	AssignedBy  string // current entries
	AssignedTo  string // delegated entries
	AssignedOn  string // YYYY-MM-DD
	Priority    string
	Status      string
	Due         string
	CompletedOn string
}

// List is one agent's parsed task file.
type List struct {
	Agent     string
	Current   []Task
	Completed []Task
	Delegated []Task
}

// NewList returns an empty list for the agent.
func NewList(agent string) *List {
	return &List{Agent: agent}
}

// Parse decodes the markdown wire format. Unknown lines are ignored;
// metadata keys that are not recognized are dropped.
func Parse(content string) (*List, error) {
	l := &List{}
	var section *[]Task
	var cur *Task

	flush := func() {
		if cur != nil && section != nil {
			*section = append(*section, *cur)
		}
		cur = nil
	}

	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "# ") && !strings.HasPrefix(trimmed, "## "):
			l.Agent = strings.TrimSuffix(strings.TrimPrefix(trimmed, "# "), "'s Tasks")
		case trimmed == headerCurrent:
			flush()
			section = &l.Current
		case trimmed == headerCompleted:
			flush()
			section = &l.Completed
		case strings.HasPrefix(trimmed, "## Delegated"):
			flush()
			section = &l.Delegated
		case strings.HasPrefix(trimmed, "- [ ]"), strings.HasPrefix(trimmed, "- [x]"):
			flush()
			if section == nil {
				return nil, fmt.Errorf("parse tasks: entry before any section: %q", trimmed)
			}
			cur = &Task{
				Done:        strings.HasPrefix(trimmed, "- [x]"),
				Description: strings.TrimSpace(trimmed[5:]),
			}
		case strings.HasPrefix(trimmed, "- ") && cur != nil:
			key, value, ok := strings.Cut(strings.TrimPrefix(trimmed, "- "), ":")
			if !ok {
				continue
			}
			value = strings.TrimSpace(value)
			switch strings.TrimSpace(key) {
			case "Assigned by":
				cur.AssignedBy = value
			case "Assigned to":
				cur.AssignedTo = value
			case "Assigned on":
				cur.AssignedOn = value
			case "Priority":
				cur.Priority = value
			case "Status":
				cur.Status = value
			case "Due":
				cur.Due = value
			case "Completed on":
				cur.CompletedOn = value
			}
		}
	}
	flush()

	return l, nil
}

// Render encodes the list back into the markdown wire format. Parse(Render)
// round-trips.
func (l *List) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s's Tasks\n\n", l.Agent)

	b.WriteString(headerCurrent + "\n\n")
	for _, t := range l.Current {
		writeTask(&b, t, false)
	}
	b.WriteString(headerCompleted + "\n\n")
	for _, t := range l.Completed {
		writeTask(&b, t, false)
	}
	b.WriteString(headerDelegated + "\n\n")
	for _, t := range l.Delegated {
		writeTask(&b, t, true)
	}

	return b.String()
}

func writeTask(b *strings.Builder, t Task, delegated bool) {
	box := "[ ]"
	if t.Done {
		box = "[x]"
	}
	fmt.Fprintf(b, "- %s %s\n", box, t.Description)
	if t.CompletedOn != "" {
		fmt.Fprintf(b, "  - Completed on: %s\n", t.CompletedOn)
	}
	if delegated && t.AssignedTo != "" {
		fmt.Fprintf(b, "  - Assigned to: %s\n", t.AssignedTo)
	}
	if !delegated && t.AssignedBy != "" {
		fmt.Fprintf(b, "  - Assigned by: %s\n", t.AssignedBy)
	}
	if t.AssignedOn != "" {
		fmt.Fprintf(b, "  - Assigned on: %s\n", t.AssignedOn)
	}
	if t.Priority != "" {
		fmt.Fprintf(b, "  - Priority: %s\n", t.Priority)
	}
	if t.Status != "" {
		fmt.Fprintf(b, "  - Status: %s\n", t.Status)
	}
	if t.Due != "" {
		fmt.Fprintf(b, "  - Due: %s\n", t.Due)
	}
	b.WriteString("\n")
}
