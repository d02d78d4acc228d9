package ledger

import (
	"reflect"
	"strings"
	"testing"
)

const sampleFile = `# Esther's Tasks

## Current Tasks

- [ ] Review IAM password policies
  - Assigned by: Maurice
  - Assigned on: 2026-08-10
  - Priority: high
  - Status: Not Started
  - Due: 2026-08-17

## Completed Tasks

- [x] Gather CloudTrail configuration
  - Completed on: 2026-08-09
  - Assigned by: Self
  - Assigned on: 2026-08-08
  - Priority: medium
  - Status: Not Started

## Delegated Tasks (Waiting on Others)

- [ ] Collect S3 bucket policies
  - Assigned to: Hillel
  - Assigned on: 2026-08-10
  - Priority: medium
  - Status: Not Started

`

func TestParse(t *testing.T) {
	l, err := Parse(sampleFile)
	if err != nil {
		t.Fatal(err)
	}

	if l.Agent != "Esther" {
		t.Errorf("agent = %q, want Esther", l.Agent)
	}
	if len(l.Current) != 1 || len(l.Completed) != 1 || len(l.Delegated) != 1 {
		t.Fatalf("section sizes = %d/%d/%d, want 1/1/1",
			len(l.Current), len(l.Completed), len(l.Delegated))
	}

	cur := l.Current[0]
	if cur.Description != "Review IAM password policies" {
		t.Errorf("description = %q", cur.Description)
	}
	if cur.AssignedBy != "Maurice" || cur.Priority != "high" || cur.Due != "2026-08-17" {
		t.Errorf("metadata = %+v", cur)
	}
	if cur.Done {
		t.Error("current task should not be done")
	}

	done := l.Completed[0]
	if !done.Done || done.CompletedOn != "2026-08-09" {
		t.Errorf("completed = %+v", done)
	}

	del := l.Delegated[0]
	if del.AssignedTo != "Hillel" {
		t.Errorf("delegated assignee = %q", del.AssignedTo)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	l, err := Parse(sampleFile)
	if err != nil {
		t.Fatal(err)
	}

	again, err := Parse(l.Render())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(l, again) {
		t.Errorf("round trip differs:\n%#v\n%#v", l, again)
	}
}

func TestRenderEmptyListHasAllSections(t *testing.T) {
	out := NewList("Chuck").Render()
	for _, header := range []string{headerCurrent, headerCompleted, headerDelegated} {
		if !strings.Contains(out, header) {
			t.Errorf("missing section header %q", header)
		}
	}
	if !strings.HasPrefix(out, "# Chuck's Tasks") {
		t.Errorf("missing title line: %q", out)
	}
}

func TestParseEntryOutsideSection(t *testing.T) {
	_, err := Parse("# X's Tasks\n\n- [ ] floating task\n")
	if err == nil {
		t.Fatal("expected error for entry before any section")
	}
}
