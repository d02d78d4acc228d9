// Package gate enforces the engagement's approval workflow: fieldwork
// artifacts need the manager's sign-off before downstream work may start,
// and guards block premature actions with typed results instead of errors.
package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
)

// Review subjects tracked by the gate.
const (
	SubjectRiskAssessment = "risk_assessment"
	SubjectAuditPlan      = "audit_plan"
)

// Status of a reviewed artifact. Approved is terminal.
type Status string

const (
	StatusUnreviewed Status = "unreviewed"
	StatusApproved   Status = "approved"
	StatusRejected   Status = "rejected"
)

// Approval records one review outcome.
type Approval struct {
	Subject   string    `json:"subject"`
	Status    Status    `json:"status"`
	Approver  string    `json:"approver"`
	Comments  []string  `json:"comments,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

var (
	ErrNotManager      = errors.New("only the audit manager may review artifacts")
	ErrAlreadyApproved = errors.New("artifact already approved")
	ErrUnknownSubject  = errors.New("unknown review subject")
)

// ManagerRole is the only role allowed to transition approvals.
const ManagerRole = "Audit Manager"

// Gate tracks approval state plus the fieldwork facts the guards need:
// which agents hold an assignment and how much evidence has been stored.
// It implements both engine.Guard (pre-tool checks) and engine.ActionSink
// (observing tool outcomes), so wiring it into an agent is two options.
type Gate struct {
	now func() time.Time
	log *slog.Logger

	mu          sync.Mutex
	approvals   map[string]*Approval
	assignments map[string]bool
	evidence    int
}

// New builds an unreviewed gate. now may be nil for wall-clock time.
func New(log *slog.Logger, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{
		now: now,
		log: log,
		approvals: map[string]*Approval{
			SubjectRiskAssessment: {Subject: SubjectRiskAssessment, Status: StatusUnreviewed},
			SubjectAuditPlan:      {Subject: SubjectAuditPlan, Status: StatusUnreviewed},
		},
		assignments: make(map[string]bool),
	}
}

// Approve marks subject approved. Only the manager role may approve, and a
// second approval of the same subject is an error.
func (g *Gate) Approve(subject, approver, role string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, err := g.lookup(subject, role)
	if err != nil {
		return err
	}
	a.Status = StatusApproved
	a.Approver = approver
	a.Timestamp = g.now()
	g.log.Info("artifact approved", "subject", subject, "approver", approver)
	return nil
}

// Reject marks subject rejected with feedback. Approved is terminal, so
// rejecting an already approved artifact is an error.
func (g *Gate) Reject(subject, approver, role, feedback string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, err := g.lookup(subject, role)
	if err != nil {
		return err
	}
	a.Status = StatusRejected
	a.Approver = approver
	a.Timestamp = g.now()
	if feedback != "" {
		a.Comments = append(a.Comments, feedback)
	}
	g.log.Info("artifact rejected", "subject", subject, "approver", approver)
	return nil
}

// Comment attaches a note without changing status.
func (g *Gate) Comment(subject, note string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	a, ok := g.approvals[subject]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}
	a.Comments = append(a.Comments, note)
	return nil
}

func (g *Gate) lookup(subject, role string) (*Approval, error) {
	a, ok := g.approvals[subject]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSubject, subject)
	}
	if role != ManagerRole {
		return nil, fmt.Errorf("%w: role %q", ErrNotManager, role)
	}
	if a.Status == StatusApproved {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyApproved, subject)
	}
	return a, nil
}

// PlanApproved reports whether the audit plan has been signed off.
func (g *Gate) PlanApproved() bool { return g.status(SubjectAuditPlan) == StatusApproved }

// RiskAssessmentApproved reports whether the risk assessment has been
// signed off.
func (g *Gate) RiskAssessmentApproved() bool {
	return g.status(SubjectRiskAssessment) == StatusApproved
}

func (g *Gate) status(subject string) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	if a, ok := g.approvals[subject]; ok {
		return a.Status
	}
	return StatusUnreviewed
}

// Approvals returns a snapshot of all review records.
func (g *Gate) Approvals() []Approval {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Approval, 0, len(g.approvals))
	for _, subject := range []string{SubjectRiskAssessment, SubjectAuditPlan} {
		a := g.approvals[subject]
		cp := *a
		cp.Comments = append([]string(nil), a.Comments...)
		out = append(out, cp)
	}
	return out
}

// HasAssignment reports whether agent has received a task assignment.
func (g *Gate) HasAssignment(agent string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.assignments[strings.ToLower(agent)]
}

// EvidenceCount reports how many evidence records the team has stored.
func (g *Gate) EvidenceCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evidence
}

// CheckTool implements engine.Guard: delegating or accepting work requires
// the approved plan, evidence collection requires an assignment, and test
// execution requires both the approved plan and collected evidence.
func (g *Gate) CheckTool(agent, toolName string, args map[string]any) *engine.Block {
	switch toolName {
	case "manage_tasks":
		switch action, _ := args["action"].(string); action {
		case "assign_task":
			return SuperviseStaff(g.PlanApproved())
		case "accept_task":
			return ReceiveAssignment(g.PlanApproved())
		default:
			return nil
		}
	case "store_evidence":
		return CollectEvidence(g.HasAssignment(agent))
	case "execute_test":
		return ExecuteTest(g.PlanApproved(), g.EvidenceCount() > 0)
	default:
		return nil
	}
}

// Record implements engine.ActionSink: the gate observes successful tool
// calls to learn who holds assignments and how much evidence exists.
func (g *Gate) Record(_ context.Context, evt event.ActionEvent) {
	g.record(evt)
}

func (g *Gate) record(evt event.ActionEvent) {
	if evt.Type != event.TypeToolCall || evt.Result != "success" {
		return
	}
	switch evt.Description {
	case "store_evidence":
		g.mu.Lock()
		g.evidence++
		g.mu.Unlock()
	case "manage_tasks":
		var args struct {
			Action   string `json:"action"`
			Assignee string `json:"assignee"`
		}
		if err := json.Unmarshal(evt.Details, &args); err != nil {
			return
		}
		if args.Action == "assign_task" && args.Assignee != "" {
			g.mu.Lock()
			g.assignments[strings.ToLower(args.Assignee)] = true
			g.mu.Unlock()
		}
	}
}
