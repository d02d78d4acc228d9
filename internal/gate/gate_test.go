package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newGate() *Gate {
	return New(discard(), func() time.Time {
		return time.Date(2026, 8, 15, 11, 0, 0, 0, time.UTC)
	})
}

func TestApproveRequiresManagerRole(t *testing.T) {
	g := newGate()

	err := g.Approve(SubjectAuditPlan, "Esther", "Senior Auditor")
	if !errors.Is(err, ErrNotManager) {
		t.Fatalf("err = %v, want ErrNotManager", err)
	}
	if err := g.Approve(SubjectAuditPlan, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}
	if !g.PlanApproved() {
		t.Error("plan should be approved")
	}
}

func TestApprovedIsTerminal(t *testing.T) {
	g := newGate()
	if err := g.Approve(SubjectRiskAssessment, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}

	if err := g.Approve(SubjectRiskAssessment, "Maurice", ManagerRole); !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("re-approve err = %v", err)
	}
	if err := g.Reject(SubjectRiskAssessment, "Maurice", ManagerRole, "changed my mind"); !errors.Is(err, ErrAlreadyApproved) {
		t.Errorf("reject-after-approve err = %v", err)
	}
	if !g.RiskAssessmentApproved() {
		t.Error("approval must survive the rejected transition attempt")
	}
}

func TestRejectThenApprove(t *testing.T) {
	g := newGate()
	if err := g.Reject(SubjectAuditPlan, "Maurice", ManagerRole, "budget section is thin"); err != nil {
		t.Fatal(err)
	}
	if g.PlanApproved() {
		t.Error("rejected plan must not count as approved")
	}

	if err := g.Approve(SubjectAuditPlan, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}
	if !g.PlanApproved() {
		t.Error("rejection is not terminal")
	}

	approvals := g.Approvals()
	var plan Approval
	for _, a := range approvals {
		if a.Subject == SubjectAuditPlan {
			plan = a
		}
	}
	if len(plan.Comments) != 1 || plan.Comments[0] != "budget section is thin" {
		t.Errorf("comments = %v", plan.Comments)
	}
}

func TestGuardsReturnDistinctReasons(t *testing.T) {
	if b := SuperviseStaff(false); b == nil ||
		b.Action != event.TypeAssignBlocked || b.Reason != ReasonPlanNotApproved {
		t.Errorf("SuperviseStaff = %+v", b)
	}
	if b := SuperviseStaff(true); b != nil {
		t.Errorf("approved plan should unblock delegation, got %+v", b)
	}

	if b := ReceiveAssignment(false); b == nil || b.Action != event.TypeAssignmentBlocked {
		t.Errorf("ReceiveAssignment = %+v", b)
	}

	if b := CollectEvidence(false); b == nil ||
		b.Action != event.TypeCollectionBlocked || b.Reason != ReasonNoAssignment {
		t.Errorf("CollectEvidence = %+v", b)
	}

	if b := ExecuteTest(false, true); b == nil || b.Reason != ReasonPlanNotApproved {
		t.Errorf("ExecuteTest plan gate = %+v", b)
	}
	if b := ExecuteTest(true, false); b == nil || b.Reason != ReasonNoEvidence {
		t.Errorf("ExecuteTest evidence gate = %+v", b)
	}
	if b := ExecuteTest(true, true); b != nil {
		t.Errorf("ExecuteTest = %+v, want nil", b)
	}
}

func TestCheckToolGatesDelegationAndEvidence(t *testing.T) {
	g := newGate()

	if b := g.CheckTool("Esther", "manage_tasks", map[string]any{"action": "assign_task"}); b == nil {
		t.Error("delegation before plan approval must block")
	}
	if b := g.CheckTool("Esther", "manage_tasks", map[string]any{"action": "read_my_tasks"}); b != nil {
		t.Errorf("reading tasks must never block, got %+v", b)
	}
	if b := g.CheckTool("Hillel", "store_evidence", nil); b == nil {
		t.Error("evidence collection without assignment must block")
	}
	if b := g.CheckTool("Esther", "create_workpaper", nil); b != nil {
		t.Errorf("ungated tool blocked: %+v", b)
	}

	if err := g.Approve(SubjectAuditPlan, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}
	if b := g.CheckTool("Esther", "manage_tasks", map[string]any{"action": "assign_task"}); b != nil {
		t.Errorf("delegation after approval blocked: %+v", b)
	}
}

func TestCheckToolGatesTestExecution(t *testing.T) {
	g := newGate()
	ctx := context.Background()

	b := g.CheckTool("Esther", "execute_test", map[string]any{"procedure_id": "TP-IAM-001"})
	if b == nil {
		t.Fatal("test execution before plan approval must block")
	}
	if b.Reason != ReasonPlanNotApproved {
		t.Errorf("reason = %q, want %q", b.Reason, ReasonPlanNotApproved)
	}

	if err := g.Approve(SubjectAuditPlan, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}
	b = g.CheckTool("Esther", "execute_test", nil)
	if b == nil {
		t.Fatal("test execution without evidence must block")
	}
	if b.Reason != ReasonNoEvidence {
		t.Errorf("reason = %q, want %q", b.Reason, ReasonNoEvidence)
	}

	g.Record(ctx, event.ActionEvent{Type: event.TypeToolCall, Description: "store_evidence", Result: "success"})
	if b := g.CheckTool("Esther", "execute_test", nil); b != nil {
		t.Errorf("test execution with approved plan and evidence blocked: %+v", b)
	}
}

func TestCheckToolGatesAcceptingAssignments(t *testing.T) {
	g := newGate()

	b := g.CheckTool("Hillel", "manage_tasks", map[string]any{"action": "accept_task"})
	if b == nil {
		t.Fatal("accepting an assignment before plan approval must block")
	}
	if b.Action != event.TypeAssignmentBlocked {
		t.Errorf("action = %q, want %q", b.Action, event.TypeAssignmentBlocked)
	}

	if err := g.Approve(SubjectAuditPlan, "Maurice", ManagerRole); err != nil {
		t.Fatal(err)
	}
	if b := g.CheckTool("Hillel", "manage_tasks", map[string]any{"action": "accept_task"}); b != nil {
		t.Errorf("accepting after approval blocked: %+v", b)
	}
}

func TestGateObservesAssignmentsAndEvidence(t *testing.T) {
	g := newGate()
	ctx := context.Background()

	details, _ := json.Marshal(map[string]any{"action": "assign_task", "assignee": "Hillel"})
	g.Record(ctx, event.ActionEvent{
		Type: event.TypeToolCall, Description: "manage_tasks", Details: details, Result: "success",
	})
	if !g.HasAssignment("hillel") {
		t.Error("assignment not observed")
	}
	if b := g.CheckTool("Hillel", "store_evidence", nil); b != nil {
		t.Errorf("assigned agent blocked from evidence: %+v", b)
	}

	g.Record(ctx, event.ActionEvent{Type: event.TypeToolCall, Description: "store_evidence", Result: "success"})
	if g.EvidenceCount() != 1 {
		t.Errorf("evidence count = %d", g.EvidenceCount())
	}

	// Failed calls must not count.
	g.Record(ctx, event.ActionEvent{Type: event.TypeToolCall, Description: "store_evidence", Result: "error"})
	if g.EvidenceCount() != 1 {
		t.Errorf("failed call counted, evidence = %d", g.EvidenceCount())
	}
}

func TestReviewerApprove(t *testing.T) {
	g := newGate()
	var out bytes.Buffer
	r := NewReviewer(strings.NewReader("yes\n"), &out, g, "Maurice", discard())

	approved, err := r.Review(SubjectAuditPlan, "Plan covers IAM, logging, change management.")
	if err != nil {
		t.Fatal(err)
	}
	if !approved || !g.PlanApproved() {
		t.Error("expected approval")
	}
}

func TestReviewerRejectCollectsFeedback(t *testing.T) {
	g := newGate()
	var out bytes.Buffer
	r := NewReviewer(strings.NewReader("no\nbudget is unrealistic\n"), &out, g, "Maurice", discard())

	approved, err := r.Review(SubjectAuditPlan, "Plan summary")
	if err != nil {
		t.Fatal(err)
	}
	if approved || g.PlanApproved() {
		t.Error("expected rejection")
	}

	for _, a := range g.Approvals() {
		if a.Subject == SubjectAuditPlan {
			if len(a.Comments) != 1 || a.Comments[0] != "budget is unrealistic" {
				t.Errorf("feedback = %v", a.Comments)
			}
		}
	}
}

func TestReviewerCommentThenInvalidThenApprove(t *testing.T) {
	g := newGate()
	var out bytes.Buffer
	input := "comments\ntighten the sampling approach\nmaybe\napprove\n"
	r := NewReviewer(strings.NewReader(input), &out, g, "Maurice", discard())

	approved, err := r.Review(SubjectRiskAssessment, "Risk summary")
	if err != nil {
		t.Fatal(err)
	}
	if !approved {
		t.Error("expected eventual approval")
	}
	if !strings.Contains(out.String(), "Invalid response") {
		t.Error("invalid answer should re-prompt")
	}

	for _, a := range g.Approvals() {
		if a.Subject == SubjectRiskAssessment {
			if len(a.Comments) != 1 || a.Comments[0] != "tighten the sampling approach" {
				t.Errorf("comments = %v", a.Comments)
			}
		}
	}
}

func TestReviewerEOF(t *testing.T) {
	g := newGate()
	r := NewReviewer(strings.NewReader(""), io.Discard, g, "Maurice", discard())

	if _, err := r.Review(SubjectAuditPlan, "s"); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("err = %v, want ErrUnexpectedEOF", err)
	}
}

func TestAutoApprove(t *testing.T) {
	g := newGate()
	if err := AutoApprove(g, SubjectAuditPlan, "Maurice", discard()); err != nil {
		t.Fatal(err)
	}
	if !g.PlanApproved() {
		t.Error("auto-approve should approve")
	}
}
