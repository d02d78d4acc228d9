package gate

import (
	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
)

// Blocking reasons surfaced to agents and the dashboard.
const (
	ReasonPlanNotApproved = "Audit plan not approved"
	ReasonNoEvidence      = "No evidence collected"
	ReasonNoAssignment    = "No task assignment received"
)

// SuperviseStaff guards task delegation: a manager or senior may only
// assign work once the audit plan is approved.
func SuperviseStaff(planApproved bool) *engine.Block {
	if planApproved {
		return nil
	}
	return &engine.Block{Action: event.TypeAssignBlocked, Reason: ReasonPlanNotApproved}
}

// ReceiveAssignment guards the staff side of delegation, symmetric with
// SuperviseStaff.
func ReceiveAssignment(planApproved bool) *engine.Block {
	if planApproved {
		return nil
	}
	return &engine.Block{Action: event.TypeAssignmentBlocked, Reason: ReasonPlanNotApproved}
}

// CollectEvidence guards evidence gathering on having received an
// assignment. The guard does not verify the assignment covers the evidence
// being collected; a completed assignment still satisfies it.
func CollectEvidence(hasAssignment bool) *engine.Block {
	if hasAssignment {
		return nil
	}
	return &engine.Block{Action: event.TypeCollectionBlocked, Reason: ReasonNoAssignment}
}

// ExecuteTest guards control testing on the approved plan and on at least
// one collected evidence record. The plan check wins when both fail.
func ExecuteTest(planApproved, hasEvidence bool) *engine.Block {
	if !planApproved {
		return &engine.Block{Action: event.TypeExecutionBlocked, Reason: ReasonPlanNotApproved}
	}
	if !hasEvidence {
		return &engine.Block{Action: event.TypeExecutionBlocked, Reason: ReasonNoEvidence}
	}
	return nil
}
