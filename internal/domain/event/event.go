// Package event defines the immutable action event that flows from agents to
// the trail archive, the message queue and the live dashboard feed.
package event

import (
	"encoding/json"
	"time"
)

// Type identifies the kind of action event.
type Type string

const (
	TypeGoalSet            Type = "goal_set"
	TypeReason             Type = "reason"
	TypeToolCall           Type = "tool_call"
	TypeGoalComplete       Type = "goal_complete"
	TypeDocument           Type = "document"
	TypeMessage            Type = "message"
	TypeAssignTask         Type = "assign_task"
	TypeAssignBlocked      Type = "task_assignment_blocked"
	TypeReceiveAssignment  Type = "receive_assignment"
	TypeAssignmentBlocked  Type = "assignment_blocked"
	TypeCollectEvidence    Type = "collect_evidence"
	TypeCollectionBlocked  Type = "evidence_collection_blocked"
	TypeExecuteTest        Type = "execute_test"
	TypeExecutionBlocked   Type = "test_execution_blocked"
	TypeApproveArtifact    Type = "approve_artifact"
	TypeRejectArtifact     Type = "reject_artifact"
)

// ActionEvent is a single immutable entry in an agent's action trail.
type ActionEvent struct {
	ID          string          `json:"id"`
	Agent       string          `json:"agent"`
	Type        Type            `json:"type"`
	Description string          `json:"description"`
	Details     json.RawMessage `json:"details,omitempty"`
	Result      string          `json:"result,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// Filter controls which trail entries are returned from the archive.
type Filter struct {
	Agent  string     `json:"agent,omitempty"`
	Type   Type       `json:"type,omitempty"`
	After  *time.Time `json:"after,omitempty"`
	Before *time.Time `json:"before,omitempty"`
}

// Page is a cursor-paginated page of trail entries.
type Page struct {
	Events  []ActionEvent `json:"events"`
	Cursor  string        `json:"cursor"`
	HasMore bool          `json:"has_more"`
}
