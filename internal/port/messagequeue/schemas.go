package messagequeue

import "time"

// ActionPayload is the schema for audit.actions messages: one action event
// as recorded by an agent.
type ActionPayload struct {
	ID          string    `json:"id"`
	Agent       string    `json:"agent"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ApprovalPayload is the schema for audit.approvals messages.
type ApprovalPayload struct {
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Approver  string    `json:"approver"`
	Comments  []string  `json:"comments,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// LedgerPayload is the schema for audit.ledger messages.
type LedgerPayload struct {
	Action      string `json:"action"` // "create", "assign", "complete"
	Agent       string `json:"agent"`
	Assignee    string `json:"assignee,omitempty"`
	Description string `json:"description"`
}
