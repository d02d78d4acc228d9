package audit

import "time"

// Finding is an exception identified during testing.
type Finding struct {
	ID             string `json:"finding_id"`
	ControlDomain  string `json:"control_domain"`
	Severity       string `json:"severity"` // "high", "medium", "low"
	Description    string `json:"description"`
	Recommendation string `json:"recommendation,omitempty"`
	IdentifiedBy   string `json:"identified_by"`
}

// Workpaper documents the testing performed for one control objective.
// Reference numbers follow the "WP-<DOMAIN>-<SEQ>" convention.
type Workpaper struct {
	ReferenceNumber   string     `json:"reference_number"`
	ControlDomain     string     `json:"control_domain"`
	ControlObjective  string     `json:"control_objective"`
	TestingProcedures []string   `json:"testing_procedures"`
	EvidenceCollected []Evidence `json:"evidence_collected"`
	Analysis          string     `json:"analysis"`
	Conclusion        string     `json:"conclusion"`
	CreatedBy         string     `json:"created_by"`
	CreatedAt         time.Time  `json:"created_at"`
	CrossReferences   []string   `json:"cross_references,omitempty"`
}

// TestResult is the outcome of executing a test procedure. Blocked results
// carry the reason the approval gate refused the execution.
type TestResult struct {
	ProcedureID       string    `json:"procedure_id"`
	ControlDomain     string    `json:"control_domain,omitempty"`
	ControlObjective  string    `json:"control_objective,omitempty"`
	ExecutedBy        string    `json:"executed_by"`
	ExecutedAt        time.Time `json:"executed_at"`
	EvidenceID        string    `json:"evidence_id,omitempty"`
	Passed            bool      `json:"passed"`
	Blocked           bool      `json:"blocked"`
	Reason            string    `json:"reason,omitempty"`
	Findings          []string  `json:"findings,omitempty"`
	AffectedResources []string  `json:"affected_resources,omitempty"`
}
