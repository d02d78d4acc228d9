// Package audit defines the value types an engagement produces: risks,
// plans, evidence, test results, workpapers and findings.
package audit

import "time"

// Risk is a single identified risk within a control domain.
type Risk struct {
	ID                 string   `json:"risk_id"`
	ControlDomain      string   `json:"control_domain"`
	Description        string   `json:"description"`
	Impact             string   `json:"impact"`     // "high", "medium", "low"
	Likelihood         string   `json:"likelihood"` // "high", "medium", "low"
	RiskLevel          string   `json:"risk_level"`
	MitigationControls []string `json:"mitigation_controls,omitempty"`
}

// ControlDomain is an area of the environment under audit, ordered by
// priority (lower number = higher priority).
type ControlDomain struct {
	Name              string   `json:"domain_name"`
	Description       string   `json:"description"`
	Priority          int      `json:"priority"`
	RiskLevel         string   `json:"risk_level"`
	ControlObjectives []string `json:"control_objectives,omitempty"`
}

// RiskAssessment is the first artifact requiring manager approval.
type RiskAssessment struct {
	InherentRisks      []Risk            `json:"inherent_risks"`
	ResidualRisks      []Risk            `json:"residual_risks"`
	PrioritizedDomains []ControlDomain   `json:"prioritized_domains"`
	RiskMatrix         map[string]string `json:"risk_matrix"` // domain -> risk level

	Approved       bool       `json:"approved"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ReviewComments string     `json:"review_comments,omitempty"`
}
