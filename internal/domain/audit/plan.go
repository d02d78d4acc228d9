package audit

import "time"

// TestProcedure is one planned test against a control objective.
type TestProcedure struct {
	ID               string   `json:"procedure_id"`
	ControlDomain    string   `json:"control_domain"`
	ControlObjective string   `json:"control_objective"`
	Description      string   `json:"procedure_description"`
	EvidenceRequired []string `json:"evidence_required"`
	AssignedTo       string   `json:"assigned_to"`
	EstimatedHours   float64  `json:"estimated_hours"`
}

// BudgetAllocation distributes the engagement's hours across domains and
// phases.
type BudgetAllocation struct {
	TotalHours float64            `json:"total_hours"`
	ByDomain   map[string]float64 `json:"by_domain"`
	ByPhase    map[string]float64 `json:"by_phase"`
}

// PlanPhase is a named stretch of the execution schedule.
type PlanPhase struct {
	Name       string    `json:"phase_name"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	Activities []string  `json:"activities,omitempty"`
}

// Milestone marks a target date within the schedule.
type Milestone struct {
	Name        string    `json:"milestone_name"`
	TargetDate  time.Time `json:"target_date"`
	Description string    `json:"description"`
	Completed   bool      `json:"completed"`
}

// Schedule is the engagement timeline.
type Schedule struct {
	StartDate  time.Time   `json:"start_date"`
	EndDate    time.Time   `json:"end_date"`
	Phases     []PlanPhase `json:"phases"`
	Milestones []Milestone `json:"milestones,omitempty"`
}

// Plan is the audit plan, the second artifact requiring manager approval.
// Downstream task assignment and test execution are gated on Approved.
type Plan struct {
	Timeline           Schedule           `json:"timeline"`
	Budget             BudgetAllocation   `json:"budget"`
	Procedures         []TestProcedure    `json:"procedures"`
	ResourceAllocation map[string]float64 `json:"resource_allocation"`

	Approved       bool       `json:"approved"`
	ApprovedBy     string     `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	ReviewComments string     `json:"review_comments,omitempty"`
}
