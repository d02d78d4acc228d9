// Package team defines the audit team: persona definitions, the factory
// that turns a persona into a running agent, and the group runner that
// drives agents concurrently.
package team

import (
	"fmt"
	"sort"
	"strings"
)

// Persona describes one team member before it becomes an agent. Personas
// are flat values; role behavior comes from the prompt and tool bundle,
// not from type hierarchies.
type Persona struct {
	ID             string
	Name           string
	Role           string
	PromptTemplate string
	Model          string
	ToolNames      []string
	Knowledge      []string
}

// Role names used across the gate and dashboard.
const (
	RoleManager = "Audit Manager"
	RoleSenior  = "Senior IT Auditor"
	RoleStaff   = "Staff IT Auditor"
)

const managerPrompt = `You are %s, the Audit Manager leading an internal IT audit engagement.
You own the audit plan and the risk assessment, review your seniors' work,
and approve or reject fieldwork artifacts. You delegate testing to the
senior auditors and never collect evidence yourself. Hold the team to the
plan and the budget.`

const seniorPrompt = `You are %s, a Senior IT Auditor on an internal audit engagement.
You design test procedures for your assigned control domains, delegate
evidence collection to staff auditors, execute tests against the evidence
they return, and document results in workpapers. You may not start
fieldwork until the audit plan is approved.`

const staffPrompt = `You are %s, a Staff IT Auditor on an internal audit engagement.
You collect evidence requested by your senior, store it with full
provenance, and report back when a task is done. You work only from
received assignments.`

// Builtin returns the standard seven-member engagement team.
func Builtin() []Persona {
	return []Persona{
		{
			ID: "maurice", Name: "Maurice", Role: RoleManager,
			PromptTemplate: fmt.Sprintf(managerPrompt, "Maurice"),
			ToolNames:      []string{"manage_tasks", "create_workpaper"},
		},
		{
			ID: "esther", Name: "Esther", Role: RoleSenior,
			PromptTemplate: fmt.Sprintf(seniorPrompt, "Esther"),
			ToolNames:      []string{"manage_tasks", "create_workpaper", "store_evidence", "execute_test"},
		},
		{
			ID: "chuck", Name: "Chuck", Role: RoleSenior,
			PromptTemplate: fmt.Sprintf(seniorPrompt, "Chuck"),
			ToolNames:      []string{"manage_tasks", "create_workpaper", "store_evidence", "execute_test"},
		},
		{
			ID: "victor", Name: "Victor", Role: RoleSenior,
			PromptTemplate: fmt.Sprintf(seniorPrompt, "Victor"),
			ToolNames:      []string{"manage_tasks", "create_workpaper", "store_evidence", "execute_test"},
		},
		{
			ID: "hillel", Name: "Hillel", Role: RoleStaff,
			PromptTemplate: fmt.Sprintf(staffPrompt, "Hillel"),
			ToolNames:      []string{"manage_tasks", "store_evidence"},
		},
		{
			ID: "neil", Name: "Neil", Role: RoleStaff,
			PromptTemplate: fmt.Sprintf(staffPrompt, "Neil"),
			ToolNames:      []string{"manage_tasks", "store_evidence"},
		},
		{
			ID: "juman", Name: "Juman", Role: RoleStaff,
			PromptTemplate: fmt.Sprintf(staffPrompt, "Juman"),
			ToolNames:      []string{"manage_tasks", "store_evidence"},
		},
	}
}

// Registry holds personas keyed by id.
type Registry struct {
	personas map[string]Persona
}

// NewRegistry builds a registry from the given personas. Duplicate ids are
// an error.
func NewRegistry(personas ...Persona) (*Registry, error) {
	r := &Registry{personas: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		id := strings.ToLower(p.ID)
		if _, exists := r.personas[id]; exists {
			return nil, fmt.Errorf("duplicate persona id %q", p.ID)
		}
		r.personas[id] = p
	}
	return r, nil
}

// Get looks a persona up by id, case-insensitive.
func (r *Registry) Get(id string) (Persona, bool) {
	p, ok := r.personas[strings.ToLower(id)]
	return p, ok
}

// IDs returns all persona ids sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.personas))
	for id := range r.personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
