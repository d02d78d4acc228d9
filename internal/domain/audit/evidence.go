package audit

import "time"

// Collection methods for evidence records.
const (
	CollectionDirect       = "direct"
	CollectionAgentRequest = "agent_request"
)

// Evidence is a stored record collected from a source system. Data carries
// the raw payload; StoragePath points at the on-disk JSON copy.
type Evidence struct {
	ID               string         `json:"evidence_id"`
	Source           string         `json:"source"`
	CollectionMethod string         `json:"collection_method"`
	CollectedAt      time.Time      `json:"collected_at"`
	CollectedBy      string         `json:"collected_by"`
	Data             map[string]any `json:"data"`
	StoragePath      string         `json:"storage_path,omitempty"`
	ControlDomain    string         `json:"control_domain,omitempty"`
}

// EvidenceRequest asks another agent to collect evidence on the requester's
// behalf.
type EvidenceRequest struct {
	RequestedBy   string    `json:"requested_by"`
	RequestedFrom string    `json:"requested_from"`
	Source        string    `json:"source"`
	ControlDomain string    `json:"control_domain,omitempty"`
	RequestedAt   time.Time `json:"requested_at"`
}
