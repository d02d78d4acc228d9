package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
)

// EvidenceTool stores evidence records as JSON files and loads them back for
// testing. Records round-trip through their JSON encoding.
type EvidenceTool struct {
	dir string
	now func() time.Time
}

// NewEvidenceTool creates the tool writing into dir.
func NewEvidenceTool(dir string, now func() time.Time) *EvidenceTool {
	if now == nil {
		now = time.Now
	}
	return &EvidenceTool{dir: dir, now: now}
}

func (t *EvidenceTool) Name() string { return "store_evidence" }

func (t *EvidenceTool) Description() string {
	return "Store collected evidence with metadata for later testing and workpaper references."
}

func (t *EvidenceTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "source", Type: "string", Description: "System the evidence came from (e.g., CloudTrail, IAM)", Required: true},
		{Name: "collection_method", Type: "string", Description: "How it was collected: direct or agent_request", Required: true},
		{Name: "collected_by", Type: "string", Description: "Agent that collected the evidence", Required: true},
		{Name: "data", Type: "object", Description: "The evidence payload", Required: true},
		{Name: "control_domain", Type: "string", Description: "Control domain the evidence supports", Required: false},
	}
}

// Execute stores the evidence and returns its generated id and path.
func (t *EvidenceTool) Execute(_ context.Context, args map[string]any) (map[string]any, error) {
	if err := ValidateArgs(t, args); err != nil {
		return nil, err
	}

	data, _ := args["data"].(map[string]any)
	ev := audit.Evidence{
		ID:               "EV-" + uuid.NewString()[:8],
		Source:           str(args, "source"),
		CollectionMethod: str(args, "collection_method"),
		CollectedAt:      t.now(),
		CollectedBy:      str(args, "collected_by"),
		Data:             data,
		ControlDomain:    str(args, "control_domain"),
	}
	ev.StoragePath = filepath.Join(t.dir, ev.ID+".json")

	if err := t.save(&ev); err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}

	return map[string]any{
		"status":       "success",
		"evidence_id":  ev.ID,
		"storage_path": ev.StoragePath,
		"source":       ev.Source,
	}, nil
}

// Load reads a stored evidence record back by id.
func (t *EvidenceTool) Load(id string) (*audit.Evidence, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, id+".json")) //nolint:gosec // G304: path derived from id
	if err != nil {
		return nil, fmt.Errorf("load evidence %s: %w", id, err)
	}
	var ev audit.Evidence
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode evidence %s: %w", id, err)
	}
	return &ev, nil
}

func (t *EvidenceTool) save(ev *audit.Evidence) error {
	if err := os.MkdirAll(t.dir, 0o750); err != nil {
		return fmt.Errorf("create evidence dir: %w", err)
	}
	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}
	if err := os.WriteFile(ev.StoragePath, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", ev.StoragePath, err)
	}
	return nil
}
