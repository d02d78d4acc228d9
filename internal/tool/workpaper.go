package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
)

// WorkpaperTool writes audit workpapers to disk as paired JSON and markdown
// files, keyed by reference number.
type WorkpaperTool struct {
	dir string
	now func() time.Time
}

// NewWorkpaperTool creates the tool writing into dir, using now for the
// created-at timestamp (pass the simulated clock in engagements).
func NewWorkpaperTool(dir string, now func() time.Time) *WorkpaperTool {
	if now == nil {
		now = time.Now
	}
	return &WorkpaperTool{dir: dir, now: now}
}

func (t *WorkpaperTool) Name() string { return "create_workpaper" }

func (t *WorkpaperTool) Description() string {
	return "Create a professional audit workpaper documenting findings, analysis, and conclusions."
}

func (t *WorkpaperTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "reference_number", Type: "string", Description: "Workpaper reference (e.g., WP-IAM-001)", Required: true},
		{Name: "control_domain", Type: "string", Description: "Control domain being tested", Required: true},
		{Name: "control_objective", Type: "string", Description: "Control objective under test", Required: true},
		{Name: "testing_procedures", Type: "array", Description: "Procedures performed", Required: true},
		{Name: "analysis", Type: "string", Description: "Analysis of the evidence", Required: true},
		{Name: "conclusion", Type: "string", Description: "Conclusion reached", Required: true},
		{Name: "created_by", Type: "string", Description: "Agent creating the workpaper", Required: true},
		{Name: "cross_references", Type: "array", Description: "Related workpaper references", Required: false},
	}
}

// Execute validates args, builds the workpaper and saves both renderings.
func (t *WorkpaperTool) Execute(_ context.Context, args map[string]any) (map[string]any, error) {
	if err := ValidateArgs(t, args); err != nil {
		return nil, err
	}

	wp := audit.Workpaper{
		ReferenceNumber:   str(args, "reference_number"),
		ControlDomain:     str(args, "control_domain"),
		ControlObjective:  str(args, "control_objective"),
		TestingProcedures: strList(args, "testing_procedures"),
		Analysis:          str(args, "analysis"),
		Conclusion:        str(args, "conclusion"),
		CreatedBy:         str(args, "created_by"),
		CreatedAt:         t.now(),
		CrossReferences:   strList(args, "cross_references"),
	}
	if wp.ReferenceNumber == "" {
		return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("reference_number must not be empty")}
	}

	jsonPath, mdPath, err := t.save(&wp)
	if err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}

	return map[string]any{
		"status":           "success",
		"reference_number": wp.ReferenceNumber,
		"json_path":        jsonPath,
		"markdown_path":    mdPath,
	}, nil
}

// Load reads a previously saved workpaper back from its JSON rendering.
func (t *WorkpaperTool) Load(reference string) (*audit.Workpaper, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, fileStem(reference)+".json")) //nolint:gosec // G304: path derived from reference
	if err != nil {
		return nil, fmt.Errorf("load workpaper %s: %w", reference, err)
	}
	var wp audit.Workpaper
	if err := json.Unmarshal(data, &wp); err != nil {
		return nil, fmt.Errorf("decode workpaper %s: %w", reference, err)
	}
	return &wp, nil
}

func (t *WorkpaperTool) save(wp *audit.Workpaper) (jsonPath, mdPath string, err error) {
	if err := os.MkdirAll(t.dir, 0o750); err != nil {
		return "", "", fmt.Errorf("create workpaper dir: %w", err)
	}

	stem := fileStem(wp.ReferenceNumber)

	data, err := json.MarshalIndent(wp, "", "  ")
	if err != nil {
		return "", "", fmt.Errorf("marshal workpaper: %w", err)
	}
	jsonPath = filepath.Join(t.dir, stem+".json")
	if err := os.WriteFile(jsonPath, data, 0o600); err != nil {
		return "", "", fmt.Errorf("write %s: %w", jsonPath, err)
	}

	mdPath = filepath.Join(t.dir, stem+".md")
	if err := os.WriteFile(mdPath, []byte(renderMarkdown(wp)), 0o600); err != nil {
		return "", "", fmt.Errorf("write %s: %w", mdPath, err)
	}

	return jsonPath, mdPath, nil
}

func renderMarkdown(wp *audit.Workpaper) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Workpaper %s\n\n", wp.ReferenceNumber)
	fmt.Fprintf(&b, "**Control Domain:** %s\n\n", wp.ControlDomain)
	fmt.Fprintf(&b, "**Control Objective:** %s\n\n", wp.ControlObjective)
	fmt.Fprintf(&b, "**Prepared by:** %s on %s\n\n", wp.CreatedBy, wp.CreatedAt.Format("2006-01-02"))

	b.WriteString("## Testing Procedures\n\n")
	for _, p := range wp.TestingProcedures {
		fmt.Fprintf(&b, "- %s\n", p)
	}

	if len(wp.EvidenceCollected) > 0 {
		b.WriteString("\n## Evidence\n\n")
		for _, ev := range wp.EvidenceCollected {
			fmt.Fprintf(&b, "- %s (%s, collected by %s)\n", ev.ID, ev.Source, ev.CollectedBy)
		}
	}

	fmt.Fprintf(&b, "\n## Analysis\n\n%s\n", wp.Analysis)
	fmt.Fprintf(&b, "\n## Conclusion\n\n%s\n", wp.Conclusion)

	if len(wp.CrossReferences) > 0 {
		b.WriteString("\n## Cross References\n\n")
		for _, ref := range wp.CrossReferences {
			fmt.Fprintf(&b, "- %s\n", ref)
		}
	}
	return b.String()
}

func fileStem(reference string) string {
	return strings.ReplaceAll(reference, " ", "_")
}

// str reads a string argument, tolerating absence.
func str(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

// strList reads an array argument of strings, tolerating absence and mixed
// decoding ([]any from JSON).
func strList(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v == "" {
			return nil
		}
		return []string{v}
	default:
		return nil
	}
}
