package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
)

// TestTool executes a test procedure against a stored evidence record and
// persists the result as JSON, keyed by procedure id. The checks mirror the
// engagement's control objectives; objectives without an automated check
// pass on the presence of evidence alone.
type TestTool struct {
	evidence *EvidenceTool
	dir      string
	now      func() time.Time
}

// NewTestTool creates the tool reading evidence through ev and writing
// results into dir.
func NewTestTool(ev *EvidenceTool, dir string, now func() time.Time) *TestTool {
	if now == nil {
		now = time.Now
	}
	return &TestTool{evidence: ev, dir: dir, now: now}
}

func (t *TestTool) Name() string { return "execute_test" }

func (t *TestTool) Description() string {
	return "Execute a test procedure against collected evidence and record the pass/fail result."
}

func (t *TestTool) Parameters() []Parameter {
	return []Parameter{
		{Name: "procedure_id", Type: "string", Description: "Test procedure identifier (e.g., TP-IAM-001)", Required: true},
		{Name: "control_domain", Type: "string", Description: "Control domain under test", Required: true},
		{Name: "control_objective", Type: "string", Description: "Control objective the procedure verifies", Required: true},
		{Name: "evidence_id", Type: "string", Description: "Stored evidence record to test against", Required: true},
		{Name: "executed_by", Type: "string", Description: "Agent executing the test", Required: true},
	}
}

// Execute loads the evidence, runs the objective's check and saves the
// result. A missing evidence record is an execution error, not a failed
// test.
func (t *TestTool) Execute(_ context.Context, args map[string]any) (map[string]any, error) {
	if err := ValidateArgs(t, args); err != nil {
		return nil, err
	}

	ev, err := t.evidence.Load(str(args, "evidence_id"))
	if err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}

	result := audit.TestResult{
		ProcedureID:      str(args, "procedure_id"),
		ControlDomain:    str(args, "control_domain"),
		ControlObjective: str(args, "control_objective"),
		ExecutedBy:       str(args, "executed_by"),
		ExecutedAt:       t.now(),
		EvidenceID:       ev.ID,
	}
	if result.ProcedureID == "" {
		return nil, &ExecutionError{Tool: t.Name(), Err: fmt.Errorf("procedure_id must not be empty")}
	}

	if len(ev.Data) == 0 {
		result.Findings = []string{"No evidence available for testing"}
	} else {
		result.Passed, result.Findings, result.AffectedResources =
			checkObjective(result.ControlObjective, ev.Data)
	}

	if err := t.save(&result); err != nil {
		return nil, &ExecutionError{Tool: t.Name(), Err: err}
	}

	return map[string]any{
		"status":             "success",
		"procedure_id":       result.ProcedureID,
		"passed":             result.Passed,
		"findings":           result.Findings,
		"affected_resources": result.AffectedResources,
	}, nil
}

// Load reads a saved result back by procedure id.
func (t *TestTool) Load(procedureID string) (*audit.TestResult, error) {
	data, err := os.ReadFile(filepath.Join(t.dir, fileStem(procedureID)+".json")) //nolint:gosec // G304: path derived from id
	if err != nil {
		return nil, fmt.Errorf("load test result %s: %w", procedureID, err)
	}
	var result audit.TestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode test result %s: %w", procedureID, err)
	}
	return &result, nil
}

func (t *TestTool) save(result *audit.TestResult) error {
	if err := os.MkdirAll(t.dir, 0o750); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal test result: %w", err)
	}
	path := filepath.Join(t.dir, fileStem(result.ProcedureID)+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// checkObjective dispatches on keywords in the control objective, the same
// way the engagement's test procedures are phrased.
func checkObjective(objective string, data map[string]any) (passed bool, findings, affected []string) {
	lower := strings.ToLower(objective)
	switch {
	case strings.Contains(objective, "MFA"):
		return checkMFA(data)
	case strings.Contains(lower, "least privilege"):
		return checkLeastPrivilege(data)
	case strings.Contains(lower, "encryption"):
		return checkEncryption(data)
	case strings.Contains(lower, "security group") || strings.Contains(lower, "firewall"):
		return checkSecurityGroups(data)
	case strings.Contains(objective, "CloudTrail") || strings.Contains(lower, "audit log"):
		return checkLogging(data)
	default:
		return true, []string{"Evidence collected and reviewed"}, nil
	}
}

func checkMFA(data map[string]any) (bool, []string, []string) {
	status, _ := data["mfa_status"].(map[string]any)
	var without []string
	for user, enabled := range status {
		if on, ok := enabled.(bool); !ok || !on {
			without = append(without, user)
		}
	}
	sort.Strings(without)
	if len(without) > 0 {
		return false, []string{fmt.Sprintf("%d users without MFA enabled", len(without))}, without
	}
	return true, []string{"All users have MFA enabled"}, nil
}

func checkLeastPrivilege(data map[string]any) (bool, []string, []string) {
	var permissive []string
	for _, item := range anyList(data, "users") {
		user, _ := item.(map[string]any)
		name, _ := user["UserName"].(string)
		lower := strings.ToLower(name)
		if strings.Contains(lower, "admin") || strings.Contains(lower, "root") {
			permissive = append(permissive, name)
		}
	}
	if len(permissive) > 0 {
		return false, []string{fmt.Sprintf("%d users with potentially excessive permissions", len(permissive))}, permissive
	}
	return true, []string{"No overly permissive user accounts identified"}, nil
}

func checkEncryption(data map[string]any) (bool, []string, []string) {
	var unencrypted []string
	for _, item := range anyList(data, "buckets") {
		bucket, _ := item.(map[string]any)
		if enc, ok := bucket["encryption"].(bool); !ok || !enc {
			name, _ := bucket["name"].(string)
			unencrypted = append(unencrypted, name)
		}
	}
	if len(unencrypted) > 0 {
		return false, []string{fmt.Sprintf("%d buckets without encryption", len(unencrypted))}, unencrypted
	}
	return true, []string{"All buckets have encryption enabled"}, nil
}

func checkSecurityGroups(data map[string]any) (bool, []string, []string) {
	seen := make(map[string]bool)
	var open []string
	for _, item := range anyList(data, "security_groups") {
		sg, _ := item.(map[string]any)
		id, _ := sg["GroupId"].(string)
		for _, p := range anyList(sg, "IpPermissions") {
			perm, _ := p.(map[string]any)
			for _, r := range anyList(perm, "IpRanges") {
				ipRange, _ := r.(map[string]any)
				if cidr, _ := ipRange["CidrIp"].(string); cidr == "0.0.0.0/0" && !seen[id] {
					seen[id] = true
					open = append(open, id)
				}
			}
		}
	}
	if len(open) > 0 {
		return false, []string{fmt.Sprintf("%d security groups with unrestricted access", len(open))}, open
	}
	return true, []string{"No security groups with unrestricted access"}, nil
}

func checkLogging(data map[string]any) (bool, []string, []string) {
	active := 0
	for _, item := range anyList(data, "trails") {
		trail, _ := item.(map[string]any)
		status, _ := trail["status"].(map[string]any)
		if logging, _ := status["IsLogging"].(bool); logging {
			active++
		}
	}
	if active == 0 {
		return false, []string{"CloudTrail is not enabled or not logging"}, []string{"CloudTrail"}
	}
	return true, []string{fmt.Sprintf("CloudTrail is enabled with %d active trail(s)", active)}, nil
}

// anyList reads a JSON array value, tolerating absence.
func anyList(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}
