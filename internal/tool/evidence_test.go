package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/audit"
)

func TestEvidenceStoreAndLoad(t *testing.T) {
	et := NewEvidenceTool(t.TempDir(), func() time.Time {
		return time.Date(2026, 8, 16, 14, 0, 0, 0, time.UTC)
	})

	res, err := et.Execute(context.Background(), map[string]any{
		"source":            "CloudTrail",
		"collection_method": audit.CollectionDirect,
		"collected_by":      "Hillel",
		"data":              map[string]any{"trail_count": float64(3), "multi_region": true},
		"control_domain":    "Logging and Monitoring",
	})
	if err != nil {
		t.Fatal(err)
	}

	id, _ := res["evidence_id"].(string)
	if !strings.HasPrefix(id, "EV-") || len(id) != len("EV-")+8 {
		t.Fatalf("evidence id = %q", id)
	}

	ev, err := et.Load(id)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Source != "CloudTrail" || ev.CollectedBy != "Hillel" {
		t.Errorf("metadata = %+v", ev)
	}
	if ev.Data["multi_region"] != true {
		t.Errorf("data = %v", ev.Data)
	}
	if ev.CollectionMethod != audit.CollectionDirect {
		t.Errorf("collection method = %q", ev.CollectionMethod)
	}
}

func TestEvidenceRequiresData(t *testing.T) {
	et := NewEvidenceTool(t.TempDir(), nil)

	_, err := et.Execute(context.Background(), map[string]any{
		"source":            "IAM",
		"collection_method": audit.CollectionDirect,
		"collected_by":      "Neil",
	})
	if err == nil {
		t.Fatal("expected error for missing data")
	}
}
