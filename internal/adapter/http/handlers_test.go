package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fieldwork-ai/fieldwork/internal/adapter/ws"
	"github.com/fieldwork-ai/fieldwork/internal/budget"
	"github.com/fieldwork-ai/fieldwork/internal/dashboard"
	"github.com/fieldwork-ai/fieldwork/internal/domain/cost"
	"github.com/fieldwork-ai/fieldwork/internal/engine"
	"github.com/fieldwork-ai/fieldwork/internal/gate"
	"github.com/fieldwork-ai/fieldwork/internal/ledger"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
	"github.com/fieldwork-ai/fieldwork/internal/resilience"
	"github.com/fieldwork-ai/fieldwork/internal/team"
	"github.com/fieldwork-ai/fieldwork/internal/tool"
)

func newTestServer(t *testing.T) (*httptest.Server, *llm.Gateway) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2026, 8, 15, 9, 0, 0, 0, time.UTC) }

	client := llm.NewScriptedClient("test-model",
		`{"action": "goal_complete", "summary": "done", "next_steps": "none"}`)
	agent := engine.NewAgent("Maurice", "Audit Manager", client, tool.NewRegistry(), log,
		engine.WithStepDelay(0))

	tm := team.NewTeam(log)
	tm.Add(agent)

	gw := llm.NewGateway(client, 10, resilience.NewBreaker(5, time.Second), log)
	g := gate.New(log, now)
	store := ledger.NewStore(t.TempDir(), now)
	if err := store.Create("Maurice", "Draft audit plan", "high", ""); err != nil {
		t.Fatalf("seed ledger: %v", err)
	}

	state := dashboard.New(tm, gw, g, store, now)
	tracker := budget.NewTracker()
	if err := tracker.Allocate("data_encryption", 40); err != nil {
		t.Fatalf("allocate budget: %v", err)
	}
	if err := tracker.Record("data_encryption", 12); err != nil {
		t.Fatalf("record budget: %v", err)
	}
	state.SetBudget(tracker)
	hub := ws.NewHub()
	h := NewHandlers(state, gw, hub, log)

	r := chi.NewRouter()
	MountRoutes(r, h)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, gw
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	var body map[string]any
	if status := getJSON(t, srv.URL+"/health", &body); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v", body["status"])
	}
	if body["model"] != "test-model" {
		t.Errorf("model = %v", body["model"])
	}
}

func TestTeamEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var rows []dashboard.AgentSummary
	if status := getJSON(t, srv.URL+"/api/team", &rows); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(rows) != 1 || rows[0].Name != "Maurice" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAgentEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var summary dashboard.AgentSummary
	if status := getJSON(t, srv.URL+"/api/agents/Maurice", &summary); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if summary.Role != "Audit Manager" {
		t.Errorf("role = %q", summary.Role)
	}
}

func TestUnknownAgentReturns404(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{
		"/api/agents/Nobody",
		"/api/agents/Nobody/actions",
		"/api/agents/Nobody/memory",
		"/api/ledgers/Nobody",
	} {
		var body errorResponse
		if status := getJSON(t, srv.URL+path, &body); status != http.StatusNotFound {
			t.Errorf("%s status = %d, want 404", path, status)
		}
	}
}

func TestCostsEndpoint(t *testing.T) {
	srv, gw := newTestServer(t)

	gw.Ledger().Record(cost.Entry{Agent: "Maurice", Model: "test-model", CostUSD: 0.01})

	var report dashboard.CostReport
	if status := getJSON(t, srv.URL+"/api/costs", &report); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if report.Summary.CallCount != 1 {
		t.Errorf("call count = %d", report.Summary.CallCount)
	}
}

func TestBudgetEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var report budget.Report
	if status := getJSON(t, srv.URL+"/api/budget", &report); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(report.Lines) != 1 || report.Lines[0].ControlDomain != "data_encryption" {
		t.Fatalf("unexpected report lines: %+v", report.Lines)
	}
	if report.TotalBudgeted != 40 || report.TotalActual != 12 {
		t.Errorf("totals = %.1f/%.1f, want 40.0/12.0",
			report.TotalBudgeted, report.TotalActual)
	}
}

func TestApprovalsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var approvals []gate.Approval
	if status := getJSON(t, srv.URL+"/api/approvals", &approvals); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if len(approvals) != 2 {
		t.Errorf("approvals = %d, want 2", len(approvals))
	}
}

func TestLedgerEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	var overview dashboard.LedgerOverview
	if status := getJSON(t, srv.URL+"/api/ledgers/Maurice", &overview); status != http.StatusOK {
		t.Fatalf("status = %d", status)
	}
	if overview.Open != 1 {
		t.Errorf("open = %d, want 1", overview.Open)
	}
}

func TestCORSPreflight(t *testing.T) {
	handler := CORS("http://localhost:3000")(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/team", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("origin header = %q", got)
	}
}
