package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/adapter/ws"
	"github.com/fieldwork-ai/fieldwork/internal/dashboard"
	"github.com/fieldwork-ai/fieldwork/internal/llm"
)

// Handlers holds the dashboard endpoints. Everything is read-only; the
// engagement is driven from the terminal, the dashboard only observes.
type Handlers struct {
	state   *dashboard.State
	gateway *llm.Gateway
	hub     *ws.Hub
	log     *slog.Logger
}

// NewHandlers builds the endpoint set over the dashboard state.
func NewHandlers(state *dashboard.State, gateway *llm.Gateway, hub *ws.Hub, log *slog.Logger) *Handlers {
	return &Handlers{state: state, gateway: gateway, hub: hub, log: log}
}

// Health reports process liveness, provider breaker state and the live
// feed connection count.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"model":          h.gateway.Model(),
		"breaker":        h.gateway.BreakerState(),
		"ws_connections": h.hub.ConnectionCount(),
		"uptime_seconds": int64(h.state.Uptime() / time.Second),
	})
}

// Team returns a summary row per agent.
func (h *Handlers) Team(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Team())
}

// Agent returns one agent's summary.
func (h *Handlers) Agent(w http.ResponseWriter, r *http.Request) {
	summary, err := h.state.Agent(urlParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// AgentActions returns the tail of an agent's action trail. The limit
// query parameter caps the tail; it defaults to 50.
func (h *Handlers) AgentActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.state.Actions(urlParam(r, "name"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, actions)
}

// AgentMemory returns the tail of an agent's conversation memory.
func (h *Handlers) AgentMemory(w http.ResponseWriter, r *http.Request) {
	memory, err := h.state.Memory(urlParam(r, "name"), queryInt(r, "limit", 50))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, memory)
}

// Costs returns the model spend breakdown.
func (h *Handlers) Costs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Costs())
}

// Budget returns the plan's hours variance report. Before the audit plan
// is approved there is no budget to report against.
func (h *Handlers) Budget(w http.ResponseWriter, _ *http.Request) {
	report, err := h.state.Budget()
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Approvals returns the review gate status per subject.
func (h *Handlers) Approvals(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Approvals())
}

// Ledger returns one agent's task list overview.
func (h *Handlers) Ledger(w http.ResponseWriter, r *http.Request) {
	overview, err := h.state.Ledger(urlParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, overview)
}
