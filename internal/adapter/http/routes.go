package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the dashboard API on the given chi router. The
// websocket handler is mounted at /ws outside the /api group.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Get("/health", h.Health)
	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		h.hub.HandleWS(w, req)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/team", h.Team)
		r.Get("/agents/{name}", h.Agent)
		r.Get("/agents/{name}/actions", h.AgentActions)
		r.Get("/agents/{name}/memory", h.AgentMemory)
		r.Get("/costs", h.Costs)
		r.Get("/budget", h.Budget)
		r.Get("/approvals", h.Approvals)
		r.Get("/ledgers/{name}", h.Ledger)
	})
}
