package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
)

// Event type constants for WebSocket messages.
const (
	EventAction   = "audit.action"
	EventApproval = "audit.approval"
	EventCost     = "audit.cost"
)

// ApprovalEvent is broadcast when the gate records a review outcome.
type ApprovalEvent struct {
	Subject  string `json:"subject"`
	Status   string `json:"status"`
	Approver string `json:"approver"`
}

// CostEvent is broadcast after every model call so the dashboard can track
// spend live.
type CostEvent struct {
	Agent     string    `json:"agent"`
	Model     string    `json:"model"`
	CostUSD   float64   `json:"cost_usd"`
	Timestamp time.Time `json:"timestamp"`
}

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}

// Record implements engine.ActionSink: every agent action is pushed to all
// connected dashboard clients.
func (h *Hub) Record(ctx context.Context, evt event.ActionEvent) {
	h.BroadcastEvent(ctx, EventAction, evt)
}
