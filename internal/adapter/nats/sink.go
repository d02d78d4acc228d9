package nats

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/port/messagequeue"
)

// Sink mirrors action events onto the audit.actions subject. Publishing is
// best effort: failures are logged and the event is lost from the stream,
// never from the agent's own log.
type Sink struct {
	q   messagequeue.Queue
	log *slog.Logger
}

// NewSink wraps a queue as an action event sink. Combine with
// engine.NewAsyncSink so a slow broker never stalls the reasoning loop.
func NewSink(q messagequeue.Queue, log *slog.Logger) *Sink {
	return &Sink{q: q, log: log}
}

// Record publishes the event.
func (s *Sink) Record(ctx context.Context, evt event.ActionEvent) {
	payload := messagequeue.ActionPayload{
		ID:          evt.ID,
		Agent:       evt.Agent,
		Type:        string(evt.Type),
		Description: evt.Description,
		Result:      evt.Result,
		CreatedAt:   evt.CreatedAt,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error("marshal action payload", "error", err)
		return
	}
	if err := s.q.Publish(ctx, messagequeue.SubjectActions, data); err != nil {
		s.log.Warn("publish action event", "subject", messagequeue.SubjectActions, "error", err)
	}
}
