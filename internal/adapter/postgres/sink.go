package postgres

import (
	"context"
	"log/slog"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/port/eventstore"
)

// Sink archives action events into the trail store. Archiving is best
// effort: a write failure is logged and the event survives only in the
// agent's in-memory log.
type Sink struct {
	store eventstore.Store
	log   *slog.Logger
}

// NewSink wraps a trail store as an action event sink. Combine with
// engine.NewAsyncSink so a slow database never stalls the reasoning loop.
func NewSink(store eventstore.Store, log *slog.Logger) *Sink {
	return &Sink{store: store, log: log}
}

// Record appends the event to the archive.
func (s *Sink) Record(ctx context.Context, evt event.ActionEvent) {
	if err := s.store.Append(ctx, evt); err != nil {
		s.log.Warn("archive action event", "agent", evt.Agent, "type", evt.Type, "error", err)
	}
}
