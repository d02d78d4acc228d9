// Package eventstore defines the port interface for the append-only audit
// trail archive.
package eventstore

import (
	"context"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
)

// TrailStats contains aggregate statistics over the archived trail.
type TrailStats struct {
	TotalEvents int            `json:"total_events"`
	ByType      map[string]int `json:"by_type"`
	ByAgent     map[string]int `json:"by_agent"`
}

// Store is the port interface for archiving and loading action events.
// The archive outlives the process; the in-memory action log on each agent
// does not.
type Store interface {
	// Append persists one action event.
	Append(ctx context.Context, evt event.ActionEvent) error

	// LoadByAgent returns an agent's events, newest first, capped at limit.
	LoadByAgent(ctx context.Context, agent string, limit int) ([]event.ActionEvent, error)

	// Load returns a cursor-paginated page of events matching the filter,
	// oldest first.
	Load(ctx context.Context, filter event.Filter, cursor string, limit int) (*event.Page, error)

	// Stats returns aggregate counts over the whole trail.
	Stats(ctx context.Context) (*TrailStats, error)
}
