package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldwork-ai/fieldwork/internal/domain/event"
	"github.com/fieldwork-ai/fieldwork/internal/port/eventstore"
)

// TrailStore implements eventstore.Store on PostgreSQL (append-only).
type TrailStore struct {
	pool *pgxpool.Pool
}

// NewTrailStore creates a TrailStore backed by the given connection pool.
func NewTrailStore(pool *pgxpool.Pool) *TrailStore {
	return &TrailStore{pool: pool}
}

// Append inserts one action event into the trail_events table.
func (s *TrailStore) Append(ctx context.Context, ev event.ActionEvent) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO trail_events (id, agent, event_type, description, details, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		ev.ID, ev.Agent, string(ev.Type), ev.Description, ev.Details, ev.Result, ev.CreatedAt)
	if err != nil {
		return fmt.Errorf("append trail event: %w", err)
	}
	return nil
}

// trailColumns is the SELECT column list for trail_events queries.
const trailColumns = `seq, id, agent, event_type, description, details, COALESCE(result, ''), created_at`

// scanTrailEvent scans a row into an ActionEvent, returning the row's sequence number.
func scanTrailEvent(scanner interface{ Scan(dest ...any) error }, ev *event.ActionEvent) (int64, error) {
	var seq int64
	err := scanner.Scan(&seq, &ev.ID, &ev.Agent, &ev.Type, &ev.Description, &ev.Details, &ev.Result, &ev.CreatedAt)
	return seq, err
}

// LoadByAgent returns an agent's events, newest first, capped at limit.
func (s *TrailStore) LoadByAgent(ctx context.Context, agent string, limit int) ([]event.ActionEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM trail_events WHERE agent = $1 ORDER BY seq DESC LIMIT $2`, trailColumns),
		agent, limit)
	if err != nil {
		return nil, fmt.Errorf("load trail by agent %s: %w", agent, err)
	}
	defer rows.Close()

	var events []event.ActionEvent
	for rows.Next() {
		var ev event.ActionEvent
		if _, err := scanTrailEvent(rows, &ev); err != nil {
			return nil, fmt.Errorf("scan trail event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Load returns a cursor-paginated page of events matching the filter, oldest first.
// The cursor is opaque to callers; pass the previous page's Cursor to continue.
func (s *TrailStore) Load(ctx context.Context, filter event.Filter, cursor string, limit int) (*event.Page, error) {
	if limit <= 0 {
		limit = 50
	}

	// Build dynamic WHERE clause.
	var args []any
	var conditions []string
	argIdx := 1

	if cursor != "" {
		after, err := strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		conditions = append(conditions, fmt.Sprintf("seq > $%d", argIdx))
		args = append(args, after)
		argIdx++
	}
	if filter.Agent != "" {
		conditions = append(conditions, fmt.Sprintf("agent = $%d", argIdx))
		args = append(args, filter.Agent)
		argIdx++
	}
	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("event_type = $%d", argIdx))
		args = append(args, string(filter.Type))
		argIdx++
	}
	if filter.After != nil {
		conditions = append(conditions, fmt.Sprintf("created_at > $%d", argIdx))
		args = append(args, *filter.After)
		argIdx++
	}
	if filter.Before != nil {
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", argIdx))
		args = append(args, *filter.Before)
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	// Fetch limit+1 to detect hasMore.
	fetchSQL := fmt.Sprintf(`SELECT %s FROM trail_events%s ORDER BY seq ASC LIMIT $%d`,
		trailColumns, where, argIdx)
	args = append(args, limit+1)

	rows, err := s.pool.Query(ctx, fetchSQL, args...)
	if err != nil {
		return nil, fmt.Errorf("load trail page: %w", err)
	}
	defer rows.Close()

	var events []event.ActionEvent
	var seqs []int64
	for rows.Next() {
		var ev event.ActionEvent
		seq, err := scanTrailEvent(rows, &ev)
		if err != nil {
			return nil, fmt.Errorf("scan trail event: %w", err)
		}
		events = append(events, ev)
		seqs = append(seqs, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hasMore := len(events) > limit
	var nextCursor string
	if hasMore {
		events = events[:limit]
		nextCursor = strconv.FormatInt(seqs[limit-1], 10)
	}

	return &event.Page{
		Events:  events,
		Cursor:  nextCursor,
		HasMore: hasMore,
	}, nil
}

// Stats returns aggregate counts over the whole trail.
func (s *TrailStore) Stats(ctx context.Context) (*eventstore.TrailStats, error) {
	stats := &eventstore.TrailStats{
		ByType:  make(map[string]int),
		ByAgent: make(map[string]int),
	}

	rows, err := s.pool.Query(ctx,
		`SELECT event_type, COUNT(*) FROM trail_events GROUP BY event_type`)
	if err != nil {
		return nil, fmt.Errorf("trail stats by type: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var typ string
		var count int
		if err := rows.Scan(&typ, &count); err != nil {
			return nil, fmt.Errorf("scan trail stats: %w", err)
		}
		stats.ByType[typ] = count
		stats.TotalEvents += count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	agentRows, err := s.pool.Query(ctx,
		`SELECT agent, COUNT(*) FROM trail_events GROUP BY agent`)
	if err != nil {
		return nil, fmt.Errorf("trail stats by agent: %w", err)
	}
	defer agentRows.Close()
	for agentRows.Next() {
		var agent string
		var count int
		if err := agentRows.Scan(&agent, &count); err != nil {
			return nil, fmt.Errorf("scan trail stats: %w", err)
		}
		stats.ByAgent[agent] = count
	}
	return stats, agentRows.Err()
}
