package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

// EventStore implements event.Store using sqlx.
type EventStore struct {
	db *sqlx.DB
}

// NewEventStore returns a new EventStore.
func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

// eventRow mirrors the events table. Timestamps are unix milliseconds.
type eventRow struct {
	ID          string `db:"id"`
	AggregateID string `db:"aggregate_id"`
	Type        string `db:"type"`
	Data        string `db:"data"`
	Version     int64  `db:"version"`
	CreatedAt   int64  `db:"created_at"`
}

func (r eventRow) toEvent() event.Event {
	return event.Event{
		ID:          r.ID,
		AggregateID: r.AggregateID,
		Type:        event.Type(r.Type),
		Data:        json.RawMessage(r.Data),
		Version:     r.Version,
		CreatedAt:   time.UnixMilli(r.CreatedAt).UTC(),
	}
}

func (s *EventStore) Load(ctx context.Context, aggregateID string) ([]event.Event, error) {
	return s.query(ctx,
		`SELECT id, aggregate_id, type, data, version, created_at
		 FROM events WHERE aggregate_id = ? ORDER BY version ASC`, aggregateID)
}

func (s *EventStore) LoadByType(ctx context.Context, eventType event.Type) ([]event.Event, error) {
	return s.query(ctx,
		`SELECT id, aggregate_id, type, data, version, created_at
		 FROM events WHERE type = ? ORDER BY version ASC`, string(eventType))
}

func (s *EventStore) query(ctx context.Context, query string, arg any) ([]event.Event, error) {
	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, arg); err != nil {
		return nil, fmt.Errorf("loading events: %w", err)
	}
	events := make([]event.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, r.toEvent())
	}
	return events, nil
}
