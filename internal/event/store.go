package event

import "context"

// Store reads the committed event log. Events are written by the snapshot
// store as part of each commit, never on their own.
type Store interface {
	// Load returns all events for an aggregate, ordered by version.
	Load(ctx context.Context, aggregateID string) ([]Event, error)
	// LoadByType returns events filtered by type, ordered by version.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}
