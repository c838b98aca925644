package store

import (
	"context"
	"errors"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

// ErrConflict is returned by Commit when the stored version no longer
// matches the version the changes were computed against.
var ErrConflict = errors.New("store: version conflict")

// Kind names the entity set a notification is about.
type Kind string

const (
	KindPlayers Kind = "players"
	KindTeams   Kind = "teams"
	KindState   Kind = "state"
	// KindResync asks subscribers to reload everything, e.g. after a dropped
	// connection may have lost notifications.
	KindResync Kind = "resync"
)

// Notification tells subscribers that an entity set changed at Version.
type Notification struct {
	Kind    Kind  `json:"kind"`
	Version int64 `json:"version"`
}

// Snapshots is the persistence and notification contract the coordinator
// and the replicas depend on.
type Snapshots interface {
	// Load returns every player and team plus the auction state and the
	// version they were read at.
	Load(ctx context.Context) (*auction.Snapshot, error)
	// Commit atomically applies c if the stored version equals expected and
	// returns the new version. Otherwise it returns ErrConflict and writes
	// nothing.
	Commit(ctx context.Context, expected int64, c auction.Changes) (int64, error)
	// Subscribe delivers a notification for every committed change, from any
	// writer, until ctx is done.
	Subscribe(ctx context.Context) (<-chan Notification, error)
}

// Notifications returns what a commit of c announces to subscribers.
func Notifications(c auction.Changes, version int64) []Notification {
	var out []Notification
	if len(c.Players) > 0 || c.ReplacePlayers {
		out = append(out, Notification{Kind: KindPlayers, Version: version})
	}
	if len(c.Teams) > 0 || c.ReplaceTeams {
		out = append(out, Notification{Kind: KindTeams, Version: version})
	}
	return append(out, Notification{Kind: KindState, Version: version})
}
