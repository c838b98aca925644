// Package memory is a store driver that keeps the auction in process memory.
// It is used by tests and single-process demos.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/config"
	"github.com/muktadirmaashif/itcf-2026/internal/event"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/store/notify"
)

func init() {
	store.Register("memory", func(_ context.Context, _ config.DatabaseConfig, _ clock.Clock) (*store.Repositories, error) {
		s := New()
		return &store.Repositories{
			Snapshots: s,
			Events:    s.EventLog(),
			Closer:    s,
			Ping:      func(context.Context) error { return nil },
		}, nil
	})
}

// Store holds one auction snapshot and its event log.
type Store struct {
	mu     sync.RWMutex
	snap   *auction.Snapshot
	events []event.Event
	hub    *notify.Hub
}

// New returns an empty store in the SETUP phase.
func New() *Store {
	return &Store{snap: auction.NewSnapshot(), hub: notify.NewHub()}
}

// Load returns a copy of the current snapshot.
func (s *Store) Load(_ context.Context) (*auction.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone(), nil
}

// Commit applies c if expected is the current version.
func (s *Store) Commit(_ context.Context, expected int64, c auction.Changes) (int64, error) {
	s.mu.Lock()
	if s.snap.Version != expected {
		s.mu.Unlock()
		return 0, store.ErrConflict
	}
	if c.Empty() {
		s.mu.Unlock()
		return expected, nil
	}
	s.snap.Apply(c)
	s.snap = s.snap.Clone()
	s.events = append(s.events, c.Events...)
	version := s.snap.Version
	s.mu.Unlock()

	s.hub.Publish(store.Notifications(c, version)...)
	return version, nil
}

// Subscribe delivers a notification for every commit.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Notification, error) {
	return s.hub.Subscribe(ctx)
}

// Close implements io.Closer. There is nothing to release.
func (s *Store) Close() error { return nil }

// EventLog returns the read side of the committed event log.
func (s *Store) EventLog() event.Store { return eventLog{s} }

type eventLog struct{ s *Store }

func (l eventLog) Load(_ context.Context, aggregateID string) ([]event.Event, error) {
	return l.s.filter(func(e event.Event) bool { return e.AggregateID == aggregateID }), nil
}

func (l eventLog) LoadByType(_ context.Context, eventType event.Type) ([]event.Event, error) {
	return l.s.filter(func(e event.Event) bool { return e.Type == eventType }), nil
}

func (s *Store) filter(keep func(event.Event) bool) []event.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}
