// Package storetest is the conformance suite every store driver runs.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/event"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
)

// Factory returns fresh, empty repositories for one subtest.
type Factory func(t *testing.T) *store.Repositories

// Run executes the conformance suite against the driver built by newRepos.
func Run(t *testing.T, newRepos Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, r *store.Repositories)
	}{
		{"EmptyLoad", testEmptyLoad},
		{"CommitAndLoad", testCommitAndLoad},
		{"StaleVersionConflicts", testStaleVersionConflicts},
		{"ResolutionRoundTrip", testResolutionRoundTrip},
		{"ReplaceRemovesOldRows", testReplaceRemovesOldRows},
		{"SubscribeSeesCommits", testSubscribeSeesCommits},
		{"EventLog", testEventLog},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newRepos(t)
			t.Cleanup(func() { _ = r.Closer.Close() })
			tt.fn(t, r)
		})
	}
}

func newEngine() *auction.Engine {
	return auction.NewEngine(auction.DefaultRules(), clock.Mock{T: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC)})
}

// apply loads the current snapshot, runs fn and commits the result.
func apply(t *testing.T, r *store.Repositories, fn func(s *auction.Snapshot) error) *auction.Snapshot {
	t.Helper()
	ctx := context.Background()
	s, err := r.Snapshots.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	expected := s.Version
	if err := fn(s); err != nil {
		t.Fatalf("transition: %v", err)
	}
	version, err := r.Snapshots.Commit(ctx, expected, s.Changes())
	if err != nil {
		t.Fatalf("Commit(%d): %v", expected, err)
	}
	if version != s.Version {
		t.Fatalf("Commit() version = %d, want %d", version, s.Version)
	}
	return s
}

func seed(t *testing.T, r *store.Repositories, e *auction.Engine) {
	t.Helper()
	apply(t, r, func(s *auction.Snapshot) error {
		return e.ReplaceTeams(s, []auction.TeamSeed{
			{ID: "t1", Name: "Falcons", Captain: "Asif"},
			{ID: "t2", Name: "Tigers"},
		})
	})
	apply(t, r, func(s *auction.Snapshot) error {
		return e.ReplacePlayers(s, []auction.Player{
			{ID: "pa", Name: "Alpha", Role: "Batter", Category: auction.CategoryA},
			{ID: "pc", Name: "Charlie", Role: "Keeper", Category: auction.CategoryC},
		})
	})
}

func load(t *testing.T, r *store.Repositories) *auction.Snapshot {
	t.Helper()
	s, err := r.Snapshots.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return s
}

func testEmptyLoad(t *testing.T, r *store.Repositories) {
	s := load(t, r)
	if s.Version != 0 {
		t.Errorf("Version = %d, want 0", s.Version)
	}
	if s.State.Phase != auction.PhaseSetup {
		t.Errorf("Phase = %q, want SETUP", s.State.Phase)
	}
	if len(s.Players) != 0 || len(s.Teams) != 0 {
		t.Errorf("got %d players, %d teams; want none", len(s.Players), len(s.Teams))
	}
	if err := r.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func testCommitAndLoad(t *testing.T, r *store.Repositories) {
	e := newEngine()
	seed(t, r, e)

	s := load(t, r)
	if s.Version != 2 {
		t.Errorf("Version = %d, want 2", s.Version)
	}
	if len(s.Teams) != 2 || s.Teams[0].ID != "t1" || s.Teams[1].ID != "t2" {
		t.Fatalf("Teams = %+v, want t1, t2 in order", s.Teams)
	}
	t1 := s.Team("t1")
	if t1.Name != "Falcons" || t1.Captain != "Asif" || t1.Budget != 120000 {
		t.Errorf("team t1 = %+v", *t1)
	}
	if len(s.Players) != 2 || s.Players[0].ID != "pa" {
		t.Fatalf("Players = %+v, want pa, pc in order", s.Players)
	}
	want := auction.Player{
		ID: "pa", Name: "Alpha", Role: "Batter",
		Category: auction.CategoryA, OriginalCategory: auction.CategoryA,
		BasePrice: 10000, Status: auction.StatusAvailable,
	}
	if got := *s.Player("pa"); got != want {
		t.Errorf("player pa = %+v, want %+v", got, want)
	}
}

func testStaleVersionConflicts(t *testing.T, r *store.Repositories) {
	e := newEngine()
	seed(t, r, e)
	ctx := context.Background()

	a, b := load(t, r), load(t, r)
	if _, err := e.SetPhase(a, auction.PhaseCategoryA); err != nil {
		t.Fatal(err)
	}
	if _, err := e.SetPhase(b, auction.PhaseCategoryC); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Snapshots.Commit(ctx, 2, a.Changes()); err != nil {
		t.Fatalf("first Commit: %v", err)
	}
	_, err := r.Snapshots.Commit(ctx, 2, b.Changes())
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("second Commit() error = %v, want ErrConflict", err)
	}

	s := load(t, r)
	if s.State.Phase != auction.PhaseCategoryA || s.Version != 3 {
		t.Errorf("after conflict: phase %q version %d, want CATEGORY_A 3", s.State.Phase, s.Version)
	}
}

func testResolutionRoundTrip(t *testing.T, r *store.Repositories) {
	e := newEngine()
	seed(t, r, e)

	apply(t, r, func(s *auction.Snapshot) error {
		if _, err := e.ToggleInterest(s, "t2", "pc"); err != nil {
			return err
		}
		_, err := e.SetPhase(s, auction.PhaseCategoryA)
		return err
	})
	apply(t, r, func(s *auction.Snapshot) error {
		_, err := e.DrawNext(s)
		return err
	})
	apply(t, r, func(s *auction.Snapshot) error { return e.PlaceBid(s, "t1", 10000) })
	apply(t, r, func(s *auction.Snapshot) error { return e.PlaceBid(s, "t2", 11000) })

	mid := load(t, r)
	if mid.State.CurrentPlayerID != "pa" || mid.State.CurrentBidderTeamID != "t2" || mid.State.CurrentBidPrice != 11000 {
		t.Fatalf("live lot = %+v", mid.State)
	}

	apply(t, r, func(s *auction.Snapshot) error { return e.Sold(s, "pa") })

	s := load(t, r)
	pa := s.Player("pa")
	if pa.Status != auction.StatusSold || pa.SoldPrice != 11000 || pa.SoldToTeamID != "t2" {
		t.Errorf("player pa = %+v", *pa)
	}
	t2 := s.Team("t2")
	if t2.Budget != 109000 || t2.Spent != 11000 || t2.Counts != (auction.Tally{A: 1}) || t2.Spend != (auction.Tally{A: 11000}) {
		t.Errorf("team t2 = %+v", *t2)
	}
	if s.State.LotActive() || s.State.CurrentBidPrice != 0 {
		t.Errorf("lot not cleared: %+v", s.State)
	}
	if len(s.State.History) != 3 {
		t.Fatalf("History has %d entries, want 3", len(s.State.History))
	}
	types := [3]auction.HistoryType{s.State.History[0].Type, s.State.History[1].Type, s.State.History[2].Type}
	if types != [3]auction.HistoryType{auction.HistorySold, auction.HistoryBid, auction.HistoryBid} {
		t.Errorf("History types = %v, want newest first", types)
	}
	if lr := s.State.LastResolution; lr == nil || lr.Kind != auction.ResolvedSold || lr.Team == nil || lr.Team.Budget != 120000 {
		t.Errorf("LastResolution = %+v", lr)
	}
	if got := s.State.Interests["pc"]; len(got) != 1 || got[0] != "t2" {
		t.Errorf("Interests[pc] = %v, want [t2]", got)
	}
	if v := auction.Verify(s, e.Rules); len(v) != 0 {
		t.Errorf("Verify() = %v", v)
	}

	apply(t, r, func(s *auction.Snapshot) error {
		_, err := e.Undo(s)
		return err
	})
	s = load(t, r)
	if s.Player("pa").Status != auction.StatusAvailable || s.Team("t2").Budget != 120000 {
		t.Errorf("undo not persisted: %+v %+v", *s.Player("pa"), *s.Team("t2"))
	}
	if s.State.LastResolution != nil || s.State.CurrentPlayerID != "pa" {
		t.Errorf("state after undo = %+v", s.State)
	}
}

func testReplaceRemovesOldRows(t *testing.T, r *store.Repositories) {
	e := newEngine()
	seed(t, r, e)
	apply(t, r, func(s *auction.Snapshot) error {
		return e.ReplacePlayers(s, []auction.Player{{ID: "pz", Name: "Zulu", Category: auction.CategoryB}})
	})
	apply(t, r, func(s *auction.Snapshot) error {
		return e.ReplaceTeams(s, []auction.TeamSeed{{ID: "t3", Name: "Lions"}, {ID: "t4", Name: "Bears"}})
	})

	s := load(t, r)
	if len(s.Players) != 1 || s.Players[0].ID != "pz" {
		t.Errorf("Players = %+v, want only pz", s.Players)
	}
	if len(s.Teams) != 2 || s.Team("t1") != nil {
		t.Errorf("Teams = %+v, want t3, t4", s.Teams)
	}
}

func testSubscribeSeesCommits(t *testing.T, r *store.Repositories) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := r.Snapshots.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	seed(t, r, newEngine())

	deadline := time.After(10 * time.Second)
	for {
		select {
		case n, ok := <-ch:
			if !ok {
				t.Fatal("subscription closed early")
			}
			if n.Kind == store.KindState && n.Version == 2 {
				return
			}
		case <-deadline:
			t.Fatal("no state notification for version 2")
		}
	}
}

func testEventLog(t *testing.T, r *store.Repositories) {
	e := newEngine()
	seed(t, r, e)
	apply(t, r, func(s *auction.Snapshot) error {
		_, err := e.SetPhase(s, auction.PhaseCategoryC)
		return err
	})
	ctx := context.Background()

	events, err := r.Events.Load(ctx, auction.AggregateID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for i, ev := range events {
		if ev.Version != int64(i+1) {
			t.Errorf("event %d version = %d, want %d", i, ev.Version, i+1)
		}
		if ev.ID == "" || len(ev.Data) == 0 {
			t.Errorf("event %d incomplete: %+v", i, ev)
		}
	}
	if events[2].Type != event.PhaseChanged {
		t.Errorf("last event = %q, want %q", events[2].Type, event.PhaseChanged)
	}

	imports, err := r.Events.LoadByType(ctx, event.PlayersImported)
	if err != nil {
		t.Fatalf("LoadByType: %v", err)
	}
	if len(imports) != 1 || imports[0].Version != 2 {
		t.Errorf("LoadByType(players.imported) = %+v", imports)
	}
}
