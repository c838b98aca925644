package auction_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
)

// fixedRand always picks the same index, clamped to n.
type fixedRand int

func (r fixedRand) Intn(n int) int { return min(int(r), n-1) }

func newEngine() *auction.Engine {
	n := 0
	return &auction.Engine{
		Rules: auction.DefaultRules(),
		Clock: &clock.Stepper{T: time.Date(2026, 3, 1, 18, 0, 0, 0, time.UTC), Step: time.Second},
		Rand:  fixedRand(0),
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

// seeded returns a snapshot with two teams and one player per category, with
// pending changes already drained.
func seeded(t *testing.T, e *auction.Engine) *auction.Snapshot {
	t.Helper()
	s := auction.NewSnapshot()
	if err := e.ReplaceTeams(s, []auction.TeamSeed{
		{ID: "t1", Name: "Falcons", Captain: "Asif"},
		{ID: "t2", Name: "Tigers"},
	}); err != nil {
		t.Fatalf("ReplaceTeams: %v", err)
	}
	if err := e.ReplacePlayers(s, []auction.Player{
		{ID: "pa", Name: "Alpha", Role: "Batter", Category: auction.CategoryA},
		{ID: "pb", Name: "Bravo", Role: "Bowler", Category: auction.CategoryB},
		{ID: "pc", Name: "Charlie", Role: "Keeper", Category: auction.CategoryC},
	}); err != nil {
		t.Fatalf("ReplacePlayers: %v", err)
	}
	s.Changes()
	return s
}

// onFloor moves s into phase and draws the player with the given id.
func onFloor(t *testing.T, e *auction.Engine, s *auction.Snapshot, phase auction.Phase, playerID string) {
	t.Helper()
	if _, err := e.SetPhase(s, phase); err != nil {
		t.Fatalf("SetPhase(%s): %v", phase, err)
	}
	for i, p := range s.Candidates(phase) {
		if p.ID == playerID {
			e.Rand = fixedRand(i)
		}
	}
	p, err := e.DrawNext(s)
	if err != nil || p == nil || p.ID != playerID {
		t.Fatalf("DrawNext() = %v, %v; want %s", p, err, playerID)
	}
}

func assertClean(t *testing.T, e *auction.Engine, s *auction.Snapshot) {
	t.Helper()
	for _, v := range auction.Verify(s, e.Rules) {
		t.Errorf("invariant violated: %s", v)
	}
}
