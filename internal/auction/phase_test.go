package auction_test

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

func TestSetPhase(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)

	exhausted, err := e.SetPhase(s, auction.PhaseCategoryA)
	if err != nil {
		t.Fatalf("SetPhase(CATEGORY_A): %v", err)
	}
	check.False(t, exhausted)
	check.Equal(t, auction.PhaseCategoryA, s.State.Phase)
	check.False(t, s.State.LotActive())
	check.Equal(t, event.PhaseChanged, s.PendingEvents()[0].Type)

	// Operator may jump out of order.
	exhausted, err = e.SetPhase(s, auction.PhaseUnsold)
	if err != nil {
		t.Fatalf("SetPhase(UNSOLD_ROUND): %v", err)
	}
	check.True(t, exhausted)
}

func TestSetPhase_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, e *auction.Engine) *auction.Snapshot
		phase   auction.Phase
		wantErr error
	}{
		{
			name: "unknown phase",
			setup: func(t *testing.T, e *auction.Engine) *auction.Snapshot {
				return seeded(t, e)
			},
			phase:   "BONUS_ROUND",
			wantErr: auction.ErrInvalidPhase,
		},
		{
			name: "lot on the floor",
			setup: func(t *testing.T, e *auction.Engine) *auction.Snapshot {
				s := seeded(t, e)
				onFloor(t, e, s, auction.PhaseCategoryA, "pa")
				return s
			},
			phase:   auction.PhaseCategoryB,
			wantErr: auction.ErrLotActive,
		},
		{
			name: "setup without players",
			setup: func(t *testing.T, e *auction.Engine) *auction.Snapshot {
				s := auction.NewSnapshot()
				_ = e.ReplaceTeams(s, []auction.TeamSeed{{ID: "t1", Name: "A"}, {ID: "t2", Name: "B"}})
				return s
			},
			phase:   auction.PhaseCategoryA,
			wantErr: auction.ErrSetupIncomplete,
		},
		{
			name: "setup with one team",
			setup: func(t *testing.T, e *auction.Engine) *auction.Snapshot {
				s := auction.NewSnapshot()
				_ = e.ReplaceTeams(s, []auction.TeamSeed{{ID: "t1", Name: "A"}})
				_ = e.ReplacePlayers(s, []auction.Player{{ID: "p1", Name: "P", Category: auction.CategoryA}})
				return s
			},
			phase:   auction.PhaseCategoryA,
			wantErr: auction.ErrSetupIncomplete,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			s := tt.setup(t, e)
			s.Changes()
			before := s.State.Phase

			_, err := e.SetPhase(s, tt.phase)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetPhase() error = %v, want %v", err, tt.wantErr)
			}
			check.Equal(t, before, s.State.Phase)
			check.Equal(t, 0, len(s.PendingEvents()))
		})
	}
}

func TestSetPhase_SamePhaseIsNoop(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)
	_, _ = e.SetPhase(s, auction.PhaseCategoryB)
	s.Changes()

	if _, err := e.SetPhase(s, auction.PhaseCategoryB); err != nil {
		t.Fatalf("SetPhase(): %v", err)
	}
	check.Equal(t, 0, len(s.PendingEvents()))
}

func TestDrawNext(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)
	_, _ = e.SetPhase(s, auction.PhaseCategoryA)
	s.State.History = []auction.HistoryEntry{{ID: "h0", Type: auction.HistoryUnsold, PlayerID: "old"}}

	p, err := e.DrawNext(s)
	if err != nil {
		t.Fatalf("DrawNext(): %v", err)
	}
	check.Equal(t, "pa", p.ID)
	check.Equal(t, "pa", s.State.CurrentPlayerID)
	check.Equal(t, 10000, s.State.CurrentBidPrice)
	check.Equal(t, "", s.State.CurrentBidderTeamID)
	check.Equal(t, 1, len(s.State.History))

	if _, err := e.DrawNext(s); !errors.Is(err, auction.ErrLotActive) {
		t.Errorf("DrawNext() with lot = %v, want ErrLotActive", err)
	}
}

func TestDrawNext_NoCandidatesIsNoop(t *testing.T) {
	for _, phase := range []auction.Phase{auction.PhaseUnsold, auction.PhaseComplete} {
		t.Run(string(phase), func(t *testing.T) {
			e := newEngine()
			s := seeded(t, e)
			_, _ = e.SetPhase(s, phase)
			s.Changes()
			before := s.State
			version := s.Version

			p, err := e.DrawNext(s)
			check.NoError(t, err)
			check.True(t, p == nil)
			check.Equal(t, before, s.State)
			check.Equal(t, version, s.Version)
			check.Equal(t, 0, len(s.PendingEvents()))
		})
	}
}

func TestDrawNext_UsesRandSource(t *testing.T) {
	e := newEngine()
	s := auction.NewSnapshot()
	_ = e.ReplaceTeams(s, []auction.TeamSeed{{ID: "t1", Name: "A"}, {ID: "t2", Name: "B"}})
	_ = e.ReplacePlayers(s, []auction.Player{
		{ID: "c1", Name: "One", Category: auction.CategoryC},
		{ID: "c2", Name: "Two", Category: auction.CategoryC},
		{ID: "c3", Name: "Three", Category: auction.CategoryC},
	})
	_, _ = e.SetPhase(s, auction.PhaseCategoryC)
	e.Rand = fixedRand(2)

	p, err := e.DrawNext(s)
	check.NoError(t, err)
	check.Equal(t, "c3", p.ID)
}

func TestExhausted(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)

	check.False(t, s.Exhausted(auction.PhaseSetup))
	check.False(t, s.Exhausted(auction.PhaseCategoryA))
	check.True(t, s.Exhausted(auction.PhaseUnsold))
	check.False(t, s.Exhausted(auction.PhaseComplete))

	onFloor(t, e, s, auction.PhaseCategoryC, "pc")
	_ = e.Unsold(s, "pc")
	check.True(t, s.Exhausted(auction.PhaseCategoryC))
	check.False(t, s.Exhausted(auction.PhaseUnsold))
}
