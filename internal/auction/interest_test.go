package auction_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

func TestToggleInterest(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)

	marked, err := e.ToggleInterest(s, "t1", "pc")
	check.NoError(t, err)
	check.True(t, marked)
	check.Equal(t, []string{"pc"}, s.TeamInterests("t1"))

	marked, err = e.ToggleInterest(s, "t1", "pc")
	check.NoError(t, err)
	check.False(t, marked)
	check.Equal(t, 0, len(s.TeamInterests("t1")))
	check.Equal(t, 2, len(s.PendingEvents()))
}

func TestToggleInterest_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		teamID   string
		playerID string
		lock     bool
		wantErr  error
	}{
		{"locked", "t1", "pc", true, auction.ErrInterestLocked},
		{"category A", "t1", "pa", false, auction.ErrNotInterestEligible},
		{"unknown team", "t9", "pc", false, auction.ErrTeamNotFound},
		{"unknown player", "t1", "p9", false, auction.ErrPlayerNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEngine()
			s := seeded(t, e)
			_ = e.SetInterestLocked(s, tt.lock)
			s.Changes()

			_, err := e.ToggleInterest(s, tt.teamID, tt.playerID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ToggleInterest() error = %v, want %v", err, tt.wantErr)
			}
			check.Equal(t, 0, len(s.PendingEvents()))
		})
	}
}

func TestToggleInterest_Limit(t *testing.T) {
	e := newEngine()
	e.Rules.InterestLimit = 3
	s := auction.NewSnapshot()
	_ = e.ReplaceTeams(s, []auction.TeamSeed{{ID: "t1", Name: "A"}, {ID: "t2", Name: "B"}})
	var players []auction.Player
	for i := range 4 {
		players = append(players, auction.Player{ID: fmt.Sprintf("c%d", i), Name: "C", Category: auction.CategoryC})
	}
	_ = e.ReplacePlayers(s, players)

	for i := range 3 {
		if _, err := e.ToggleInterest(s, "t1", fmt.Sprintf("c%d", i)); err != nil {
			t.Fatalf("ToggleInterest(c%d): %v", i, err)
		}
	}
	_, err := e.ToggleInterest(s, "t1", "c3")
	check.True(t, errors.Is(err, auction.ErrInterestLimit))
	check.Equal(t, auction.KindValidation, auction.KindOf(err))

	// Another team has its own allowance.
	_, err = e.ToggleInterest(s, "t2", "c3")
	check.NoError(t, err)

	// Unmarking is always allowed and frees a slot.
	_, _ = e.ToggleInterest(s, "t1", "c0")
	_, err = e.ToggleInterest(s, "t1", "c3")
	check.NoError(t, err)
}

func TestSetInterestLocked(t *testing.T) {
	e := newEngine()
	s := seeded(t, e)

	check.NoError(t, e.SetInterestLocked(s, true))
	check.True(t, s.State.InterestLocked)
	check.Equal(t, 1, len(s.PendingEvents()))

	check.NoError(t, e.SetInterestLocked(s, true))
	check.Equal(t, 1, len(s.PendingEvents()))
}
