package auction_test

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

func TestCategory_Demoted(t *testing.T) {
	next, ok := auction.CategoryA.Demoted()
	check.True(t, ok)
	check.Equal(t, auction.CategoryB, next)

	next, ok = auction.CategoryB.Demoted()
	check.True(t, ok)
	check.Equal(t, auction.CategoryC, next)

	_, ok = auction.CategoryC.Demoted()
	check.False(t, ok)
}

func TestSnapshot_CloneIsDeep(t *testing.T) {
	e := newEngine()
	s := played(t, e)

	c := s.Clone()
	c.Player("pa").Name = "changed"
	c.Team("t1").Budget = 0
	c.State.History[0].PlayerName = "changed"
	c.State.LastResolution.Player.Name = "changed"
	c.State.Interests["pc"][0] = "changed"

	check.Equal(t, "Alpha", s.Player("pa").Name)
	check.Equal(t, 108000, s.Team("t1").Budget)
	check.Equal(t, "Bravo", s.State.History[0].PlayerName)
	check.Equal(t, "Bravo", s.State.LastResolution.Player.Name)
	check.Equal(t, "t2", s.State.Interests["pc"][0])
}

func TestSnapshot_Apply(t *testing.T) {
	e := newEngine()
	leader := seeded(t, e)
	follower := leader.Clone()

	onFloor(t, e, leader, auction.PhaseCategoryA, "pa")
	_ = e.PlaceBid(leader, "t1", 10000)
	_ = e.Sold(leader, "pa")
	c := leader.Changes()

	follower.Apply(c)
	check.Equal(t, leader.Version, follower.Version)
	check.Equal(t, leader.State, follower.State)
	check.Equal(t, leader.Players, follower.Players)
	check.Equal(t, leader.Teams, follower.Teams)

	// Replaying the same changes is ignored.
	follower.Team("t1").Name = "local"
	follower.Apply(c)
	check.Equal(t, "local", follower.Team("t1").Name)
}
