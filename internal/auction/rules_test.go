package auction_test

import (
	"errors"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

func TestNextMinBid(t *testing.T) {
	r := auction.DefaultRules()
	tests := []struct {
		name   string
		price  int
		cat    auction.Category
		bidder string
		want   int
	}{
		{"opening ask is the base price", 10000, auction.CategoryA, "", 10000},
		{"A below threshold", 24000, auction.CategoryA, "t1", 25000},
		{"A at threshold", 25000, auction.CategoryA, "t1", 27000},
		{"B below threshold", 7500, auction.CategoryB, "t1", 8000},
		{"B at threshold", 8000, auction.CategoryB, "t1", 9000},
		{"C below threshold", 3000, auction.CategoryC, "t1", 3500},
		{"C above threshold", 12000, auction.CategoryC, "t1", 13000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check.Equal(t, tt.want, r.NextMinBid(tt.price, tt.cat, tt.bidder))
		})
	}
}

func TestNextMinBid_Monotonic(t *testing.T) {
	r := auction.DefaultRules()
	for _, cat := range auction.Categories {
		prev := 0
		for price := 0; price <= 40000; price += 250 {
			got := r.NextMinBid(price, cat, "t1")
			check.True(t, got >= prev)
			check.True(t, got > price)
			prev = got
		}
	}
}

func TestCanTeamBid(t *testing.T) {
	r := auction.DefaultRules()
	fresh := auction.Team{ID: "t1", Budget: 120000}
	playerA := auction.Player{ID: "pa", Category: auction.CategoryA, BasePrice: 10000}
	playerB := auction.Player{ID: "pb", Category: auction.CategoryB, BasePrice: 5000}
	playerC := auction.Player{ID: "pc", Category: auction.CategoryC, BasePrice: 3000}

	nearCap := auction.Team{
		ID: "t2", Budget: 46000, Spent: 74000,
		Counts: auction.Tally{A: 3, B: 2},
		Spend:  auction.Tally{A: 60000, B: 14000},
	}
	thin := auction.Team{
		ID: "t3", Budget: 40000, Spent: 80000,
		Counts: auction.Tally{C: 1},
		Spend:  auction.Tally{C: 80000},
	}

	tests := []struct {
		name    string
		team    auction.Team
		amount  int
		player  auction.Player
		wantErr error
	}{
		{"fresh team on A", fresh, 20000, playerA, nil},
		{"over budget", fresh, 130000, playerA, auction.ErrInsufficientBudget},
		{"combined cap on B", nearCap, 2000, playerB, auction.ErrCombinedCap},
		{"combined cap ignores C", nearCap, 5000, playerC, nil},
		{"budget checked before cap", nearCap, 50000, playerB, auction.ErrInsufficientBudget},
		{"safety net shortfall", thin, 3000, playerC, auction.ErrSafetyNet},
		{"exactly the reserve", auction.Team{ID: "t4", Budget: 45000, Spent: 75000, Spend: auction.Tally{C: 75000}, Counts: auction.Tally{C: 1}}, 6000, playerC, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.CanTeamBid(tt.team, tt.amount, tt.player)
			if tt.wantErr == nil {
				check.NoError(t, err)
				return
			}
			check.True(t, errors.Is(err, tt.wantErr))
			check.Equal(t, auction.KindValidation, auction.KindOf(err))
		})
	}
}

func TestCanTeamBid_SafetyNetReason(t *testing.T) {
	r := auction.DefaultRules()
	team := auction.Team{ID: "t1", Budget: 40000, Spent: 80000, Counts: auction.Tally{C: 1}, Spend: auction.Tally{C: 80000}}

	err := r.CanTeamBid(team, 3000, auction.Player{Category: auction.CategoryC, BasePrice: 3000})
	assert.Error(t, err)
	// 13 slots left after this buy need 39000; 37000 would remain.
	check.Equal(t, "safety net: 2000 short of the 39000 reserve for 13 remaining slots", err.Error())
}

func TestReserve(t *testing.T) {
	r := auction.DefaultRules()
	slots, reserve := r.Reserve(1)
	check.Equal(t, 14, slots)
	check.Equal(t, 42000, reserve)

	slots, reserve = r.Reserve(20)
	check.Equal(t, 0, slots)
	check.Equal(t, 0, reserve)
}
