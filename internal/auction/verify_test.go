package auction_test

import (
	"strings"
	"testing"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

func TestVerify(t *testing.T) {
	rules := auction.DefaultRules()
	tests := []struct {
		name   string
		mutate func(s *auction.Snapshot)
		want   string
	}{
		{
			name:   "clean",
			mutate: func(*auction.Snapshot) {},
		},
		{
			name:   "purse leak",
			mutate: func(s *auction.Snapshot) { s.Team("t1").Budget -= 1 },
			want:   "budget 119999 + spent 0 != purse 120000",
		},
		{
			name: "category spend drift",
			mutate: func(s *auction.Snapshot) {
				s.Team("t1").Budget, s.Team("t1").Spent = 110000, 10000
			},
			want: "category spend 0 != spent 10000",
		},
		{
			name: "sale to missing team",
			mutate: func(s *auction.Snapshot) {
				p := s.Player("pa")
				p.Status, p.SoldPrice, p.SoldToTeamID = auction.StatusSold, 10000, "t9"
			},
			want: `sold to unknown team "t9"`,
		},
		{
			name:   "base price drift",
			mutate: func(s *auction.Snapshot) { s.Player("pb").BasePrice = 1 },
			want:   "base price 1 does not match category B",
		},
		{
			name: "promoted player",
			mutate: func(s *auction.Snapshot) {
				p := s.Player("pc")
				p.Category, p.BasePrice = auction.CategoryA, 10000
			},
			want: "category A above original C",
		},
		{
			name:   "bid without lot",
			mutate: func(s *auction.Snapshot) { s.State.CurrentBidPrice = 500 },
			want:   "without a lot",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := seeded(t, newEngine())
			tt.mutate(s)

			got := auction.Verify(s, rules)
			if tt.want == "" {
				if len(got) != 0 {
					t.Fatalf("Verify() = %v, want none", got)
				}
				return
			}
			for _, v := range got {
				if strings.Contains(v.String(), tt.want) {
					return
				}
			}
			t.Errorf("Verify() = %v, want a violation containing %q", got, tt.want)
		})
	}
}
