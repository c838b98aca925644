// Package roster derives read models from an auction snapshot: team rosters,
// league standings and player search. Nothing here mutates the snapshot.
package roster

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

// TeamView is one team with its roster and what it can still afford.
type TeamView struct {
	Team    auction.Team     `json:"team"`
	Players []auction.Player `json:"players"`
	// RemainingSlots is how many players the team still needs to reach the
	// minimum squad size, and Reserve what filling them at base price costs.
	RemainingSlots int `json:"remaining_slots"`
	Reserve        int `json:"reserve"`
	// CombinedSpend is the A+B spend counted against CombinedCap.
	CombinedSpend int `json:"combined_spend"`
	CombinedCap   int `json:"combined_cap"`
	// MaxBid is the largest single bid the team could place on a player of
	// each category right now.
	MaxBid auction.Tally `json:"max_bid"`
}

// TeamRoster builds the view of teamID. Players are ordered by category and
// then by name.
func TeamRoster(s *auction.Snapshot, r auction.Rules, teamID string) (TeamView, error) {
	t := s.Team(teamID)
	if t == nil {
		return TeamView{}, fmt.Errorf("team %q: %w", teamID, auction.ErrTeamNotFound)
	}
	return view(s, r, *t), nil
}

func view(s *auction.Snapshot, r auction.Rules, t auction.Team) TeamView {
	players := s.Roster(t.ID)
	slices.SortFunc(players, func(a, b auction.Player) int {
		return cmp.Or(cmp.Compare(a.Category, b.Category), cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	slots, reserve := r.Reserve(t.RosterSize())
	v := TeamView{
		Team:           t,
		Players:        players,
		RemainingSlots: slots,
		Reserve:        reserve,
		CombinedSpend:  t.Spend.A + t.Spend.B,
		CombinedCap:    r.CombinedCap,
	}
	_, afterNext := r.Reserve(t.RosterSize() + 1)
	open := max(0, min(t.Budget, t.Budget-afterNext))
	capLeft := max(0, r.CombinedCap-v.CombinedSpend)
	v.MaxBid = auction.Tally{A: min(open, capLeft), B: min(open, capLeft), C: open}
	return v
}

// Sale is a sold player with the team that bought them.
type Sale struct {
	Player auction.Player `json:"player"`
	TeamID string         `json:"team_id"`
	Team   string         `json:"team"`
}

// Standings summarises the league.
type Standings struct {
	Teams      []TeamView    `json:"teams"`
	TopSale    *Sale         `json:"top_sale,omitempty"`
	TopSpender *auction.Team `json:"top_spender,omitempty"`
	Sold       int           `json:"sold"`
	Unsold     int           `json:"unsold"`
	Available  int           `json:"available"`
	Phase      auction.Phase `json:"phase"`
	Version    int64         `json:"version"`
}

// League computes the standings. Teams keep snapshot order. Ties for the
// top sale and top spender go to whichever comes first.
func League(s *auction.Snapshot, r auction.Rules) Standings {
	out := Standings{Phase: s.State.Phase, Version: s.Version}
	for _, t := range s.Teams {
		out.Teams = append(out.Teams, view(s, r, t))
		if t.Spent > 0 && (out.TopSpender == nil || t.Spent > out.TopSpender.Spent) {
			top := t
			out.TopSpender = &top
		}
	}
	for _, p := range s.Players {
		switch p.Status {
		case auction.StatusSold:
			out.Sold++
			if out.TopSale == nil || p.SoldPrice > out.TopSale.Player.SoldPrice {
				sale := Sale{Player: p, TeamID: p.SoldToTeamID}
				if t := s.Team(p.SoldToTeamID); t != nil {
					sale.Team = t.Name
				}
				out.TopSale = &sale
			}
		case auction.StatusUnsold:
			out.Unsold++
		default:
			out.Available++
		}
	}
	return out
}
