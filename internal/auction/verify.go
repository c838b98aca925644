package auction

import "fmt"

// Violation is a broken invariant found in a snapshot.
type Violation struct {
	Entity string
	ID     string
	Detail string
}

func (v Violation) String() string {
	if v.ID == "" {
		return fmt.Sprintf("%s: %s", v.Entity, v.Detail)
	}
	return fmt.Sprintf("%s %s: %s", v.Entity, v.ID, v.Detail)
}

// Verify checks the finance, roster and floor invariants of s.
func Verify(s *Snapshot, r Rules) []Violation {
	var out []Violation
	add := func(entity, id, format string, args ...any) {
		out = append(out, Violation{Entity: entity, ID: id, Detail: fmt.Sprintf(format, args...)})
	}

	rosters := make(map[string]int, len(s.Teams))
	for _, p := range s.Players {
		if p.BasePrice != r.BasePrice(p.Category) {
			add("player", p.ID, "base price %d does not match category %s", p.BasePrice, p.Category)
		}
		if p.OriginalCategory.Valid() && p.Category.rank() < p.OriginalCategory.rank() {
			add("player", p.ID, "category %s above original %s", p.Category, p.OriginalCategory)
		}
		switch p.Status {
		case StatusSold:
			if s.Team(p.SoldToTeamID) == nil {
				add("player", p.ID, "sold to unknown team %q", p.SoldToTeamID)
			}
			if p.SoldPrice < p.BasePrice {
				add("player", p.ID, "sold price %d below base %d", p.SoldPrice, p.BasePrice)
			}
			rosters[p.SoldToTeamID]++
		default:
			if p.SoldPrice != 0 || p.SoldToTeamID != "" {
				add("player", p.ID, "status %s carries a sale", p.Status)
			}
		}
	}

	for _, t := range s.Teams {
		if t.Budget+t.Spent != r.Purse {
			add("team", t.ID, "budget %d + spent %d != purse %d", t.Budget, t.Spent, r.Purse)
		}
		if t.Budget < 0 {
			add("team", t.ID, "negative budget %d", t.Budget)
		}
		if t.Spend.Total() != t.Spent {
			add("team", t.ID, "category spend %d != spent %d", t.Spend.Total(), t.Spent)
		}
		if t.Counts.Total() != rosters[t.ID] {
			add("team", t.ID, "category counts %d != roster %d", t.Counts.Total(), rosters[t.ID])
		}
	}

	st := s.State
	if st.LotActive() {
		switch p := s.CurrentPlayer(); {
		case p == nil:
			add("state", "", "lot %q not found", st.CurrentPlayerID)
		case p.Status == StatusSold:
			add("state", "", "lot %q is already sold", p.ID)
		}
		if st.CurrentBidderTeamID != "" && s.Team(st.CurrentBidderTeamID) == nil {
			add("state", "", "bidder %q not found", st.CurrentBidderTeamID)
		}
	} else if st.CurrentBidPrice != 0 || st.CurrentBidderTeamID != "" {
		add("state", "", "bid %d by %q without a lot", st.CurrentBidPrice, st.CurrentBidderTeamID)
	}
	return out
}
