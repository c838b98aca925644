package commands

import (
	"errors"
	"fmt"
	"strings"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/coordinator"
	"github.com/muktadirmaashif/itcf-2026/internal/roster"
)

var errNotLoaded = errors.New("auction state not loaded yet")

// failure turns an error into a reply. Rejections carry their own reason;
// infrastructure errors are kept vague.
func failure(err error) string {
	var rej *auction.Rejection
	switch {
	case errors.As(err, &rej):
		return "Refused: " + rej.Reason + "."
	case errors.Is(err, coordinator.ErrConflict):
		return "The floor is busy, try again."
	case errors.Is(err, coordinator.ErrSyncFailure), errors.Is(err, errNotLoaded):
		return "The auction is unavailable right now, try again shortly."
	}
	return "Something went wrong."
}

func formatPlayer(p auction.Player) string {
	if p.Role == "" {
		return fmt.Sprintf("**%s** (%s)", p.Name, p.Category)
	}
	return fmt.Sprintf("**%s** (%s, %s)", p.Name, p.Category, p.Role)
}

func teamName(s *auction.Snapshot, id string) string {
	if t := s.Team(id); t != nil {
		return t.Name
	}
	return id
}

func formatStatus(s *auction.Snapshot, r auction.Rules) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Phase: **%s**\n", s.State.Phase)
	p := s.CurrentPlayer()
	switch {
	case p == nil:
		fmt.Fprintf(&b, "No lot on the floor. %d left to draw.", len(s.Candidates(s.State.Phase)))
	case s.State.CurrentBidderTeamID == "":
		fmt.Fprintf(&b, "On the floor: %s, opening at **%d**.", formatPlayer(*p), s.State.CurrentBidPrice)
	default:
		next := r.NextMinBid(s.State.CurrentBidPrice, p.Category, s.State.CurrentBidderTeamID)
		fmt.Fprintf(&b, "On the floor: %s. **%s** leads at **%d**, next bid %d.",
			formatPlayer(*p), teamName(s, s.State.CurrentBidderTeamID), s.State.CurrentBidPrice, next)
	}
	return b.String()
}

func formatRoster(v roster.TeamView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**: purse %d, spent %d, %d players\n", v.Team.Name, v.Team.Budget, v.Team.Spent, len(v.Players))
	fmt.Fprintf(&b, "A+B spend %d/%d, %d slots to fill (reserve %d)\n", v.CombinedSpend, v.CombinedCap, v.RemainingSlots, v.Reserve)
	fmt.Fprintf(&b, "Max bid: A %d, B %d, C %d\n", v.MaxBid.A, v.MaxBid.B, v.MaxBid.C)
	for _, p := range v.Players {
		fmt.Fprintf(&b, "- %s %s: %d\n", p.Category, p.Name, p.SoldPrice)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatMatches(s *auction.Snapshot, matches []roster.Match) string {
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		p := m.Player
		line := fmt.Sprintf("`%s` %s: %s", p.ID, formatPlayer(p), p.Status)
		if p.Status == auction.StatusSold {
			line += fmt.Sprintf(" to %s for %d", teamName(s, p.SoldToTeamID), p.SoldPrice)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
