package auction

import (
	"slices"
	"strings"

	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

// ClearHistory empties the floor log. Nothing else changes.
func (e *Engine) ClearHistory(s *Snapshot) error {
	if len(s.State.History) == 0 {
		return nil
	}
	s.State.History = nil
	e.record(s, event.HistoryCleared, struct{}{})
	return nil
}

// Reset returns every player to the pool in its original category, gives
// every team its full purse back and puts the auction back into SETUP.
// Records are kept.
func (e *Engine) Reset(s *Snapshot) error {
	for i := range s.Players {
		p := &s.Players[i]
		if p.OriginalCategory.Valid() {
			p.Category = p.OriginalCategory
		}
		p.BasePrice = e.Rules.BasePrice(p.Category)
		p.Status = StatusAvailable
		p.SoldPrice = 0
		p.SoldToTeamID = ""
	}
	for i := range s.Teams {
		t := &s.Teams[i]
		t.Budget = e.Rules.Purse
		t.Spent = 0
		t.Counts = Tally{}
		t.Spend = Tally{}
	}
	s.State = State{Phase: PhaseSetup}
	s.replacePlayers = true
	s.replaceTeams = true
	e.record(s, event.AuctionReset, struct{}{})
	return nil
}

// ReplacePlayers swaps in a new player set. Players arrive with their
// category; base prices are derived and the original category is kept for
// reset. SOLD players must name an existing team and pay at least their base
// price. Team finances are rebuilt from the new rosters.
func (e *Engine) ReplacePlayers(s *Snapshot, players []Player) error {
	next := make([]Player, 0, len(players))
	seen := make(map[string]struct{}, len(players))
	for i, p := range players {
		p.ID = strings.TrimSpace(p.ID)
		p.Name = strings.TrimSpace(p.Name)
		if p.ID == "" || p.Name == "" {
			return withReason(ErrInvalidImport, "player %d: id and name are required", i+1)
		}
		if _, dup := seen[p.ID]; dup {
			return withReason(ErrInvalidImport, "player %q appears twice", p.ID)
		}
		seen[p.ID] = struct{}{}
		if !p.Category.Valid() {
			return withReason(ErrInvalidImport, "player %q: unknown category %q", p.ID, p.Category)
		}
		if !p.OriginalCategory.Valid() || p.OriginalCategory.rank() > p.Category.rank() {
			p.OriginalCategory = p.Category
		}
		p.BasePrice = e.Rules.BasePrice(p.Category)

		switch p.Status {
		case "":
			p.Status = StatusAvailable
		case StatusAvailable, StatusUnsold, StatusSold:
		default:
			return withReason(ErrInvalidImport, "player %q: unknown status %q", p.ID, p.Status)
		}
		if p.Status == StatusSold {
			if s.Team(p.SoldToTeamID) == nil {
				return withReason(ErrInvalidImport, "player %q: sold to unknown team %q", p.ID, p.SoldToTeamID)
			}
			if p.SoldPrice < p.BasePrice {
				return withReason(ErrInvalidImport, "player %q: sold below base price", p.ID)
			}
		} else {
			p.SoldPrice = 0
			p.SoldToTeamID = ""
		}
		next = append(next, p)
	}

	teams, err := e.rebuildFinances(s.Teams, next)
	if err != nil {
		return err
	}
	var lotBase int
	if cur := s.CurrentPlayer(); cur != nil {
		lotBase = cur.BasePrice
	}
	s.Players = next
	s.Teams = teams
	s.replacePlayers = true
	s.replaceTeams = true

	// A lot whose player is gone or no longer available leaves the floor. One
	// that survives with a different base price reopens at it with no bidder.
	if s.State.LotActive() {
		switch cur := s.CurrentPlayer(); {
		case cur == nil || cur.Status != StatusAvailable:
			s.State.clearLot()
		case cur.BasePrice != lotBase:
			s.State.CurrentBidPrice = cur.BasePrice
			s.State.CurrentBidderTeamID = ""
		}
	}
	s.State.LastResolution = nil
	s.pruneInterests()
	e.record(s, event.PlayersImported, event.ImportData{Count: len(next)})
	return nil
}

// ReplaceTeams swaps in a new team set. Teams that stay keep their rosters;
// players bought by teams that are gone return to the pool. Finances are
// rebuilt from the rosters.
func (e *Engine) ReplaceTeams(s *Snapshot, seeds []TeamSeed) error {
	next := make([]Team, 0, len(seeds))
	seen := make(map[string]struct{}, len(seeds))
	for i, seed := range seeds {
		id, name := strings.TrimSpace(seed.ID), strings.TrimSpace(seed.Name)
		if id == "" || name == "" {
			return withReason(ErrInvalidImport, "team %d: id and name are required", i+1)
		}
		if _, dup := seen[id]; dup {
			return withReason(ErrInvalidImport, "team %q appears twice", id)
		}
		seen[id] = struct{}{}
		next = append(next, Team{ID: id, Name: name, Captain: strings.TrimSpace(seed.Captain)})
	}

	players := slices.Clone(s.Players)
	var released []string
	for i := range players {
		p := &players[i]
		if p.Status != StatusSold {
			continue
		}
		if _, ok := seen[p.SoldToTeamID]; ok {
			continue
		}
		p.Status = StatusAvailable
		p.SoldPrice = 0
		p.SoldToTeamID = ""
		released = append(released, p.ID)
	}

	teams, err := e.rebuildFinances(next, players)
	if err != nil {
		return err
	}
	s.Players = players
	s.Teams = teams
	for _, id := range released {
		s.touchPlayer(id)
	}
	s.replaceTeams = true

	if s.State.CurrentBidderTeamID != "" && s.Team(s.State.CurrentBidderTeamID) == nil {
		s.State.CurrentBidderTeamID = ""
		if cur := s.CurrentPlayer(); cur != nil {
			s.State.CurrentBidPrice = cur.BasePrice
		}
	}
	s.State.LastResolution = nil
	s.pruneInterests()
	e.record(s, event.TeamsImported, event.ImportData{Count: len(next), Released: len(released)})
	return nil
}

// rebuildFinances returns a copy of teams with finances recomputed from the
// SOLD players.
func (e *Engine) rebuildFinances(teams []Team, players []Player) ([]Team, error) {
	teams = slices.Clone(teams)
	idx := make(map[string]*Team, len(teams))
	for i := range teams {
		t := &teams[i]
		t.Budget = e.Rules.Purse
		t.Spent = 0
		t.Counts = Tally{}
		t.Spend = Tally{}
		idx[t.ID] = t
	}
	for _, p := range players {
		if p.Status != StatusSold {
			continue
		}
		t, ok := idx[p.SoldToTeamID]
		if !ok {
			continue
		}
		t.Budget -= p.SoldPrice
		t.Spent += p.SoldPrice
		t.Counts.Add(p.Category, 1)
		t.Spend.Add(p.Category, p.SoldPrice)
	}
	for _, t := range teams {
		if t.Budget < 0 {
			return nil, withReason(ErrInvalidImport, "team %q would be %d over its purse", t.ID, -t.Budget)
		}
	}
	return teams, nil
}

// pruneInterests drops markers for players or teams that no longer exist.
func (s *Snapshot) pruneInterests() {
	for pid, teams := range s.State.Interests {
		if s.Player(pid) == nil {
			delete(s.State.Interests, pid)
			continue
		}
		teams = slices.DeleteFunc(teams, func(id string) bool { return s.Team(id) == nil })
		if len(teams) == 0 {
			delete(s.State.Interests, pid)
			continue
		}
		s.State.Interests[pid] = teams
	}
}
