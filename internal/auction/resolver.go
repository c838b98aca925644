package auction

import "github.com/muktadirmaashif/itcf-2026/internal/event"

// activeLot returns the player on the floor, checking that it is the one the
// caller meant when playerID is set.
func (s *Snapshot) activeLot(playerID string) (*Player, error) {
	if !s.State.LotActive() {
		return nil, ErrNoActiveLot
	}
	if playerID != "" && playerID != s.State.CurrentPlayerID {
		return nil, ErrLotMismatch
	}
	p := s.CurrentPlayer()
	if p == nil {
		return nil, withReason(ErrPlayerNotFound, "player %q on the floor not found", s.State.CurrentPlayerID)
	}
	return p, nil
}

// PlaceBid raises the live bid on the active lot to amount for teamID. The
// current leader cannot outbid itself; the first bid may open at the base
// price, every later bid must reach the next minimum.
func (e *Engine) PlaceBid(s *Snapshot, teamID string, amount int) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	p, err := s.activeLot("")
	if err != nil {
		return err
	}
	team := s.Team(teamID)
	if team == nil {
		return withReason(ErrTeamNotFound, "team %q not found", teamID)
	}
	if s.State.CurrentBidderTeamID == teamID {
		return ErrSelfOutbid
	}

	minBid := e.Rules.NextMinBid(s.State.CurrentBidPrice, p.Category, s.State.CurrentBidderTeamID)
	if amount < minBid {
		return withReason(ErrBidTooLow, "bid %d is below the minimum of %d", amount, minBid)
	}
	if s.State.CurrentBidderTeamID != "" && amount <= s.State.CurrentBidPrice {
		return withReason(ErrBidTooLow, "bid %d does not beat the current %d", amount, s.State.CurrentBidPrice)
	}
	if err := e.Rules.CanTeamBid(*team, amount, *p); err != nil {
		return err
	}

	s.State.CurrentBidPrice = amount
	s.State.CurrentBidderTeamID = teamID
	e.history(s, HistoryBid, teamID, amount, p)
	e.record(s, event.BidPlaced, event.BidPlacedData{
		PlayerID: p.ID,
		TeamID:   teamID,
		Amount:   amount,
	})
	return nil
}

// Sold awards the active lot to the current bidder at the current price.
// An empty playerID resolves whatever lot is on the floor.
func (e *Engine) Sold(s *Snapshot, playerID string) error {
	p, err := s.activeLot(playerID)
	if err != nil {
		return err
	}
	if s.State.CurrentBidderTeamID == "" {
		return ErrNoBidder
	}
	team := s.Team(s.State.CurrentBidderTeamID)
	if team == nil {
		return withReason(ErrTeamNotFound, "winning team %q not found", s.State.CurrentBidderTeamID)
	}
	price := s.State.CurrentBidPrice
	if team.Budget < price {
		return withReason(ErrInsufficientBudget, "insufficient budget: %d available, %d owed", team.Budget, price)
	}

	prevTeam := *team
	s.State.LastResolution = &LastResolution{Kind: ResolvedSold, Player: *p, Team: &prevTeam}

	p.Status = StatusSold
	p.SoldPrice = price
	p.SoldToTeamID = team.ID
	team.Budget -= price
	team.Spent += price
	team.Counts.Add(p.Category, 1)
	team.Spend.Add(p.Category, price)
	s.touchPlayer(p.ID)
	s.touchTeam(team.ID)

	s.State.clearLot()
	e.history(s, HistorySold, team.ID, price, p)
	e.record(s, event.LotSold, event.LotSoldData{
		PlayerID: p.ID,
		TeamID:   team.ID,
		Price:    price,
		Category: string(p.Category),
	})
	return nil
}

// Unsold passes on the active lot. A or B players drop one category and
// return to the pool at the new base price; C players become UNSOLD.
func (e *Engine) Unsold(s *Snapshot, playerID string) error {
	p, err := s.activeLot(playerID)
	if err != nil {
		return err
	}

	s.State.LastResolution = &LastResolution{Kind: ResolvedUnsold, Player: *p}

	from := p.Category
	var demotedTo Category
	if next, ok := from.Demoted(); ok {
		demotedTo = next
		p.Category = next
		p.BasePrice = e.Rules.BasePrice(next)
		p.Status = StatusAvailable
	} else {
		p.Status = StatusUnsold
	}
	p.SoldPrice = 0
	p.SoldToTeamID = ""
	s.touchPlayer(p.ID)

	s.State.clearLot()
	e.history(s, HistoryUnsold, SystemTeamID, 0, p)
	e.record(s, event.LotUnsold, event.LotUnsoldData{
		PlayerID:  p.ID,
		Category:  string(from),
		DemotedTo: string(demotedTo),
	})
	return nil
}

// Undo reverses the most recent resolution and puts that player back on the
// floor at its base price with no bidder. It can be used once per
// resolution and is refused while another lot, or a bid on this one, is live.
func (e *Engine) Undo(s *Snapshot) (*Player, error) {
	lr := s.State.LastResolution
	if lr == nil {
		return nil, ErrNothingToUndo
	}
	if s.State.LotActive() &&
		(s.State.CurrentPlayerID != lr.Player.ID || s.State.CurrentBidderTeamID != "") {
		return nil, ErrLotActive
	}
	p := s.Player(lr.Player.ID)
	if p == nil {
		return nil, withReason(ErrPlayerNotFound, "player %q not found", lr.Player.ID)
	}

	undone := event.LotUndoneData{PlayerID: p.ID, Resolution: string(lr.Kind)}
	if lr.Kind == ResolvedSold {
		team := s.Team(p.SoldToTeamID)
		if team == nil || lr.Team == nil || lr.Team.ID != team.ID {
			return nil, withReason(ErrTeamNotFound, "team %q of the sale not found", p.SoldToTeamID)
		}
		undone.TeamID = team.ID
		undone.Refund = p.SoldPrice
		team.Budget = lr.Team.Budget
		team.Spent = lr.Team.Spent
		team.Counts = lr.Team.Counts
		team.Spend = lr.Team.Spend
		s.touchTeam(team.ID)
	}

	*p = lr.Player
	s.touchPlayer(p.ID)
	s.State.CurrentPlayerID = p.ID
	s.State.CurrentBidPrice = p.BasePrice
	s.State.CurrentBidderTeamID = ""
	s.State.LastResolution = nil
	e.record(s, event.LotUndone, undone)

	restored := *p
	return &restored, nil
}

// Withdraw takes the active lot off the floor without resolving it.
func (e *Engine) Withdraw(s *Snapshot) error {
	p, err := s.activeLot("")
	if err != nil {
		return err
	}
	s.State.clearLot()
	e.record(s, event.LotWithdrawn, event.LotWithdrawnData{PlayerID: p.ID})
	return nil
}
