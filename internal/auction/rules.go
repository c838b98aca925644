package auction

// Increment is a single-threshold step schedule for one category.
type Increment struct {
	Step      int
	HighStep  int
	Threshold int
}

// Rules holds the configured constants every transition depends on.
type Rules struct {
	Purse         int
	BasePrices    map[Category]int
	CombinedCap   int
	MinSquadSize  int
	InterestLimit int
	Increments    map[Category]Increment
}

// DefaultRules returns the league's standard configuration.
func DefaultRules() Rules {
	return Rules{
		Purse: 120000,
		BasePrices: map[Category]int{
			CategoryA: 10000,
			CategoryB: 5000,
			CategoryC: 3000,
		},
		CombinedCap:   75000,
		MinSquadSize:  15,
		InterestLimit: 20,
		Increments: map[Category]Increment{
			CategoryA: {Step: 1000, HighStep: 2000, Threshold: 25000},
			CategoryB: {Step: 500, HighStep: 1000, Threshold: 8000},
			CategoryC: {Step: 500, HighStep: 1000, Threshold: 8000},
		},
	}
}

// BasePrice returns the configured base price for c.
func (r Rules) BasePrice(c Category) int { return r.BasePrices[c] }

// NextMinBid returns the lowest acceptable next bid. With no bidder on the
// lot the opening ask is the current price itself.
func (r Rules) NextMinBid(price int, c Category, bidderTeamID string) int {
	if bidderTeamID == "" {
		return price
	}
	inc := r.Increments[c]
	if price >= inc.Threshold {
		return price + inc.HighStep
	}
	return price + inc.Step
}

// Reserve returns what a team with rosterSize players must keep back to fill
// the rest of the minimum squad at the cheapest base price.
func (r Rules) Reserve(rosterSize int) (slots, reserve int) {
	slots = max(0, r.MinSquadSize-rosterSize)
	return slots, slots * r.BasePrice(CategoryC)
}

// CanTeamBid checks budget, then the combined A+B cap, then the squad
// safety net. The first failing check is returned.
func (r Rules) CanTeamBid(team Team, amount int, player Player) error {
	if team.Budget < amount {
		return withReason(ErrInsufficientBudget, "insufficient budget: %d available, %d bid", team.Budget, amount)
	}
	if player.Category == CategoryA || player.Category == CategoryB {
		if combined := team.Spend.A + team.Spend.B + amount; combined > r.CombinedCap {
			return withReason(ErrCombinedCap, "combined category A+B cap exceeded: %d > %d", combined, r.CombinedCap)
		}
	}
	slots, reserve := r.Reserve(team.RosterSize() + 1)
	if after := team.Budget - amount; after < reserve {
		return withReason(ErrSafetyNet, "safety net: %d short of the %d reserve for %d remaining slots",
			reserve-after, reserve, slots)
	}
	return nil
}
