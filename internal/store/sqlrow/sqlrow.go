// Package sqlrow maps auction entities to and from the relational schema
// shared by the SQL store drivers.
package sqlrow

import (
	"encoding/json"
	"fmt"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

// StateRow is the single auction_state row. History, the undo record and the
// interest markers are stored as JSON documents.
type StateRow struct {
	Version             int64  `db:"version"`
	Phase               string `db:"phase"`
	CurrentPlayerID     string `db:"current_player_id"`
	CurrentBidPrice     int    `db:"current_bid_price"`
	CurrentBidderTeamID string `db:"current_bidder_team_id"`
	History             []byte `db:"history"`
	LastResolution      []byte `db:"last_resolution"`
	Interests           []byte `db:"interests"`
	InterestLocked      bool   `db:"interest_locked"`
}

// FromState encodes st as the row for version.
func FromState(version int64, st auction.State) (StateRow, error) {
	history := st.History
	if history == nil {
		history = []auction.HistoryEntry{}
	}
	h, err := json.Marshal(history)
	if err != nil {
		return StateRow{}, fmt.Errorf("encoding history: %w", err)
	}
	var lr []byte
	if st.LastResolution != nil {
		if lr, err = json.Marshal(st.LastResolution); err != nil {
			return StateRow{}, fmt.Errorf("encoding last resolution: %w", err)
		}
	}
	interests := st.Interests
	if interests == nil {
		interests = map[string][]string{}
	}
	in, err := json.Marshal(interests)
	if err != nil {
		return StateRow{}, fmt.Errorf("encoding interests: %w", err)
	}
	return StateRow{
		Version:             version,
		Phase:               string(st.Phase),
		CurrentPlayerID:     st.CurrentPlayerID,
		CurrentBidPrice:     st.CurrentBidPrice,
		CurrentBidderTeamID: st.CurrentBidderTeamID,
		History:             h,
		LastResolution:      lr,
		Interests:           in,
		InterestLocked:      st.InterestLocked,
	}, nil
}

// State decodes the row.
func (r StateRow) State() (auction.State, error) {
	st := auction.State{
		Phase:               auction.Phase(r.Phase),
		CurrentPlayerID:     r.CurrentPlayerID,
		CurrentBidPrice:     r.CurrentBidPrice,
		CurrentBidderTeamID: r.CurrentBidderTeamID,
		InterestLocked:      r.InterestLocked,
	}
	if len(r.History) > 0 {
		if err := json.Unmarshal(r.History, &st.History); err != nil {
			return st, fmt.Errorf("decoding history: %w", err)
		}
	}
	if len(r.LastResolution) > 0 {
		st.LastResolution = &auction.LastResolution{}
		if err := json.Unmarshal(r.LastResolution, st.LastResolution); err != nil {
			return st, fmt.Errorf("decoding last resolution: %w", err)
		}
	}
	if len(r.Interests) > 0 {
		if err := json.Unmarshal(r.Interests, &st.Interests); err != nil {
			return st, fmt.Errorf("decoding interests: %w", err)
		}
		if len(st.Interests) == 0 {
			st.Interests = nil
		}
	}
	return st, nil
}

// PlayerRow is one row of the players table.
type PlayerRow struct {
	ID               string `db:"id"`
	Position         int    `db:"position"`
	Name             string `db:"name"`
	Role             string `db:"role"`
	Category         string `db:"category"`
	OriginalCategory string `db:"original_category"`
	BasePrice        int    `db:"base_price"`
	Status           string `db:"status"`
	SoldPrice        int    `db:"sold_price"`
	SoldToTeamID     string `db:"sold_to_team_id"`
}

// FromPlayer encodes p at position.
func FromPlayer(position int, p auction.Player) PlayerRow {
	return PlayerRow{
		ID:               p.ID,
		Position:         position,
		Name:             p.Name,
		Role:             p.Role,
		Category:         string(p.Category),
		OriginalCategory: string(p.OriginalCategory),
		BasePrice:        p.BasePrice,
		Status:           string(p.Status),
		SoldPrice:        p.SoldPrice,
		SoldToTeamID:     p.SoldToTeamID,
	}
}

// Player decodes the row.
func (r PlayerRow) Player() auction.Player {
	return auction.Player{
		ID:               r.ID,
		Name:             r.Name,
		Role:             r.Role,
		Category:         auction.Category(r.Category),
		OriginalCategory: auction.Category(r.OriginalCategory),
		BasePrice:        r.BasePrice,
		Status:           auction.Status(r.Status),
		SoldPrice:        r.SoldPrice,
		SoldToTeamID:     r.SoldToTeamID,
	}
}

// TeamRow is one row of the teams table. Per-category tallies are columns.
type TeamRow struct {
	ID       string `db:"id"`
	Position int    `db:"position"`
	Name     string `db:"name"`
	Captain  string `db:"captain"`
	Budget   int    `db:"budget"`
	Spent    int    `db:"spent"`
	CountA   int    `db:"count_a"`
	CountB   int    `db:"count_b"`
	CountC   int    `db:"count_c"`
	SpendA   int    `db:"spend_a"`
	SpendB   int    `db:"spend_b"`
	SpendC   int    `db:"spend_c"`
}

// FromTeam encodes t at position.
func FromTeam(position int, t auction.Team) TeamRow {
	return TeamRow{
		ID:       t.ID,
		Position: position,
		Name:     t.Name,
		Captain:  t.Captain,
		Budget:   t.Budget,
		Spent:    t.Spent,
		CountA:   t.Counts.A,
		CountB:   t.Counts.B,
		CountC:   t.Counts.C,
		SpendA:   t.Spend.A,
		SpendB:   t.Spend.B,
		SpendC:   t.Spend.C,
	}
}

// Team decodes the row.
func (r TeamRow) Team() auction.Team {
	return auction.Team{
		ID:      r.ID,
		Name:    r.Name,
		Captain: r.Captain,
		Budget:  r.Budget,
		Spent:   r.Spent,
		Counts:  auction.Tally{A: r.CountA, B: r.CountB, C: r.CountC},
		Spend:   auction.Tally{A: r.SpendA, B: r.SpendB, C: r.SpendC},
	}
}

// CheckVersions verifies that c's events continue the log at expected and
// returns the version the commit moves to.
func CheckVersions(expected int64, c auction.Changes) (int64, error) {
	for i, e := range c.Events {
		if want := expected + int64(i) + 1; e.Version != want {
			return 0, fmt.Errorf("event %d has version %d, want %d", i, e.Version, want)
		}
	}
	return expected + int64(len(c.Events)), nil
}
