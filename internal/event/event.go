package event

import (
	"encoding/json"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	LotDrawn     Type = "lot.drawn"
	BidPlaced    Type = "lot.bid_placed"
	LotSold      Type = "lot.sold"
	LotUnsold    Type = "lot.unsold"
	LotUndone    Type = "lot.undone"
	LotWithdrawn Type = "lot.withdrawn"

	PhaseChanged   Type = "phase.changed"
	HistoryCleared Type = "history.cleared"
	AuctionReset   Type = "auction.reset"

	PlayersImported Type = "players.imported"
	TeamsImported   Type = "teams.imported"

	InterestToggled     Type = "interest.toggled"
	InterestLockChanged Type = "interest.lock_changed"
)

// Event represents a single committed domain event. Version is the aggregate
// version the event moved the auction to, so events of one aggregate are
// totally ordered by commit.
type Event struct {
	ID          string          `json:"id" db:"id"`
	AggregateID string          `json:"aggregate_id" db:"aggregate_id"`
	Type        Type            `json:"type" db:"type"`
	Data        json.RawMessage `json:"data" db:"data"`
	Version     int64           `json:"version" db:"version"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}

// LotDrawnData is the payload for LotDrawn events.
type LotDrawnData struct {
	PlayerID  string `json:"player_id"`
	Phase     string `json:"phase"`
	BasePrice int    `json:"base_price"`
}

// BidPlacedData is the payload for BidPlaced events.
type BidPlacedData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Amount   int    `json:"amount"`
}

// LotSoldData is the payload for LotSold events.
type LotSoldData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Price    int    `json:"price"`
	Category string `json:"category"`
}

// LotUnsoldData is the payload for LotUnsold events. DemotedTo is empty when
// the player was already in the lowest category.
type LotUnsoldData struct {
	PlayerID  string `json:"player_id"`
	Category  string `json:"category"`
	DemotedTo string `json:"demoted_to,omitempty"`
}

// LotUndoneData is the payload for LotUndone events.
type LotUndoneData struct {
	PlayerID   string `json:"player_id"`
	Resolution string `json:"resolution"`
	TeamID     string `json:"team_id,omitempty"`
	Refund     int    `json:"refund,omitempty"`
}

// LotWithdrawnData is the payload for LotWithdrawn events.
type LotWithdrawnData struct {
	PlayerID string `json:"player_id"`
}

// PhaseChangedData is the payload for PhaseChanged events.
type PhaseChangedData struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Exhausted bool   `json:"exhausted"`
}

// ImportData is the payload for PlayersImported and TeamsImported events.
type ImportData struct {
	Count    int `json:"count"`
	Released int `json:"released,omitempty"`
}

// InterestToggledData is the payload for InterestToggled events.
type InterestToggledData struct {
	PlayerID string `json:"player_id"`
	TeamID   string `json:"team_id"`
	Marked   bool   `json:"marked"`
}

// InterestLockData is the payload for InterestLockChanged events.
type InterestLockData struct {
	Locked bool `json:"locked"`
}
