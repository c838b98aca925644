package auction

import (
	"maps"
	"slices"
	"time"

	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

// AggregateID identifies the single auction aggregate in the event log.
const AggregateID = "auction"

// SystemTeamID is recorded as the team of history entries no team caused.
const SystemTeamID = "SYSTEM"

// Category is a player tier. Categories only ever move downwards.
type Category string

const (
	CategoryA Category = "A"
	CategoryB Category = "B"
	CategoryC Category = "C"
)

// Categories lists all categories from highest to lowest.
var Categories = []Category{CategoryA, CategoryB, CategoryC}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

// Demoted returns the next lower category, or false if c is the floor.
func (c Category) Demoted() (Category, bool) {
	switch c {
	case CategoryA:
		return CategoryB, true
	case CategoryB:
		return CategoryC, true
	default:
		return c, false
	}
}

func (c Category) rank() int { return slices.Index(Categories, c) }

// Status is a player's auction status.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusSold      Status = "SOLD"
	StatusUnsold    Status = "UNSOLD"
)

// Phase is a stage of the auction restricting which players may be drawn.
type Phase string

const (
	PhaseSetup     Phase = "SETUP"
	PhaseCategoryA Phase = "CATEGORY_A"
	PhaseCategoryB Phase = "CATEGORY_B"
	PhaseCategoryC Phase = "CATEGORY_C_AUCTION"
	PhaseUnsold    Phase = "UNSOLD_ROUND"
	PhaseComplete  Phase = "COMPLETE"
)

// Phases lists all phases in their nominal order.
var Phases = []Phase{PhaseSetup, PhaseCategoryA, PhaseCategoryB, PhaseCategoryC, PhaseUnsold, PhaseComplete}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return slices.Contains(Phases, p)
}

// Player is a lot that can be drawn, bid on and resolved.
// SoldPrice and SoldToTeamID are zero unless Status is SOLD.
type Player struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Role             string   `json:"role"`
	Category         Category `json:"category"`
	OriginalCategory Category `json:"original_category"`
	BasePrice        int      `json:"base_price"`
	Status           Status   `json:"status"`
	SoldPrice        int      `json:"sold_price,omitempty"`
	SoldToTeamID     string   `json:"sold_to_team_id,omitempty"`
}

// Tally holds one integer per category.
type Tally struct {
	A int `json:"A"`
	B int `json:"B"`
	C int `json:"C"`
}

// Get returns the value for c.
func (t Tally) Get(c Category) int {
	switch c {
	case CategoryA:
		return t.A
	case CategoryB:
		return t.B
	case CategoryC:
		return t.C
	}
	return 0
}

// Add adds n to the value for c.
func (t *Tally) Add(c Category, n int) {
	switch c {
	case CategoryA:
		t.A += n
	case CategoryB:
		t.B += n
	case CategoryC:
		t.C += n
	}
}

// Total returns the sum over all categories.
func (t Tally) Total() int { return t.A + t.B + t.C }

// Team is a bidding team. Its roster is not stored; see Snapshot.Roster.
type Team struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Captain string `json:"captain,omitempty"`
	Budget  int    `json:"budget"`
	Spent   int    `json:"spent"`
	Counts  Tally  `json:"category_counts"`
	Spend   Tally  `json:"category_spend"`
}

// RosterSize returns the number of players bought by the team.
func (t Team) RosterSize() int { return t.Counts.Total() }

// TeamSeed is the imported identity of a team.
type TeamSeed struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Captain string `json:"captain,omitempty"`
}

// HistoryType classifies a history entry.
type HistoryType string

const (
	HistoryBid    HistoryType = "bid"
	HistorySold   HistoryType = "sold"
	HistoryUnsold HistoryType = "unsold"
)

// HistoryEntry is one line of the floor log shown to every client.
type HistoryEntry struct {
	ID         string      `json:"id"`
	Type       HistoryType `json:"type"`
	TeamID     string      `json:"team_id"`
	Amount     int         `json:"amount,omitempty"`
	PlayerID   string      `json:"player_id"`
	PlayerName string      `json:"player_name"`
	Timestamp  time.Time   `json:"timestamp"`
}

// ResolutionKind names how a lot was resolved.
type ResolutionKind string

const (
	ResolvedSold   ResolutionKind = "sold"
	ResolvedUnsold ResolutionKind = "unsold"
)

// LastResolution holds the pre-resolution copies of what the most recent
// SOLD or UNSOLD changed. It is consumed by exactly one Undo.
type LastResolution struct {
	Kind   ResolutionKind `json:"kind"`
	Player Player         `json:"player"`
	Team   *Team          `json:"team,omitempty"`
}

// State is the shared floor state. CurrentPlayerID empty means no lot;
// CurrentBidderTeamID empty means no bid has been placed on the lot.
type State struct {
	Phase               Phase               `json:"phase"`
	CurrentPlayerID     string              `json:"current_player_id,omitempty"`
	CurrentBidPrice     int                 `json:"current_bid_price"`
	CurrentBidderTeamID string              `json:"current_bidder_team_id,omitempty"`
	History             []HistoryEntry      `json:"history"`
	LastResolution      *LastResolution     `json:"last_resolution,omitempty"`
	Interests           map[string][]string `json:"interests,omitempty"`
	InterestLocked      bool                `json:"interest_locked"`
}

// LotActive reports whether a lot is on the floor.
func (s State) LotActive() bool { return s.CurrentPlayerID != "" }

func (s *State) clearLot() {
	s.CurrentPlayerID = ""
	s.CurrentBidPrice = 0
	s.CurrentBidderTeamID = ""
}

func (s *State) prependHistory(h HistoryEntry) {
	s.History = append([]HistoryEntry{h}, s.History...)
}

// Snapshot is one consistent view of every entity plus the version it was
// read at. Transitions mutate a Snapshot in place and record what they
// touched; Changes hands that over to the store for commit.
type Snapshot struct {
	Players []Player `json:"players"`
	Teams   []Team   `json:"teams"`
	State   State    `json:"state"`
	Version int64    `json:"version"`

	dirtyPlayers   map[string]struct{}
	dirtyTeams     map[string]struct{}
	replacePlayers bool
	replaceTeams   bool
	events         []event.Event
}

// NewSnapshot returns an empty snapshot in the SETUP phase.
func NewSnapshot() *Snapshot {
	return &Snapshot{State: State{Phase: PhaseSetup}}
}

// Player returns a pointer to the player with the given id, or nil.
func (s *Snapshot) Player(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// Team returns a pointer to the team with the given id, or nil.
func (s *Snapshot) Team(id string) *Team {
	for i := range s.Teams {
		if s.Teams[i].ID == id {
			return &s.Teams[i]
		}
	}
	return nil
}

// CurrentPlayer returns the lot on the floor, or nil.
func (s *Snapshot) CurrentPlayer() *Player {
	if !s.State.LotActive() {
		return nil
	}
	return s.Player(s.State.CurrentPlayerID)
}

// Roster returns the players sold to a team, in snapshot order.
func (s *Snapshot) Roster(teamID string) []Player {
	var roster []Player
	for _, p := range s.Players {
		if p.Status == StatusSold && p.SoldToTeamID == teamID {
			roster = append(roster, p)
		}
	}
	return roster
}

// Clone returns a deep copy without pending changes.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{
		Players: slices.Clone(s.Players),
		Teams:   slices.Clone(s.Teams),
		State:   s.State,
		Version: s.Version,
	}
	c.State.History = slices.Clone(s.State.History)
	if s.State.LastResolution != nil {
		lr := *s.State.LastResolution
		if lr.Team != nil {
			team := *lr.Team
			lr.Team = &team
		}
		c.State.LastResolution = &lr
	}
	if s.State.Interests != nil {
		c.State.Interests = make(map[string][]string, len(s.State.Interests))
		for k, v := range s.State.Interests {
			c.State.Interests[k] = slices.Clone(v)
		}
	}
	return c
}

// Changes is the unit a store commits atomically: the full state row, the
// players and teams that were touched (or the full sets when replaced) and
// the events describing the transition.
type Changes struct {
	State          State
	Players        []Player
	Teams          []Team
	ReplacePlayers bool
	ReplaceTeams   bool
	Events         []event.Event
}

// Empty reports whether there is nothing to commit.
func (c Changes) Empty() bool { return len(c.Events) == 0 }

// Changes returns everything touched since the snapshot was loaded and clears
// the pending bookkeeping.
func (s *Snapshot) Changes() Changes {
	c := Changes{
		State:          s.State,
		ReplacePlayers: s.replacePlayers,
		ReplaceTeams:   s.replaceTeams,
		Events:         s.events,
	}
	for _, p := range s.Players {
		if _, ok := s.dirtyPlayers[p.ID]; ok || s.replacePlayers {
			c.Players = append(c.Players, p)
		}
	}
	for _, t := range s.Teams {
		if _, ok := s.dirtyTeams[t.ID]; ok || s.replaceTeams {
			c.Teams = append(c.Teams, t)
		}
	}
	s.dirtyPlayers = nil
	s.dirtyTeams = nil
	s.replacePlayers = false
	s.replaceTeams = false
	s.events = nil
	return c
}

// Apply folds committed changes into s, as a replica does after a commit it
// observed. Versions at or below the current one are ignored.
func (s *Snapshot) Apply(c Changes) {
	if len(c.Events) == 0 || c.Events[len(c.Events)-1].Version <= s.Version {
		return
	}
	s.State = c.State
	if c.ReplacePlayers {
		s.Players = slices.Clone(c.Players)
	} else {
		s.Players = upsert(s.Players, c.Players, func(p Player) string { return p.ID })
	}
	if c.ReplaceTeams {
		s.Teams = slices.Clone(c.Teams)
	} else {
		s.Teams = upsert(s.Teams, c.Teams, func(t Team) string { return t.ID })
	}
	s.Version = c.Events[len(c.Events)-1].Version
}

func upsert[T any](dst, src []T, key func(T) string) []T {
	idx := make(map[string]int, len(dst))
	for i, v := range dst {
		idx[key(v)] = i
	}
	for _, v := range src {
		if i, ok := idx[key(v)]; ok {
			dst[i] = v
			continue
		}
		idx[key(v)] = len(dst)
		dst = append(dst, v)
	}
	return dst
}

func (s *Snapshot) touchPlayer(id string) {
	if s.dirtyPlayers == nil {
		s.dirtyPlayers = make(map[string]struct{})
	}
	s.dirtyPlayers[id] = struct{}{}
}

func (s *Snapshot) touchTeam(id string) {
	if s.dirtyTeams == nil {
		s.dirtyTeams = make(map[string]struct{})
	}
	s.dirtyTeams[id] = struct{}{}
}

// TeamInterests returns the player ids a team has marked, sorted.
func (s *Snapshot) TeamInterests(teamID string) []string {
	var ids []string
	for _, pid := range slices.Sorted(maps.Keys(s.State.Interests)) {
		if slices.Contains(s.State.Interests[pid], teamID) {
			ids = append(ids, pid)
		}
	}
	return ids
}
