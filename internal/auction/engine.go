package auction

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"

	"github.com/google/uuid"

	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/event"
)

// RandSource picks the next lot among the candidates.
type RandSource interface {
	// Intn returns a random integer in [0, n).
	Intn(n int) int
}

// cryptoRandSource wraps crypto/rand for production use. A nil reader means
// rand.Reader.
type cryptoRandSource struct {
	reader io.Reader
}

// Intn returns a cryptographically secure random integer in [0, n).
// Panics if n <= 0 or the random source fails.
func (c cryptoRandSource) Intn(n int) int {
	if n <= 0 {
		panic(fmt.Sprintf("cryptoRandSource.Intn: n must be positive, got %d", n))
	}
	r := c.reader
	if r == nil {
		r = rand.Reader
	}
	nBig, err := rand.Int(r, big.NewInt(int64(n)))
	if err != nil {
		panic(fmt.Sprintf("cryptoRandSource.Intn: reading random source: %v", err))
	}
	return int(nBig.Int64())
}

// Engine applies transitions to a Snapshot. Every method either mutates the
// snapshot and records at least one event, returns a Rejection and leaves
// the snapshot untouched, or records nothing for a no-op.
type Engine struct {
	Rules Rules
	Clock clock.Clock
	Rand  RandSource
	NewID func() string
}

// NewEngine returns an Engine with a crypto random source and uuid ids.
func NewEngine(rules Rules, clk clock.Clock) *Engine {
	return &Engine{
		Rules: rules,
		Clock: clk,
		Rand:  cryptoRandSource{},
		NewID: uuid.NewString,
	}
}

func (e *Engine) record(s *Snapshot, t event.Type, payload any) {
	data := mustMarshal(payload)
	s.Version++
	s.events = append(s.events, event.Event{
		ID:          e.NewID(),
		AggregateID: AggregateID,
		Type:        t,
		Data:        data,
		Version:     s.Version,
		CreatedAt:   e.Clock.Now().UTC(),
	})
}

// mustMarshal encodes an event payload. Payloads are the plain structs of
// package event, so a failure is a programming error.
func mustMarshal(payload any) json.RawMessage {
	data, err := json.Marshal(payload)
	if err != nil {
		panic(fmt.Sprintf("encoding %T event payload: %v", payload, err))
	}
	return data
}

func (e *Engine) history(s *Snapshot, t HistoryType, teamID string, amount int, p *Player) {
	s.State.prependHistory(HistoryEntry{
		ID:         e.NewID(),
		Type:       t,
		TeamID:     teamID,
		Amount:     amount,
		PlayerID:   p.ID,
		PlayerName: p.Name,
		Timestamp:  e.Clock.Now().UTC(),
	})
}

// PendingEvents returns the events recorded since the last Changes call.
func (s *Snapshot) PendingEvents() []event.Event { return s.events }
