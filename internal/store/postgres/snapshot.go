package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/store/sqlrow"
)

// Channel is the NOTIFY channel commits are announced on.
const Channel = "auction_changes"

// listenTimeout bounds how long Subscribe waits for the LISTEN connection.
const listenTimeout = 10 * time.Second

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// Store implements store.Snapshots backed by Postgres.
type Store struct {
	db    *sqlx.DB
	dsn   string
	clock clock.Clock
}

// NewStore returns a new Store.
func NewStore(db *sqlx.DB, dsn string, clk clock.Clock) *Store {
	return &Store{db: db, dsn: dsn, clock: clk}
}

// Load reads the whole auction from one repeatable-read transaction so the
// players, teams and state agree with the version.
func (s *Store) Load(ctx context.Context) (*auction.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var row sqlrow.StateRow
	if err := tx.GetContext(ctx, &row,
		`SELECT version, phase, current_player_id, current_bid_price, current_bidder_team_id,
		        history, last_resolution, interests, interest_locked
		 FROM auction_state WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("loading auction state: %w", err)
	}

	var players []sqlrow.PlayerRow
	if err := tx.SelectContext(ctx, &players,
		`SELECT id, position, name, role, category, original_category, base_price, status, sold_price, sold_to_team_id
		 FROM players ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("loading players: %w", err)
	}

	var teams []sqlrow.TeamRow
	if err := tx.SelectContext(ctx, &teams,
		`SELECT id, position, name, captain, budget, spent, count_a, count_b, count_c, spend_a, spend_b, spend_c
		 FROM teams ORDER BY position ASC`); err != nil {
		return nil, fmt.Errorf("loading teams: %w", err)
	}

	snap := auction.NewSnapshot()
	snap.Version = row.Version
	if snap.State, err = row.State(); err != nil {
		return nil, err
	}
	for _, p := range players {
		snap.Players = append(snap.Players, p.Player())
	}
	for _, t := range teams {
		snap.Teams = append(snap.Teams, t.Team())
	}
	return snap, nil
}

// Commit writes c in one transaction. The state row's version is the
// compare-and-swap guard: a concurrent commit that got there first leaves no
// row to update, and the caller gets store.ErrConflict.
func (s *Store) Commit(ctx context.Context, expected int64, c auction.Changes) (int64, error) {
	if c.Empty() {
		var current int64
		if err := s.db.GetContext(ctx, &current, `SELECT version FROM auction_state WHERE id = 1`); err != nil {
			return 0, fmt.Errorf("reading version: %w", err)
		}
		if current != expected {
			return 0, store.ErrConflict
		}
		return expected, nil
	}

	version, err := sqlrow.CheckVersions(expected, c)
	if err != nil {
		return 0, err
	}
	st, err := sqlrow.FromState(version, c.State)
	if err != nil {
		return 0, err
	}
	payload, err := json.Marshal(store.Notifications(c, version))
	if err != nil {
		return 0, fmt.Errorf("encoding notification: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE auction_state
		 SET version = $1, phase = $2, current_player_id = $3, current_bid_price = $4, current_bidder_team_id = $5,
		     history = $6, last_resolution = $7, interests = $8, interest_locked = $9, updated_at = $10
		 WHERE id = 1 AND version = $11`,
		st.Version, st.Phase, st.CurrentPlayerID, st.CurrentBidPrice, st.CurrentBidderTeamID,
		string(st.History), nullJSON(st.LastResolution), string(st.Interests), st.InterestLocked, s.clock.Now().UTC(),
		expected,
	)
	if err != nil {
		return 0, fmt.Errorf("updating auction state: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return 0, fmt.Errorf("checking auction state update: %w", err)
	} else if n == 0 {
		return 0, store.ErrConflict
	}

	if err := writePlayers(ctx, tx, c); err != nil {
		return 0, err
	}
	if err := writeTeams(ctx, tx, c); err != nil {
		return 0, err
	}
	if err := insertEvents(ctx, tx, c); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, store.ErrConflict
		}
		return 0, err
	}
	// Delivered to listeners only once the transaction commits.
	if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, Channel, string(payload)); err != nil {
		return 0, fmt.Errorf("notifying: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	return version, nil
}

func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func writePlayers(ctx context.Context, tx *sqlx.Tx, c auction.Changes) error {
	if c.ReplacePlayers {
		if _, err := tx.ExecContext(ctx, `DELETE FROM players`); err != nil {
			return fmt.Errorf("clearing players: %w", err)
		}
	}
	for i, p := range c.Players {
		r := sqlrow.FromPlayer(i, p)
		var err error
		if c.ReplacePlayers {
			_, err = tx.NamedExecContext(ctx,
				`INSERT INTO players (id, position, name, role, category, original_category, base_price, status, sold_price, sold_to_team_id)
				 VALUES (:id, :position, :name, :role, :category, :original_category, :base_price, :status, :sold_price, :sold_to_team_id)`, r)
		} else {
			_, err = tx.NamedExecContext(ctx,
				`INSERT INTO players (id, position, name, role, category, original_category, base_price, status, sold_price, sold_to_team_id)
				 VALUES (:id, (SELECT COALESCE(MAX(position) + 1, 0) FROM players), :name, :role, :category, :original_category,
				         :base_price, :status, :sold_price, :sold_to_team_id)
				 ON CONFLICT (id) DO UPDATE SET
				     name = EXCLUDED.name, role = EXCLUDED.role, category = EXCLUDED.category,
				     original_category = EXCLUDED.original_category, base_price = EXCLUDED.base_price,
				     status = EXCLUDED.status, sold_price = EXCLUDED.sold_price, sold_to_team_id = EXCLUDED.sold_to_team_id`, r)
		}
		if err != nil {
			return fmt.Errorf("writing player %s: %w", p.ID, err)
		}
	}
	return nil
}

func writeTeams(ctx context.Context, tx *sqlx.Tx, c auction.Changes) error {
	if c.ReplaceTeams {
		if _, err := tx.ExecContext(ctx, `DELETE FROM teams`); err != nil {
			return fmt.Errorf("clearing teams: %w", err)
		}
	}
	for i, t := range c.Teams {
		r := sqlrow.FromTeam(i, t)
		var err error
		if c.ReplaceTeams {
			_, err = tx.NamedExecContext(ctx,
				`INSERT INTO teams (id, position, name, captain, budget, spent, count_a, count_b, count_c, spend_a, spend_b, spend_c)
				 VALUES (:id, :position, :name, :captain, :budget, :spent, :count_a, :count_b, :count_c, :spend_a, :spend_b, :spend_c)`, r)
		} else {
			_, err = tx.NamedExecContext(ctx,
				`INSERT INTO teams (id, position, name, captain, budget, spent, count_a, count_b, count_c, spend_a, spend_b, spend_c)
				 VALUES (:id, (SELECT COALESCE(MAX(position) + 1, 0) FROM teams), :name, :captain, :budget, :spent,
				         :count_a, :count_b, :count_c, :spend_a, :spend_b, :spend_c)
				 ON CONFLICT (id) DO UPDATE SET
				     name = EXCLUDED.name, captain = EXCLUDED.captain, budget = EXCLUDED.budget, spent = EXCLUDED.spent,
				     count_a = EXCLUDED.count_a, count_b = EXCLUDED.count_b, count_c = EXCLUDED.count_c,
				     spend_a = EXCLUDED.spend_a, spend_b = EXCLUDED.spend_b, spend_c = EXCLUDED.spend_c`, r)
		}
		if err != nil {
			return fmt.Errorf("writing team %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sqlx.Tx, c auction.Changes) error {
	stmt, err := tx.PreparexContext(ctx,
		`INSERT INTO events (id, aggregate_id, type, data, version, created_at) VALUES ($1, $2, $3, $4, $5, $6)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.AggregateID, string(e.Type), string(e.Data), e.Version, e.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): %w", e.AggregateID, e.Version, err)
		}
	}
	return nil
}

// Subscribe opens a dedicated LISTEN connection and forwards every commit
// notification until ctx is done. After the connection is re-established a
// KindResync notification is sent, since notifications may have been missed.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Notification, error) {
	ready := make(chan struct{})
	var once sync.Once
	l := pq.NewListener(s.dsn, 100*time.Millisecond, 10*time.Second, func(ev pq.ListenerEventType, _ error) {
		if ev == pq.ListenerEventConnected {
			once.Do(func() { close(ready) })
		}
	})
	// LISTEN must be in effect before returning or early commits are lost.
	select {
	case <-ready:
	case <-ctx.Done():
		l.Close()
		return nil, ctx.Err()
	case <-time.After(listenTimeout):
		l.Close()
		return nil, fmt.Errorf("listener did not connect within %s", listenTimeout)
	}
	if err := l.Listen(Channel); err != nil {
		l.Close()
		return nil, fmt.Errorf("listening on %s: %w", Channel, err)
	}

	out := make(chan store.Notification, 64)
	go func() {
		defer close(out)
		defer l.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case n, ok := <-l.Notify:
				if !ok {
					return
				}
				for _, note := range decode(n) {
					select {
					case out <- note:
					case <-ctx.Done():
						return
					}
				}
			case <-time.After(90 * time.Second):
				go func() { _ = l.Ping() }()
			}
		}
	}()
	return out, nil
}

// decode turns a NOTIFY into notifications. A nil notification means the
// listener reconnected.
func decode(n *pq.Notification) []store.Notification {
	if n == nil {
		return []store.Notification{{Kind: store.KindResync}}
	}
	var notes []store.Notification
	if err := json.Unmarshal([]byte(n.Extra), &notes); err != nil {
		return []store.Notification{{Kind: store.KindResync}}
	}
	return notes
}
