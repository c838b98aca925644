// Package sqlite provides a store.Driver backed by a single SQLite file,
// accessed through sqlx with OTEL instrumentation via otelsql.
//
// Only one process may write to the file. Subscribers are notified in-process
// after each commit.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/XSAM/otelsql"
	"github.com/jmoiron/sqlx"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/clock"
	"github.com/muktadirmaashif/itcf-2026/internal/config"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
	"github.com/muktadirmaashif/itcf-2026/internal/store/notify"
	"github.com/muktadirmaashif/itcf-2026/internal/store/sqlite/migrations"
	"github.com/muktadirmaashif/itcf-2026/internal/store/sqlrow"
)

// closerFunc adapts a func() error into an io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func init() {
	store.Register("sqlite", openSQLite)
}

// openSQLite is the store.Driver for the "sqlite" backend.
func openSQLite(ctx context.Context, cfg config.DatabaseConfig, clk clock.Clock) (*store.Repositories, error) {
	db, err := Connect(ctx, cfg.Path)
	if err != nil {
		return nil, err
	}
	s := NewStore(db, clk)
	return &store.Repositories{
		Snapshots: s,
		Events:    NewEventStore(db),
		Closer:    closerFunc(db.Close),
		Ping:      db.PingContext,
	}, nil
}

// Connect opens the database file at path and applies the embedded
// migrations.
func Connect(ctx context.Context, path string) (*sqlx.DB, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"

	db, err := otelsql.Open("sqlite", dsn,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	// One connection serialises writers so the version check and the writes
	// of a commit cannot interleave with another commit.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite database: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying migrations: %w", err)
	}
	return sqlx.NewDb(db, "sqlite"), nil
}

// Store implements store.Snapshots on SQLite.
type Store struct {
	db    *sqlx.DB
	clock clock.Clock
	hub   *notify.Hub
}

// NewStore returns a Store using db.
func NewStore(db *sqlx.DB, clk clock.Clock) *Store {
	return &Store{db: db, clock: clk, hub: notify.NewHub()}
}

// Load reads the whole auction in one transaction.
func (s *Store) Load(ctx context.Context) (*auction.Snapshot, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
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

// Commit writes c in one transaction guarded by the state row's version.
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

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var lastResolution any
	if st.LastResolution != nil {
		lastResolution = string(st.LastResolution)
	}
	result, err := tx.ExecContext(ctx,
		`UPDATE auction_state
		 SET version = ?, phase = ?, current_player_id = ?, current_bid_price = ?, current_bidder_team_id = ?,
		     history = ?, last_resolution = ?, interests = ?, interest_locked = ?, updated_at = ?
		 WHERE id = 1 AND version = ?`,
		st.Version, st.Phase, st.CurrentPlayerID, st.CurrentBidPrice, st.CurrentBidderTeamID,
		string(st.History), lastResolution, string(st.Interests), st.InterestLocked, s.clock.Now().UTC().UnixMilli(),
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
		if isConstraintError(err) {
			return 0, store.ErrConflict
		}
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}

	s.hub.Publish(store.Notifications(c, version)...)
	return version, nil
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
			_, err = tx.ExecContext(ctx,
				`INSERT INTO players (id, position, name, role, category, original_category, base_price, status, sold_price, sold_to_team_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, r.Position, r.Name, r.Role, r.Category, r.OriginalCategory, r.BasePrice, r.Status, r.SoldPrice, r.SoldToTeamID)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO players (id, position, name, role, category, original_category, base_price, status, sold_price, sold_to_team_id)
				 VALUES (?, (SELECT COALESCE(MAX(position) + 1, 0) FROM players), ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
				     name = excluded.name, role = excluded.role, category = excluded.category,
				     original_category = excluded.original_category, base_price = excluded.base_price,
				     status = excluded.status, sold_price = excluded.sold_price, sold_to_team_id = excluded.sold_to_team_id`,
				r.ID, r.Name, r.Role, r.Category, r.OriginalCategory, r.BasePrice, r.Status, r.SoldPrice, r.SoldToTeamID)
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
			_, err = tx.ExecContext(ctx,
				`INSERT INTO teams (id, position, name, captain, budget, spent, count_a, count_b, count_c, spend_a, spend_b, spend_c)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				r.ID, r.Position, r.Name, r.Captain, r.Budget, r.Spent, r.CountA, r.CountB, r.CountC, r.SpendA, r.SpendB, r.SpendC)
		} else {
			_, err = tx.ExecContext(ctx,
				`INSERT INTO teams (id, position, name, captain, budget, spent, count_a, count_b, count_c, spend_a, spend_b, spend_c)
				 VALUES (?, (SELECT COALESCE(MAX(position) + 1, 0) FROM teams), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				 ON CONFLICT (id) DO UPDATE SET
				     name = excluded.name, captain = excluded.captain, budget = excluded.budget, spent = excluded.spent,
				     count_a = excluded.count_a, count_b = excluded.count_b, count_c = excluded.count_c,
				     spend_a = excluded.spend_a, spend_b = excluded.spend_b, spend_c = excluded.spend_c`,
				r.ID, r.Name, r.Captain, r.Budget, r.Spent, r.CountA, r.CountB, r.CountC, r.SpendA, r.SpendB, r.SpendC)
		}
		if err != nil {
			return fmt.Errorf("writing team %s: %w", t.ID, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sqlx.Tx, c auction.Changes) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO events (id, aggregate_id, type, data, version, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range c.Events {
		if _, err := stmt.ExecContext(ctx, e.ID, e.AggregateID, string(e.Type), string(e.Data), e.Version, e.CreatedAt.UTC().UnixMilli()); err != nil {
			return fmt.Errorf("inserting event (aggregate=%s, version=%d): %w", e.AggregateID, e.Version, err)
		}
	}
	return nil
}

// Subscribe delivers a notification for every commit made through this
// Store.
func (s *Store) Subscribe(ctx context.Context) (<-chan store.Notification, error) {
	return s.hub.Subscribe(ctx)
}

func isConstraintError(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}

const migrationTable = "schema_migrations"

// applyMigrations runs each embedded migration's Up section at most once.
func applyMigrations(ctx context.Context, db *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}
		up := extractUp(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, up); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO `+migrationTable+` (name, applied_at) VALUES (?, strftime('%s', 'now') * 1000)`, file); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// extractUp returns the SQL in the -- +migrate Up section.
func extractUp(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	i := strings.Index(content, up)
	if i == -1 {
		return content
	}
	content = content[i+len(up):]
	if j := strings.Index(content, down); j != -1 {
		content = content[:j]
	}
	return content
}
