package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/muktadirmaashif/itcf-2026/internal/store/postgres"
)

// newTestDB starts a Postgres container, applies the migration, and returns
// a connected *sqlx.DB with its connection string. The container is
// automatically terminated when the test ends.
func newTestDB(t *testing.T) (*sqlx.DB, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("auctiond_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		tcpostgres.WithInitScripts(), // no bundled init scripts
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("getting connection string: %v", err)
	}

	db, err := sqlx.Connect("postgres", connStr)
	if err != nil {
		t.Fatalf("connecting to test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := postgres.Migrate(ctx, db); err != nil {
		t.Fatalf("applying migration: %v", err)
	}

	return db, connStr
}

// truncate returns the database to the freshly migrated state.
func truncate(t *testing.T, db *sqlx.DB) {
	t.Helper()
	_, err := db.Exec(`
		TRUNCATE players, teams, events;
		UPDATE auction_state
		SET version = 0, phase = 'SETUP', current_player_id = '', current_bid_price = 0,
		    current_bidder_team_id = '', history = '[]', last_resolution = NULL,
		    interests = '{}', interest_locked = FALSE
		WHERE id = 1;`)
	if err != nil {
		t.Fatalf("truncating: %v", err)
	}
}
