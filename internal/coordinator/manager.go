// Package coordinator serialises auction intents against the authoritative
// snapshot held by the store.
//
// Every intent is applied as read-modify-write: load the latest snapshot,
// validate and transition it, then commit guarded by the version that was
// read. A conflicting commit is retried against a fresh snapshot, so an intent
// is always validated against the state it is committed on.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
	"github.com/muktadirmaashif/itcf-2026/internal/store"
)

const instrumentation = "github.com/muktadirmaashif/itcf-2026/internal/coordinator"

var (
	// ErrConflict is returned when every attempt lost the commit race.
	ErrConflict = errors.New("coordinator: state changed concurrently, retries exhausted")
	// ErrSyncFailure is returned when the store could not be read or written.
	ErrSyncFailure = errors.New("coordinator: store unavailable")
)

// DefaultMaxRetries is how many times a conflicting commit is retried.
const DefaultMaxRetries = 5

// CommitHook observes every committed snapshot.
type CommitHook func(ctx context.Context, s *auction.Snapshot)

// Option configures a Manager.
type Option func(*Manager)

// WithMaxRetries sets how many times a conflicting commit is retried. Zero
// disables retries.
func WithMaxRetries(n int) Option {
	return func(m *Manager) {
		if n >= 0 {
			m.maxRetries = n
		}
	}
}

// WithCommitHook registers h to run after every successful commit.
func WithCommitHook(h CommitHook) Option {
	return func(m *Manager) { m.hooks = append(m.hooks, h) }
}

// Manager is the auction coordinator.
type Manager struct {
	store      store.Snapshots
	engine     *auction.Engine
	logger     *slog.Logger
	tracer     trace.Tracer
	intents    metric.Int64Counter
	conflicts  metric.Int64Counter
	maxRetries int
	hooks      []CommitHook
}

// NewManager creates a coordinator over st.
func NewManager(st store.Snapshots, engine *auction.Engine, logger *slog.Logger, tp trace.TracerProvider, mp metric.MeterProvider, opts ...Option) (*Manager, error) {
	meter := mp.Meter(instrumentation)
	intents, err := meter.Int64Counter("auction.intents",
		metric.WithDescription("Auction intents handled, by operation and outcome."))
	if err != nil {
		return nil, fmt.Errorf("creating intents counter: %w", err)
	}
	conflicts, err := meter.Int64Counter("auction.conflicts",
		metric.WithDescription("Commits rejected because the snapshot changed underneath."))
	if err != nil {
		return nil, fmt.Errorf("creating conflicts counter: %w", err)
	}

	m := &Manager{
		store:      st,
		engine:     engine,
		logger:     logger,
		tracer:     tp.Tracer(instrumentation),
		intents:    intents,
		conflicts:  conflicts,
		maxRetries: DefaultMaxRetries,
	}
	for _, o := range opts {
		o(m)
	}
	return m, nil
}

// Rules returns the rules intents are validated with.
func (m *Manager) Rules() auction.Rules { return m.engine.Rules }

// Snapshot loads the current authoritative snapshot.
func (m *Manager) Snapshot(ctx context.Context) (*auction.Snapshot, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Snapshot")
	defer span.End()

	s, err := m.store.Load(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load failed")
		m.logger.ErrorContext(ctx, "loading snapshot", slog.Any("error", err))
		return nil, fmt.Errorf("%w: loading snapshot: %w", ErrSyncFailure, err)
	}
	return s, nil
}

// DrawNext puts a random eligible player on the floor. It returns a nil
// player, and commits nothing, when the phase has no candidates left.
func (m *Manager) DrawNext(ctx context.Context) (*auction.Player, *auction.Snapshot, error) {
	var drawn *auction.Player
	s, err := m.run(ctx, "DrawNext", nil, func(s *auction.Snapshot) error {
		var err error
		drawn, err = m.engine.DrawNext(s)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return drawn, s, nil
}

// PlaceBid records a bid by teamID on the current lot. A non-empty playerID
// must name the lot the bidder saw, so a bid aimed at a lot that has since
// been resolved is rejected.
func (m *Manager) PlaceBid(ctx context.Context, playerID, teamID string, amount int) (*auction.Snapshot, error) {
	attrs := []attribute.KeyValue{
		attribute.String("player_id", playerID),
		attribute.String("team_id", teamID),
		attribute.Int("amount", amount),
	}
	return m.run(ctx, "PlaceBid", attrs, func(s *auction.Snapshot) error {
		if playerID != "" && s.State.LotActive() && s.State.CurrentPlayerID != playerID {
			return auction.ErrLotMismatch
		}
		return m.engine.PlaceBid(s, teamID, amount)
	})
}

// Sold awards the lot playerID to its current high bidder.
func (m *Manager) Sold(ctx context.Context, playerID string) (*auction.Snapshot, error) {
	return m.run(ctx, "Sold", []attribute.KeyValue{attribute.String("player_id", playerID)}, func(s *auction.Snapshot) error {
		return m.engine.Sold(s, playerID)
	})
}

// Unsold closes the lot playerID without a sale, demoting the player.
func (m *Manager) Unsold(ctx context.Context, playerID string) (*auction.Snapshot, error) {
	return m.run(ctx, "Unsold", []attribute.KeyValue{attribute.String("player_id", playerID)}, func(s *auction.Snapshot) error {
		return m.engine.Unsold(s, playerID)
	})
}

// Undo reverses the most recent resolution and reopens its lot.
func (m *Manager) Undo(ctx context.Context) (*auction.Player, *auction.Snapshot, error) {
	var restored *auction.Player
	s, err := m.run(ctx, "Undo", nil, func(s *auction.Snapshot) error {
		var err error
		restored, err = m.engine.Undo(s)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return restored, s, nil
}

// Withdraw clears the floor without resolving the lot.
func (m *Manager) Withdraw(ctx context.Context) (*auction.Snapshot, error) {
	return m.run(ctx, "Withdraw", nil, m.engine.Withdraw)
}

// SetPhase moves the auction to phase. exhausted reports that the new phase
// has no players left to draw.
func (m *Manager) SetPhase(ctx context.Context, phase auction.Phase) (exhausted bool, s *auction.Snapshot, err error) {
	s, err = m.run(ctx, "SetPhase", []attribute.KeyValue{attribute.String("phase", string(phase))}, func(s *auction.Snapshot) error {
		var err error
		exhausted, err = m.engine.SetPhase(s, phase)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	if exhausted {
		m.logger.InfoContext(ctx, "phase has no players left to draw", slog.String("phase", string(phase)))
	}
	return exhausted, s, nil
}

// ClearHistory empties the bid and resolution history.
func (m *Manager) ClearHistory(ctx context.Context) (*auction.Snapshot, error) {
	return m.run(ctx, "ClearHistory", nil, m.engine.ClearHistory)
}

// Reset returns every player and team to the start of the auction.
func (m *Manager) Reset(ctx context.Context) (*auction.Snapshot, error) {
	return m.run(ctx, "Reset", nil, m.engine.Reset)
}

// ImportPlayers replaces the whole player set.
func (m *Manager) ImportPlayers(ctx context.Context, players []auction.Player) (*auction.Snapshot, error) {
	return m.run(ctx, "ImportPlayers", []attribute.KeyValue{attribute.Int("count", len(players))}, func(s *auction.Snapshot) error {
		return m.engine.ReplacePlayers(s, players)
	})
}

// ImportTeams replaces the whole team set.
func (m *Manager) ImportTeams(ctx context.Context, teams []auction.TeamSeed) (*auction.Snapshot, error) {
	return m.run(ctx, "ImportTeams", []attribute.KeyValue{attribute.Int("count", len(teams))}, func(s *auction.Snapshot) error {
		return m.engine.ReplaceTeams(s, teams)
	})
}

// ToggleInterest flips teamID's marker on playerID and reports whether it is
// now marked.
func (m *Manager) ToggleInterest(ctx context.Context, teamID, playerID string) (marked bool, s *auction.Snapshot, err error) {
	attrs := []attribute.KeyValue{attribute.String("team_id", teamID), attribute.String("player_id", playerID)}
	s, err = m.run(ctx, "ToggleInterest", attrs, func(s *auction.Snapshot) error {
		var err error
		marked, err = m.engine.ToggleInterest(s, teamID, playerID)
		return err
	})
	if err != nil {
		return false, nil, err
	}
	return marked, s, nil
}

// SetInterestLocked locks or unlocks interest marking.
func (m *Manager) SetInterestLocked(ctx context.Context, locked bool) (*auction.Snapshot, error) {
	return m.run(ctx, "SetInterestLocked", []attribute.KeyValue{attribute.Bool("locked", locked)}, func(s *auction.Snapshot) error {
		return m.engine.SetInterestLocked(s, locked)
	})
}

// run applies fn to the latest snapshot and commits the result, retrying on
// version conflicts. fn runs once per attempt and must derive everything from
// the snapshot it is given.
func (m *Manager) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(*auction.Snapshot) error) (*auction.Snapshot, error) {
	ctx, span := m.tracer.Start(ctx, "Manager."+op, trace.WithAttributes(attrs...))
	defer span.End()

	logAttrs := make([]any, 0, len(attrs)+2)
	logAttrs = append(logAttrs, slog.String("op", op))
	for _, kv := range attrs {
		logAttrs = append(logAttrs, slog.Any(string(kv.Key), kv.Value.AsInterface()))
	}

	for attempt := 0; ; attempt++ {
		s, err := m.store.Load(ctx)
		if err != nil {
			return nil, m.syncFailure(ctx, span, op, "loading snapshot", err, logAttrs)
		}
		expected := s.Version

		if err := fn(s); err != nil {
			m.count(ctx, op, "rejected")
			span.SetAttributes(attribute.String("rejection", err.Error()))
			m.logger.WarnContext(ctx, "intent rejected", append(logAttrs,
				slog.String("kind", string(auction.KindOf(err))),
				slog.String("reason", err.Error()),
			)...)
			return nil, err
		}

		changes := s.Changes()
		if changes.Empty() {
			m.count(ctx, op, "noop")
			return s, nil
		}

		version, err := m.store.Commit(ctx, expected, changes)
		switch {
		case err == nil:
			s.Version = version
			m.count(ctx, op, "committed")
			span.SetAttributes(attribute.Int64("version", version))
			m.logger.InfoContext(ctx, "intent committed", append(logAttrs,
				slog.Int64("version", version),
				slog.String("phase", string(s.State.Phase)),
			)...)
			for _, h := range m.hooks {
				h(ctx, s)
			}
			return s, nil

		case errors.Is(err, store.ErrConflict):
			m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op)))
			if attempt >= m.maxRetries {
				m.count(ctx, op, "conflict")
				span.SetStatus(codes.Error, "retries exhausted")
				m.logger.WarnContext(ctx, "commit conflict, retries exhausted", append(logAttrs,
					slog.Int("attempts", attempt+1),
				)...)
				return nil, fmt.Errorf("%s after %d attempts: %w", op, attempt+1, ErrConflict)
			}

		default:
			return nil, m.syncFailure(ctx, span, op, "committing", err, logAttrs)
		}
	}
}

func (m *Manager) syncFailure(ctx context.Context, span trace.Span, op, step string, err error, logAttrs []any) error {
	m.count(ctx, op, "sync_failure")
	span.RecordError(err)
	span.SetStatus(codes.Error, step+" failed")
	m.logger.ErrorContext(ctx, step, append(logAttrs, slog.Any("error", err))...)
	return fmt.Errorf("%w: %s: %w", ErrSyncFailure, step, err)
}

func (m *Manager) count(ctx context.Context, op, outcome string) {
	m.intents.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}
