// Package audit checks committed snapshots against the auction invariants:
// balanced team books, consistent rosters and category tallies, sold players
// owned by real teams, and a coherent lot.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/muktadirmaashif/itcf-2026/internal/auction"
)

const instrumentation = "github.com/muktadirmaashif/itcf-2026/internal/audit"

// Loader reads the authoritative snapshot.
type Loader interface {
	Load(ctx context.Context) (*auction.Snapshot, error)
}

// Auditor verifies snapshots and reports violations.
type Auditor struct {
	source     Loader
	rules      auction.Rules
	logger     *slog.Logger
	violations metric.Int64Counter

	mu       sync.Mutex
	audited  bool
	version  int64
	findings []auction.Violation
}

// NewAuditor returns an Auditor that loads snapshots from source.
func NewAuditor(source Loader, rules auction.Rules, logger *slog.Logger, mp metric.MeterProvider) (*Auditor, error) {
	violations, err := mp.Meter(instrumentation).Int64Counter("auction.audit.violations",
		metric.WithDescription("Invariant violations found in audited snapshots."))
	if err != nil {
		return nil, fmt.Errorf("creating violations counter: %w", err)
	}
	return &Auditor{source: source, rules: rules, logger: logger, violations: violations}, nil
}

// Audit loads the current snapshot and checks it.
func (a *Auditor) Audit(ctx context.Context) ([]auction.Violation, error) {
	s, err := a.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading snapshot for audit: %w", err)
	}
	return a.Check(ctx, s), nil
}

// Check verifies s. A version that was already checked is not reported
// again.
func (a *Auditor) Check(ctx context.Context, s *auction.Snapshot) []auction.Violation {
	a.mu.Lock()
	if a.audited && a.version == s.Version {
		found := a.findings
		a.mu.Unlock()
		return found
	}
	a.mu.Unlock()

	found := auction.Verify(s, a.rules)
	for _, v := range found {
		a.violations.Add(ctx, 1, metric.WithAttributes(attribute.String("entity", v.Entity)))
		a.logger.ErrorContext(ctx, "auction invariant violated",
			slog.Int64("version", s.Version),
			slog.String("entity", v.Entity),
			slog.String("id", v.ID),
			slog.String("detail", v.Detail),
		)
	}
	if len(found) == 0 {
		a.logger.DebugContext(ctx, "audit clean", slog.Int64("version", s.Version))
	}

	a.mu.Lock()
	a.audited, a.version, a.findings = true, s.Version, found
	a.mu.Unlock()
	return found
}

// Last returns the most recently audited version and its findings. ok is
// false before the first audit.
func (a *Auditor) Last() (version int64, findings []auction.Violation, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.version, a.findings, a.audited
}
