package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// auditTimeout bounds a single scheduled audit.
const auditTimeout = 30 * time.Second

// Scheduler runs the Auditor on a fixed interval.
type Scheduler struct {
	s        gocron.Scheduler
	auditor  *Auditor
	interval time.Duration
	logger   *slog.Logger
}

// NewScheduler creates a scheduler that audits every interval.
func NewScheduler(a *Auditor, interval time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("audit interval must be positive, got %s", interval)
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}
	return &Scheduler{s: s, auditor: a, interval: interval, logger: logger}, nil
}

// Start schedules the audit job, running it once straight away.
func (s *Scheduler) Start() error {
	_, err := s.s.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("creating audit job: %w", err)
	}
	s.s.Start()
	return nil
}

// Stop shuts the scheduler down and waits for a running audit to finish.
func (s *Scheduler) Stop() error {
	return s.s.Shutdown()
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
	defer cancel()

	found, err := s.auditor.Audit(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled audit failed", slog.Any("error", err))
		return
	}
	if len(found) > 0 {
		s.logger.WarnContext(ctx, "scheduled audit found violations", slog.Int("count", len(found)))
	}
}
