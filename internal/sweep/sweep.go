// Package sweep periodically schedules the task backlog on a cron spec.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/starford/sowilo/internal/scheduling"
)

// Backlog schedules every open task without a due date.
type Backlog interface {
	ScheduleBacklog(ctx context.Context) ([]scheduling.Assignment, error)
}

// Sweeper runs Backlog on a cron schedule. Runs never overlap; a tick that
// fires while the previous run is still going is skipped.
type Sweeper struct {
	backlog Backlog
	spec    string
	loc     *time.Location
	timeout time.Duration
	logger  *slog.Logger
	parser  cron.Parser
}

// New validates spec (standard five fields or a descriptor such as @hourly)
// and returns a sweeper. Each run is bounded by timeout when it is positive.
func New(b Backlog, spec string, loc *time.Location, timeout time.Duration, logger *slog.Logger) (*Sweeper, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Sweeper{
		backlog: b,
		spec:    spec,
		loc:     loc,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "sweep")),
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
	}
	if _, err := s.parser.Parse(spec); err != nil {
		return nil, fmt.Errorf("sweep spec %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce schedules the backlog a single time. Failures are logged and
// returned; assignments made before a failure stay committed.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	out, err := s.backlog.ScheduleBacklog(ctx)
	if err != nil {
		s.logger.Warn("backlog sweep incomplete",
			slog.Int("assigned", len(out)),
			slog.String("error", err.Error()))
		return err
	}
	if len(out) > 0 {
		s.logger.Info("backlog sweep done", slog.Int("assigned", len(out)))
	}
	return nil
}

// Run starts the cron loop and blocks until ctx is done, then waits for a
// running sweep to finish.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithParser(s.parser),
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.spec, func() { _ = s.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("sweep spec %q: %w", s.spec, err)
	}

	c.Start()
	s.logger.Info("backlog sweep started", slog.String("spec", s.spec), slog.String("tz", s.loc.String()))
	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("backlog sweep stopped")
	return nil
}
