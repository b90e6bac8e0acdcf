package sync

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/foldermirror/pkg/logging"
	"github.com/sdejongh/foldermirror/pkg/models"
	"github.com/sdejongh/foldermirror/pkg/output"
)

// Runner runs one reconciliation cycle
type Runner interface {
	Run(ctx context.Context) (*models.CycleReport, error)
}

// Scheduler repeats cycles of a Runner with a fixed pause between them.
// The pause starts when a cycle ends, so cycles never overlap.
type Scheduler struct {
	runner    Runner
	interval  time.Duration
	logger    logging.Logger
	formatter output.Formatter

	// MaxCycles stops the loop after that many cycles (0 = until cancelled)
	MaxCycles int

	// OnReport is called after every cycle, report is nil after a panic
	OnReport func(report *models.CycleReport, err error)
}

// NewScheduler creates a scheduler for runner
func NewScheduler(runner Runner, interval time.Duration, logger logging.Logger, formatter output.Formatter) *Scheduler {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if formatter == nil {
		formatter = output.NullFormatter{}
	}
	return &Scheduler{
		runner:    runner,
		interval:  interval,
		logger:    logger,
		formatter: formatter,
	}
}

// Run loops until ctx is cancelled or MaxCycles is reached.
// Cycle failures are logged and the loop goes on; it returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", s.interval)
	}

	for n := 1; ; n++ {
		if ctx.Err() != nil {
			s.stopped(ctx)
			return nil
		}

		report, err := s.runCycle(ctx)
		if s.OnReport != nil {
			s.OnReport(report, err)
		}

		if ctx.Err() != nil {
			s.stopped(ctx)
			return nil
		}

		fields := logging.Fields{"interval": s.interval.String()}
		switch {
		case err == nil:
			s.logger.Info(ctx, "Synchronization complete. Waiting for next interval...", fields)
		case IsFatal(err):
			s.logger.Warn(ctx, "Synchronization skipped. Retrying at next interval...", fields)
		default:
			s.logger.Error(ctx, "Synchronization failed. Retrying at next interval...", err, fields)
		}

		if s.MaxCycles > 0 && n >= s.MaxCycles {
			return nil
		}

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.stopped(ctx)
			return nil
		case <-timer.C:
		}
	}
}

// runCycle runs one cycle and turns a panic into an error
func (s *Scheduler) runCycle(ctx context.Context) (report *models.CycleReport, err error) {
	defer func() {
		if r := recover(); r != nil {
			report = nil
			err = fmt.Errorf("unexpected error during synchronization: %v", r)
			s.logger.Error(ctx, "Recovered from panic", err, logging.Fields{"stack": string(debug.Stack())})
			s.formatter.Error(err)
		}
	}()

	return s.runner.Run(ctx)
}

func (s *Scheduler) stopped(ctx context.Context) {
	s.logger.Info(ctx, "Synchronization stopped by user", nil)
}

// RunPairs runs several schedulers concurrently until ctx is cancelled.
// Each scheduler owns its engine; only the logger may be shared.
func RunPairs(ctx context.Context, schedulers ...*Scheduler) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, s := range schedulers {
		s := s
		g.Go(func() error {
			return s.Run(gctx)
		})
	}
	return g.Wait()
}
