package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/example/autopost/internal/ports/primary"
	"github.com/example/autopost/internal/ports/secondary"
)

// SchedulerImpl implements primary.Scheduler. Cycles never overlap: the wait
// for the next cycle starts when the previous one returns.
type SchedulerImpl struct {
	cycles   primary.CycleService
	interval time.Duration
	schedule cron.Schedule
	logger   *logrus.Logger

	now   func() time.Time
	after func(d time.Duration) <-chan time.Time
}

// NewScheduler creates a scheduler that waits interval between cycles, or,
// when cronExpr is set, until the expression's next activation.
func NewScheduler(cycles primary.CycleService, interval time.Duration, cronExpr string, logger *logrus.Logger) (*SchedulerImpl, error) {
	s := &SchedulerImpl{
		cycles:   cycles,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		after:    time.After,
	}
	if cronExpr != "" {
		schedule, err := cron.ParseStandard(cronExpr)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule %q: %w", cronExpr, err)
		}
		s.schedule = schedule
	}
	if s.schedule == nil && interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}
	return s, nil
}

// RunOnce executes exactly one cycle.
func (s *SchedulerImpl) RunOnce(ctx context.Context) (*primary.CycleOutcome, error) {
	return s.cycles.RunCycle(ctx)
}

// RunForever runs a cycle now and then on every tick until ctx is cancelled
// or a cycle fails fatally.
func (s *SchedulerImpl) RunForever(ctx context.Context) error {
	for {
		outcome, err := s.cycles.RunCycle(ctx)
		if ctx.Err() != nil {
			// An interrupted cycle is a shutdown. A post that could not be
			// recorded is still reported.
			if err != nil && primary.IsFatal(err) && !secondary.IsCancellation(err) {
				return err
			}
			s.logger.Info("stopping")
			return nil
		}
		if err != nil {
			if primary.IsFatal(err) {
				return err
			}
			entry := s.logger.WithError(err)
			if outcome != nil {
				entry = entry.WithFields(logrus.Fields{"cycle_id": outcome.CycleID, "status": outcome.Status})
			}
			entry.Error("cycle failed")
		}

		wait, next := s.nextWait()
		s.logger.WithFields(logrus.Fields{
			"next_at": next.Format(time.RFC3339),
			"wait":    wait.Round(time.Second).String(),
		}).Info("waiting for next cycle")

		select {
		case <-ctx.Done():
			s.logger.Info("stopping")
			return nil
		case <-s.after(wait):
		}
	}
}

func (s *SchedulerImpl) nextWait() (time.Duration, time.Time) {
	now := s.now()
	if s.schedule != nil {
		next := s.schedule.Next(now)
		wait := next.Sub(now)
		if wait < 0 {
			wait = 0
		}
		return wait, next
	}
	return s.interval, now.Add(s.interval)
}

// Ensure SchedulerImpl implements the interface
var _ primary.Scheduler = (*SchedulerImpl)(nil)
