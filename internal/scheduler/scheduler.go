// Package scheduler keeps the record store fresh on a cron schedule.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	appLog "coursecal/internal/log"
)

// Refresher is what the scheduler runs on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler runs a Refresher on a cron schedule. Overlapping runs are skipped.
type Scheduler struct {
	schedule string
	r        Refresher
	cron     *cron.Cron
}

// New validates schedule and prepares a stopped scheduler.
func New(schedule string, r Refresher) (*Scheduler, error) {
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("scheduler: invalid schedule %q: %w", schedule, err)
	}
	return &Scheduler{
		schedule: schedule,
		r:        r,
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}, nil
}

// Start registers the job and starts ticking. Runs after ctx is canceled
// are no-ops; call Stop to release the cron goroutine.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.r.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err, "schedule", s.schedule)
		}
	})
	if err != nil {
		return fmt.Errorf("scheduler: add job: %w", err)
	}
	s.cron.Start()
	appLog.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	appLog.Info("scheduler stopped")
}
