// Package maintenance holds the periodic housekeeping run by the cron
// scheduler.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/ledger"

	"github.com/sirupsen/logrus"
)

// StaleJobAge is how long a job may sit queued before it is pushed again.
const StaleJobAge = 5 * time.Minute

type JobRequeuer interface {
	RequeueStale(ctx context.Context, olderThan time.Duration) (int, error)
}

type SignExpirer interface {
	ExpireStale(ctx context.Context) (int, error)
}

type Sweeper struct {
	jobs     JobRequeuer
	schedule ledger.ScheduleRepository
	esign    SignExpirer
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewSweeper(jobs JobRequeuer, schedule ledger.ScheduleRepository, esign SignExpirer, log logrus.FieldLogger) *Sweeper {
	return &Sweeper{
		jobs:     jobs,
		schedule: schedule,
		esign:    esign,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type Report struct {
	RequeuedJobs     int
	OverdueEntries   int64
	ExpiredSignLinks int
}

// Run performs every task even when one fails and joins the failures.
func (s *Sweeper) Run(ctx context.Context) (Report, error) {
	var (
		rep  Report
		errs []error
		err  error
	)
	if rep.RequeuedJobs, err = s.jobs.RequeueStale(ctx, StaleJobAge); err != nil {
		errs = append(errs, fmt.Errorf("requeue jobs: %w", err))
	}
	today := s.now().Truncate(24 * time.Hour)
	if rep.OverdueEntries, err = s.schedule.MarkOverdue(ctx, today); err != nil {
		errs = append(errs, fmt.Errorf("mark overdue: %w", err))
	}
	if rep.ExpiredSignLinks, err = s.esign.ExpireStale(ctx); err != nil {
		errs = append(errs, fmt.Errorf("expire esign: %w", err))
	}
	if rep != (Report{}) {
		s.log.WithFields(logrus.Fields{
			"requeued_jobs":      rep.RequeuedJobs,
			"overdue_entries":    rep.OverdueEntries,
			"expired_sign_links": rep.ExpiredSignLinks,
		}).Info("sweep finished")
	}
	return rep, errors.Join(errs...)
}

// Task adapts Run to the scheduler's signature.
func (s *Sweeper) Task(ctx context.Context) error {
	_, err := s.Run(ctx)
	return err
}
