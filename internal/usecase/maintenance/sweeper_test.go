package maintenance

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/domain/application"
	"github.com/EcrTech/FL-sub005/internal/domain/ledger"
	"github.com/EcrTech/FL-sub005/internal/testutil/testdb"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type requeuer struct {
	n   int
	err error
	age time.Duration
}

func (r *requeuer) RequeueStale(_ context.Context, olderThan time.Duration) (int, error) {
	r.age = olderThan
	return r.n, r.err
}

type expirer struct {
	n   int
	err error
}

func (e *expirer) ExpireStale(context.Context) (int, error) { return e.n, e.err }

func TestSweeper_RunsEveryTask(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	db := testdb.Open(t)
	a := testdb.SeedApplication(t, db, "org-a", application.StageDisbursed)
	testdb.SeedSchedule(t, db, a, decimal.NewFromInt(12000), time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC))

	jobs := &requeuer{n: 2}
	s := NewSweeper(jobs, gormrepo.NewScheduleRepository(db), &expirer{n: 1}, l)
	s.now = func() time.Time { return time.Date(2025, 4, 20, 9, 0, 0, 0, time.UTC) }

	rep, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// due dates 10 Feb, 10 Mar and 10 Apr have passed
	if rep.RequeuedJobs != 2 || rep.OverdueEntries != 3 || rep.ExpiredSignLinks != 1 || jobs.age != StaleJobAge {
		t.Fatalf("report = %+v (age %s)", rep, jobs.age)
	}
	var n int64
	db.Model(&ledger.ScheduleEntry{}).Where("status = ?", ledger.EntryOverdue).Count(&n)
	if n != 3 {
		t.Fatalf("overdue rows = %d", n)
	}
}

func TestSweeper_JoinsFailures(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)
	db := testdb.Open(t)
	jobErr := errors.New("redis down")
	signErr := errors.New("db busy")
	s := NewSweeper(&requeuer{err: jobErr}, gormrepo.NewScheduleRepository(db), &expirer{err: signErr}, l)

	err := s.Task(context.Background())
	if !errors.Is(err, jobErr) || !errors.Is(err, signErr) {
		t.Fatalf("want both failures, got %v", err)
	}
}
