package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/access"
	domain "github.com/EcrTech/FL-sub005/internal/domain/job"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const staleBatch = 100

// Enqueuer is what usecases need to hand work to the worker pool.
type Enqueuer interface {
	Enqueue(ctx context.Context, orgID string, kind domain.Kind, payload any) (*domain.Job, error)
}

var _ Enqueuer = (*Service)(nil)

// Service records jobs and hands their ids to the queue.
type Service struct {
	repo  domain.Repository
	queue domain.Queue
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(repo domain.Repository, q domain.Queue, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, queue: q, log: log, now: func() time.Time { return time.Now().UTC() }}
}

// Enqueue persists the job before pushing. A failed push leaves the job
// queued for the sweeper to re-push.
func (s *Service) Enqueue(ctx context.Context, orgID string, kind domain.Kind, payload any) (*domain.Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", kind, err)
	}
	j := &domain.Job{
		JobID:    uuid.NewString(),
		OrgID:    orgID,
		Kind:     kind,
		Status:   domain.StatusQueued,
		Payload:  raw,
		QueuedAt: s.now(),
	}
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	if err := s.queue.Push(ctx, j.JobID); err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{"job_id": j.JobID, "kind": kind}).Warn("queue push failed, left for sweeper")
	}
	return j, nil
}

func (s *Service) Get(ctx context.Context, p access.Principal, jobID string) (*domain.Job, error) {
	if err := p.Authenticated(); err != nil {
		return nil, err
	}
	j, err := s.repo.GetByJobID(ctx, jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if j.OrgID != p.OrgID {
		return nil, domain.ErrNotFound
	}
	return j, nil
}

// RequeueStale re-pushes jobs still queued after olderThan, which covers
// lost pushes and a queue flushed by a Redis restart.
func (s *Service) RequeueStale(ctx context.Context, olderThan time.Duration) (int, error) {
	now := s.now()
	stale, err := s.repo.ListStaleQueued(ctx, now.Add(-olderThan), staleBatch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, j := range stale {
		if err := s.repo.Touch(ctx, j.JobID, now); err != nil {
			return n, err
		}
		if err := s.queue.Push(ctx, j.JobID); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.log.WithField("count", n).Info("requeued stale jobs")
	}
	return n, nil
}
