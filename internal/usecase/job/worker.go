package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	domain "github.com/EcrTech/FL-sub005/internal/domain/job"

	"github.com/sirupsen/logrus"
)

// Handler runs one job. The result is stored as JSON on the job row.
type Handler func(ctx context.Context, j *domain.Job) (any, error)

type Worker struct {
	repo     domain.Repository
	queue    domain.Queue
	handlers map[domain.Kind]Handler
	workers  int
	poll     time.Duration
	log      logrus.FieldLogger
	now      func() time.Time
}

func NewWorker(repo domain.Repository, q domain.Queue, workers int, log logrus.FieldLogger) *Worker {
	if workers < 1 {
		workers = 1
	}
	return &Worker{
		repo:     repo,
		queue:    q,
		handlers: make(map[domain.Kind]Handler),
		workers:  workers,
		poll:     2 * time.Second,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (w *Worker) Register(kind domain.Kind, h Handler) { w.handlers[kind] = h }

// Run blocks until ctx is cancelled and every in-flight job has finished.
func (w *Worker) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w.loop(ctx, w.log.WithField("worker", n))
		}(i)
	}
	wg.Wait()
}

func (w *Worker) loop(ctx context.Context, log logrus.FieldLogger) {
	for ctx.Err() == nil {
		jobID, err := w.queue.Pop(ctx, w.poll)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Warn("queue pop failed")
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if jobID == "" {
			continue
		}
		// a job that has started runs to completion on shutdown
		if err := w.Process(context.WithoutCancel(ctx), jobID); err != nil {
			log.WithError(err).WithField("job_id", jobID).Error("job processing failed")
		}
	}
}

// Process claims and runs one job. Losing the claim is not an error.
func (w *Worker) Process(ctx context.Context, jobID string) error {
	ok, err := w.repo.Claim(ctx, jobID, w.now())
	if err != nil {
		return err
	}
	if !ok {
		w.log.WithField("job_id", jobID).Debug("job already claimed")
		return nil
	}
	j, err := w.repo.GetByJobID(ctx, jobID)
	if err != nil {
		// the claim already moved it to running; fail it so it is not stranded
		if ferr := w.repo.Finish(ctx, jobID, domain.StatusFailed, nil, "load job: "+err.Error(), w.now()); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	log := w.log.WithFields(logrus.Fields{"job_id": j.JobID, "kind": j.Kind, "org_id": j.OrgID})

	h, found := w.handlers[j.Kind]
	if !found {
		return w.repo.Finish(ctx, j.JobID, domain.StatusFailed, nil, fmt.Sprintf("no handler for kind %q", j.Kind), w.now())
	}

	start := time.Now()
	res, runErr := safeRun(ctx, h, j)
	if runErr != nil {
		log.WithError(runErr).Warn("job failed")
		var raw []byte
		if res != nil {
			raw, _ = json.Marshal(res)
		}
		return w.repo.Finish(ctx, j.JobID, domain.StatusFailed, raw, runErr.Error(), w.now())
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return w.repo.Finish(ctx, j.JobID, domain.StatusFailed, nil, "encode result: "+err.Error(), w.now())
	}
	log.WithField("took", time.Since(start).String()).Info("job succeeded")
	return w.repo.Finish(ctx, j.JobID, domain.StatusSucceeded, raw, "", w.now())
}

func safeRun(ctx context.Context, h Handler, j *domain.Job) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h(ctx, j)
}

// DecodePayload unmarshals a job payload into v.
func DecodePayload(j *domain.Job, v any) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", j.Kind, err)
	}
	return nil
}
