package job

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/EcrTech/FL-sub005/internal/adapter/repository/gormrepo"
	"github.com/EcrTech/FL-sub005/internal/domain/access"
	domain "github.com/EcrTech/FL-sub005/internal/domain/job"
	"github.com/EcrTech/FL-sub005/internal/testutil/testdb"

	"github.com/sirupsen/logrus"
)

type memQueue struct {
	mu   sync.Mutex
	ids  []string
	fail error
}

func (q *memQueue) Push(_ context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return q.fail
	}
	q.ids = append(q.ids, id)
	return nil
}

func (q *memQueue) Pop(ctx context.Context, timeout time.Duration) (string, error) {
	q.mu.Lock()
	if len(q.ids) > 0 {
		id := q.ids[0]
		q.ids = q.ids[1:]
		q.mu.Unlock()
		return id, nil
	}
	q.mu.Unlock()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(10 * time.Millisecond):
		return "", nil
	}
}

func quietLog() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func newRepo(t *testing.T) domain.Repository {
	return gormrepo.NewJobRepository(testdb.Open(t))
}

func TestEnqueue_PersistsThenPushes(t *testing.T) {
	repo := newRepo(t)
	q := &memQueue{}
	s := NewService(repo, q, quietLog())

	j, err := s.Enqueue(context.Background(), "org-a", domain.KindContactsImport, map[string]string{"batch_id": "b1"})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if len(q.ids) != 1 || q.ids[0] != j.JobID {
		t.Fatalf("queue = %v", q.ids)
	}
	got, err := s.Get(context.Background(), access.Principal{UserID: "u", OrgID: "org-a"}, j.JobID)
	if err != nil || got.Status != domain.StatusQueued || string(got.Payload) != `{"batch_id":"b1"}` {
		t.Fatalf("Get = %+v, %v", got, err)
	}
	if _, err := s.Get(context.Background(), access.Principal{UserID: "u", OrgID: "org-b"}, j.JobID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("other org: want ErrNotFound, got %v", err)
	}
}

func TestEnqueue_PushFailureKeepsJob(t *testing.T) {
	repo := newRepo(t)
	s := NewService(repo, &memQueue{fail: errors.New("redis down")}, quietLog())
	j, err := s.Enqueue(context.Background(), "org-a", domain.KindESignNotify, nil)
	if err != nil {
		t.Fatalf("push failure must not fail enqueue: %v", err)
	}
	if _, err := repo.GetByJobID(context.Background(), j.JobID); err != nil {
		t.Fatalf("job not persisted: %v", err)
	}
}

func TestRequeueStale(t *testing.T) {
	repo := newRepo(t)
	q := &memQueue{fail: errors.New("down")}
	s := NewService(repo, q, quietLog())
	past := time.Now().UTC().Add(-time.Hour)
	s.now = func() time.Time { return past }
	j, _ := s.Enqueue(context.Background(), "org-a", domain.KindDocumentGenerate, nil)

	q.fail = nil
	s.now = func() time.Time { return time.Now().UTC() }
	n, err := s.RequeueStale(context.Background(), 5*time.Minute)
	if err != nil || n != 1 || len(q.ids) != 1 || q.ids[0] != j.JobID {
		t.Fatalf("RequeueStale = %d, %v, queue %v", n, err, q.ids)
	}
	n, _ = s.RequeueStale(context.Background(), 5*time.Minute)
	if n != 0 {
		t.Fatalf("touched job requeued again: %d", n)
	}
}

func TestWorkerProcess(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := NewService(repo, &memQueue{}, quietLog())
	w := NewWorker(repo, &memQueue{}, 1, quietLog())

	type payload struct{ N int }
	w.Register(domain.KindDocumentGenerate, func(_ context.Context, j *domain.Job) (any, error) {
		var p payload
		if err := DecodePayload(j, &p); err != nil {
			return nil, err
		}
		return map[string]int{"double": p.N * 2}, nil
	})
	w.Register(domain.KindESignNotify, func(context.Context, *domain.Job) (any, error) {
		panic("boom")
	})

	ok, _ := s.Enqueue(ctx, "o", domain.KindDocumentGenerate, payload{N: 21})
	bad, _ := s.Enqueue(ctx, "o", domain.KindESignNotify, nil)
	orphan, _ := s.Enqueue(ctx, "o", domain.KindContactsImport, nil)

	for _, id := range []string{ok.JobID, bad.JobID, orphan.JobID} {
		if err := w.Process(ctx, id); err != nil {
			t.Fatalf("Process(%s): %v", id, err)
		}
	}
	got, _ := repo.GetByJobID(ctx, ok.JobID)
	if got.Status != domain.StatusSucceeded || string(got.Result) != `{"double":42}` {
		t.Fatalf("ok job = %+v", got)
	}
	got, _ = repo.GetByJobID(ctx, bad.JobID)
	if got.Status != domain.StatusFailed || got.Error != "panic: boom" {
		t.Fatalf("panicking job = %+v", got)
	}
	got, _ = repo.GetByJobID(ctx, orphan.JobID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("unhandled kind = %+v", got)
	}

	// a second delivery of a finished job is ignored
	if err := w.Process(ctx, ok.JobID); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	got, _ = repo.GetByJobID(ctx, ok.JobID)
	if got.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.Attempts)
	}
}

func TestWorkerRun_DrainsQueueAndStops(t *testing.T) {
	repo := newRepo(t)
	q := &memQueue{}
	s := NewService(repo, q, quietLog())
	w := NewWorker(repo, q, 2, quietLog())

	var mu sync.Mutex
	seen := 0
	done := make(chan struct{})
	w.Register(domain.KindDocumentGenerate, func(context.Context, *domain.Job) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		seen++
		if seen == 3 {
			close(done)
		}
		return nil, nil
	})
	var enqueued []string
	for i := 0; i < 3; i++ {
		j, err := s.Enqueue(context.Background(), "o", domain.KindDocumentGenerate, map[string]int{"n": i})
		if err != nil {
			t.Fatalf("enqueue: %v", err)
		}
		enqueued = append(enqueued, j.JobID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(stopped)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("jobs not processed")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("worker did not stop")
	}
	for _, id := range enqueued {
		got, err := repo.GetByJobID(context.Background(), id)
		if err != nil || got.Status != domain.StatusSucceeded {
			t.Fatalf("job %s = %+v, %v", id, got, err)
		}
	}
}

type failingLoad struct {
	domain.Repository
	err error
}

func (f failingLoad) GetByJobID(ctx context.Context, jobID string) (*domain.Job, error) {
	return nil, f.err
}

func TestWorkerProcess_LoadFailureFailsClaimedJob(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	s := NewService(repo, &memQueue{}, quietLog())
	j, _ := s.Enqueue(ctx, "o", domain.KindDocumentGenerate, map[string]string{"k": "v"})

	loadErr := errors.New("scan failed")
	w := NewWorker(failingLoad{Repository: repo, err: loadErr}, &memQueue{}, 1, quietLog())
	w.Register(domain.KindDocumentGenerate, func(context.Context, *domain.Job) (any, error) {
		t.Fatalf("handler must not run")
		return nil, nil
	})
	if err := w.Process(ctx, j.JobID); !errors.Is(err, loadErr) {
		t.Fatalf("want load error, got %v", err)
	}
	got, err := repo.GetByJobID(ctx, j.JobID)
	if err != nil {
		t.Fatalf("GetByJobID: %v", err)
	}
	if got.Status != domain.StatusFailed || got.Error != "load job: scan failed" {
		t.Fatalf("job = %+v, want failed", got)
	}
}
