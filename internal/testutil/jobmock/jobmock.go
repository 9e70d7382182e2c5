// Package jobmock records enqueued background jobs for usecase tests.
package jobmock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/EcrTech/FL-sub005/internal/domain/job"
	jobuc "github.com/EcrTech/FL-sub005/internal/usecase/job"
)

var _ jobuc.Enqueuer = (*Recorder)(nil)

// Recorder keeps every enqueued job in memory. Err, when set, is returned
// instead of recording.
type Recorder struct {
	mu   sync.Mutex
	Jobs []job.Job
	Err  error
}

func (r *Recorder) Enqueue(_ context.Context, orgID string, kind job.Kind, payload any) (*job.Job, error) {
	if r.Err != nil {
		return nil, r.Err
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	j := job.Job{
		JobID:   fmt.Sprintf("job-%d", len(r.Jobs)+1),
		OrgID:   orgID,
		Kind:    kind,
		Status:  job.StatusQueued,
		Payload: raw,
	}
	r.Jobs = append(r.Jobs, j)
	return &j, nil
}

// Last returns the most recent job, or nil.
func (r *Recorder) Last() *job.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Jobs) == 0 {
		return nil
	}
	j := r.Jobs[len(r.Jobs)-1]
	return &j
}
