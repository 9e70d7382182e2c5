package job

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/apperr"
	"gorm.io/datatypes"
)

type Kind string

const (
	KindContactsImport   Kind = "contacts.import"
	KindDocumentGenerate Kind = "document.generate"
	KindESignNotify      Kind = "esign.notify"
)

type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

var ErrNotFound = apperr.NotFound("job_not_found", "job not found")

// Job is the persisted record of background work. The queue only carries
// ids; this row is the source of truth for status.
type Job struct {
	ID         uint64         `gorm:"primaryKey;column:id" json:"-"`
	JobID      string         `gorm:"size:36;not null;uniqueIndex:ux_jobs_job_id" json:"job_id"`
	OrgID      string         `gorm:"size:64;not null" json:"-"`
	Kind       Kind           `gorm:"size:32;not null" json:"kind"`
	Status     Status         `gorm:"size:16;not null;index:idx_jobs_status_queued" json:"status"`
	Payload    datatypes.JSON `json:"-"`
	Result     datatypes.JSON `json:"result,omitempty"`
	Error      string         `gorm:"type:text" json:"error,omitempty"`
	Attempts   int            `gorm:"not null;default:0" json:"attempts"`
	QueuedAt   time.Time      `gorm:"not null;index:idx_jobs_status_queued" json:"queued_at"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Job) TableName() string { return "jobs" }

type Repository interface {
	Create(ctx context.Context, j *Job) error
	GetByJobID(ctx context.Context, jobID string) (*Job, error)
	// Claim moves a queued job to running; false means someone else has it.
	Claim(ctx context.Context, jobID string, now time.Time) (bool, error)
	Finish(ctx context.Context, jobID string, status Status, result []byte, errMsg string, now time.Time) error
	ListStaleQueued(ctx context.Context, before time.Time, limit int) ([]Job, error)
	Touch(ctx context.Context, jobID string, now time.Time) error
}

// Queue is the dispatch channel between API and workers.
type Queue interface {
	Push(ctx context.Context, jobID string) error
	// Pop blocks up to timeout; "" with nil error means nothing arrived.
	Pop(ctx context.Context, timeout time.Duration) (string, error)
}
