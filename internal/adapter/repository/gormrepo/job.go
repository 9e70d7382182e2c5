package gormrepo

import (
	"context"
	"time"

	"github.com/EcrTech/FL-sub005/internal/domain/job"

	"gorm.io/gorm"
)

type JobRepository struct{ db *gorm.DB }

func NewJobRepository(db *gorm.DB) *JobRepository { return &JobRepository{db: db} }

func (r *JobRepository) Create(ctx context.Context, j *job.Job) error {
	return r.db.WithContext(ctx).Create(j).Error
}

func (r *JobRepository) GetByJobID(ctx context.Context, jobID string) (*job.Job, error) {
	var out job.Job
	if err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// Claim is a conditional update so two workers never run the same job.
func (r *JobRepository) Claim(ctx context.Context, jobID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&job.Job{}).
		Where("job_id = ? AND status = ?", jobID, job.StatusQueued).
		Updates(map[string]any{
			"status":     job.StatusRunning,
			"started_at": now,
			"attempts":   gorm.Expr("attempts + 1"),
		})
	return res.RowsAffected == 1, res.Error
}

func (r *JobRepository) Finish(ctx context.Context, jobID string, status job.Status, result []byte, errMsg string, now time.Time) error {
	updates := map[string]any{
		"status":      status,
		"error":       errMsg,
		"finished_at": now,
	}
	if result != nil {
		updates["result"] = result
	}
	return r.db.WithContext(ctx).
		Model(&job.Job{}).
		Where("job_id = ?", jobID).
		Updates(updates).Error
}

func (r *JobRepository) ListStaleQueued(ctx context.Context, before time.Time, limit int) ([]job.Job, error) {
	var out []job.Job
	err := r.db.WithContext(ctx).
		Where("status = ? AND queued_at < ?", job.StatusQueued, before).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

func (r *JobRepository) Touch(ctx context.Context, jobID string, now time.Time) error {
	return r.db.WithContext(ctx).
		Model(&job.Job{}).
		Where("job_id = ?", jobID).
		Update("queued_at", now).Error
}
