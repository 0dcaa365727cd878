package repos

import (
	"context"

	"gorm.io/gorm"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

// JobRepo reads the job corpus. The corpus is owned by the ingestion
// pipeline; nothing here writes.
type JobRepo interface {
	GetByJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.Job, error)
	// ListActiveExcluding returns up to limit arbitrary active jobs not in
	// excludeJobIDs. Used as the degraded substitute when the vector index
	// is unreachable.
	ListActiveExcluding(ctx context.Context, tx *gorm.DB, excludeJobIDs []int64, limit int) ([]*types.Job, error)
}

type jobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRepo(db *gorm.DB, baseLog *logger.Logger) JobRepo {
	return &jobRepo{
		db:  db,
		log: baseLog.With("repo", "JobRepo"),
	}
}

func (r *jobRepo) GetByJobID(ctx context.Context, tx *gorm.DB, jobID int64) (*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.Job
	err := transaction.WithContext(ctx).
		Where("job_id = ?", jobID).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.JobID == 0 {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRepo) ListActiveExcluding(ctx context.Context, tx *gorm.DB, excludeJobIDs []int64, limit int) ([]*types.Job, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 20
	}
	q := transaction.WithContext(ctx).
		Where("active = ?", true)
	if len(excludeJobIDs) > 0 {
		q = q.Where("job_id NOT IN ?", excludeJobIDs)
	}
	var jobs []*types.Job
	err := q.Order("job_id ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}
	return jobs, nil
}
