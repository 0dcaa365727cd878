package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

// leaseHeldStatuses are the statuses a worker moves through while it owns
// a claimed job. Stale-lease recovery applies to all of them; claiming
// only ever matches queued.
var leaseHeldStatuses = []string{
	types.GenerationStatusRunning,
	types.GenerationStatusUploaded,
	types.GenerationStatusIndexed,
}

var activeStatuses = []string{
	types.GenerationStatusQueued,
	types.GenerationStatusRunning,
	types.GenerationStatusUploaded,
	types.GenerationStatusIndexed,
}

type GenerationJobRepo interface {
	// Enqueue inserts a new queued job. It fails with
	// ErrDuplicateGenerationJob if a non-failed job exists for the same
	// (fingerprint, job_id), and with ErrUserAtLimit if the user already
	// has maxUserConcurrent in-flight generations. The quota is a soft
	// limit: the count-then-insert runs in one transaction but concurrent
	// enqueuers may overshoot by one.
	Enqueue(ctx context.Context, tx *gorm.DB, job *types.GenerationJob, maxUserConcurrent int) (*types.GenerationJob, error)
	// ClaimNext atomically leases the oldest queued job older than grace.
	// Returns nil when the queue is empty.
	ClaimNext(ctx context.Context, tx *gorm.DB, workerID string, grace time.Duration) (*types.GenerationJob, error)
	// Transition is a compare-and-set on status. Returns false without
	// touching the row when the current status is not expectedFrom.
	Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedFrom, to string, patch map[string]interface{}) (bool, error)
	// ResetStale returns lost leases to the queue and bumps retry_count.
	ResetStale(ctx context.Context, tx *gorm.DB, threshold time.Duration) (int64, error)
	// DeleteExpired removes queue rows older than ttl regardless of status.
	DeleteExpired(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error)
	CountActiveForUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GenerationJob, error)
}

type generationJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGenerationJobRepo(db *gorm.DB, baseLog *logger.Logger) GenerationJobRepo {
	return &generationJobRepo{
		db:  db,
		log: baseLog.With("repo", "GenerationJobRepo"),
	}
}

func (r *generationJobRepo) Enqueue(ctx context.Context, tx *gorm.DB, job *types.GenerationJob, maxUserConcurrent int) (*types.GenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, errors.New("nil generation job")
	}
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = types.GenerationStatusQueued
	}
	job.OutputVideoID = job.JobID

	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		// Dedup wins over the quota: a live pair must report duplicate even
		// when its own user is at the concurrency cap.
		var dup int64
		if err := txx.Model(&types.GenerationJob{}).
			Where("query_fingerprint = ? AND job_id = ? AND status <> ?",
				job.QueryFingerprint, job.JobID, types.GenerationStatusFailed).
			Count(&dup).Error; err != nil {
			return err
		}
		if dup > 0 {
			return ErrDuplicateGenerationJob
		}

		var active int64
		if err := txx.Model(&types.GenerationJob{}).
			Where("user_id = ? AND status IN ?", job.UserID, activeStatuses).
			Count(&active).Error; err != nil {
			return err
		}
		if active >= int64(maxUserConcurrent) {
			return ErrUserAtLimit
		}

		return txx.Create(job).Error
	})
	if err != nil {
		// The partial unique index catches the race two transactions can
		// still lose to each other.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateGenerationJob
		}
		return nil, err
	}
	return job, nil
}

func (r *generationJobRepo) ClaimNext(ctx context.Context, tx *gorm.DB, workerID string, grace time.Duration) (*types.GenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	graceCutoff := now.Add(-grace)

	var claimed *types.GenerationJob
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.GenerationJob
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND created_at < ?", types.GenerationStatusQueued, graceCutoff).
			Order("created_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}

		if uErr := txx.Model(&types.GenerationJob{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":     types.GenerationStatusRunning,
				"worker_id":  workerID,
				"started_at": now,
				"updated_at": now,
			}).Error; uErr != nil {
			return uErr
		}

		job.Status = types.GenerationStatusRunning
		job.WorkerID = &workerID
		job.StartedAt = &now
		job.UpdatedAt = now
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *generationJobRepo) Transition(ctx context.Context, tx *gorm.DB, id uuid.UUID, expectedFrom, to string, patch map[string]interface{}) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return false, nil
	}

	updates := map[string]interface{}{
		"status":     to,
		"updated_at": time.Now(),
	}
	for k, v := range patch {
		updates[k] = v
	}
	if to == types.GenerationStatusReady || to == types.GenerationStatusFailed {
		if _, ok := updates["completed_at"]; !ok {
			updates["completed_at"] = time.Now()
		}
	}

	res := transaction.WithContext(ctx).
		Model(&types.GenerationJob{}).
		Where("id = ? AND status = ?", id, expectedFrom).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *generationJobRepo) ResetStale(ctx context.Context, tx *gorm.DB, threshold time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	staleCutoff := time.Now().Add(-threshold)

	res := transaction.WithContext(ctx).
		Model(&types.GenerationJob{}).
		Where("status IN ? AND started_at IS NOT NULL AND started_at < ?", leaseHeldStatuses, staleCutoff).
		Updates(map[string]interface{}{
			"status":      types.GenerationStatusQueued,
			"worker_id":   nil,
			"started_at":  nil,
			"retry_count": gorm.Expr("retry_count + 1"),
			"updated_at":  time.Now(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *generationJobRepo) DeleteExpired(ctx context.Context, tx *gorm.DB, ttl time.Duration) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	cutoff := time.Now().Add(-ttl)

	res := transaction.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&types.GenerationJob{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *generationJobRepo) CountActiveForUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.GenerationJob{}).
		Where("user_id = ? AND status IN ?", userID, activeStatuses).
		Count(&count).Error
	return count, err
}

func (r *generationJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.GenerationJob, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if id == uuid.Nil {
		return nil, nil
	}
	var job types.GenerationJob
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}
