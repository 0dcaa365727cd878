package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

type ViewRepo interface {
	// MarkSeen upserts (user, job) with seen=true. Idempotent; concurrent
	// calls collapse on the unique index.
	MarkSeen(ctx context.Context, tx *gorm.DB, userID string, jobID int64) error
	Check(ctx context.Context, tx *gorm.DB, userID string, jobID int64) (bool, error)
	// BulkCheck resolves many jobs in one scan. Missing pairs map to false.
	BulkCheck(ctx context.Context, tx *gorm.DB, userID string, jobIDs []int64) (map[int64]bool, error)
	// SeenJobIDs returns the user's full seen-set in insertion order.
	SeenJobIDs(ctx context.Context, tx *gorm.DB, userID string) ([]int64, error)
	ListSeen(ctx context.Context, tx *gorm.DB, userID string, limit, skip int) ([]*types.View, int64, error)
	// ResetUser deletes every view for the user and returns the count.
	ResetUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error)
}

type viewRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewViewRepo(db *gorm.DB, baseLog *logger.Logger) ViewRepo {
	return &viewRepo{
		db:  db,
		log: baseLog.With("repo", "ViewRepo"),
	}
}

func (r *viewRepo) MarkSeen(ctx context.Context, tx *gorm.DB, userID string, jobID int64) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	view := &types.View{
		ID:        uuid.New(),
		UserID:    userID,
		JobID:     jobID,
		Seen:      true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"seen":       true,
				"updated_at": now,
			}),
		}).
		Create(view).Error
}

func (r *viewRepo) Check(ctx context.Context, tx *gorm.DB, userID string, jobID int64) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var count int64
	err := transaction.WithContext(ctx).
		Model(&types.View{}).
		Where("user_id = ? AND job_id = ? AND seen = ?", userID, jobID, true).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *viewRepo) BulkCheck(ctx context.Context, tx *gorm.DB, userID string, jobIDs []int64) (map[int64]bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[int64]bool, len(jobIDs))
	for _, id := range jobIDs {
		out[id] = false
	}
	if len(jobIDs) == 0 {
		return out, nil
	}

	var seen []int64
	err := transaction.WithContext(ctx).
		Model(&types.View{}).
		Where("user_id = ? AND job_id IN ? AND seen = ?", userID, jobIDs, true).
		Pluck("job_id", &seen).Error
	if err != nil {
		return nil, err
	}
	for _, id := range seen {
		out[id] = true
	}
	return out, nil
}

func (r *viewRepo) SeenJobIDs(ctx context.Context, tx *gorm.DB, userID string) ([]int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var ids []int64
	err := transaction.WithContext(ctx).
		Model(&types.View{}).
		Where("user_id = ? AND seen = ?", userID, true).
		Order("created_at ASC").
		Pluck("job_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *viewRepo) ListSeen(ctx context.Context, tx *gorm.DB, userID string, limit, skip int) ([]*types.View, int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 50
	}
	if skip < 0 {
		skip = 0
	}

	var total int64
	if err := transaction.WithContext(ctx).
		Model(&types.View{}).
		Where("user_id = ? AND seen = ?", userID, true).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var views []*types.View
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND seen = ?", userID, true).
		Order("created_at ASC").
		Limit(limit).
		Offset(skip).
		Find(&views).Error
	if err != nil {
		return nil, 0, err
	}
	return views, total, nil
}

func (r *viewRepo) ResetUser(ctx context.Context, tx *gorm.DB, userID string) (int64, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	res := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&types.View{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
