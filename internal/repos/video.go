package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

type VideoRepo interface {
	// CreateIfAbsent inserts the video row, treating an existing row with
	// the same video_id as success. Returns true when this call inserted.
	CreateIfAbsent(ctx context.Context, tx *gorm.DB, video *types.Video) (bool, error)
	GetByVideoID(ctx context.Context, tx *gorm.DB, videoID int64) (*types.Video, error)
	// GetReadyByVideoIDs returns only ready videos, keyed by id.
	GetReadyByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []int64) (map[int64]*types.Video, error)
	// ListReady returns up to limit arbitrary ready videos.
	ListReady(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Video, error)
}

type videoRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewVideoRepo(db *gorm.DB, baseLog *logger.Logger) VideoRepo {
	return &videoRepo{
		db:  db,
		log: baseLog.With("repo", "VideoRepo"),
	}
}

func (r *videoRepo) CreateIfAbsent(ctx context.Context, tx *gorm.DB, video *types.Video) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if video.Status == "" {
		video.Status = types.VideoStatusReady
	}
	res := transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "video_id"}},
			DoNothing: true,
		}).
		Create(video)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *videoRepo) GetByVideoID(ctx context.Context, tx *gorm.DB, videoID int64) (*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var video types.Video
	err := transaction.WithContext(ctx).
		Where("video_id = ?", videoID).
		Limit(1).
		Find(&video).Error
	if err != nil {
		return nil, err
	}
	if video.VideoID == 0 {
		return nil, nil
	}
	return &video, nil
}

func (r *videoRepo) GetReadyByVideoIDs(ctx context.Context, tx *gorm.DB, videoIDs []int64) (map[int64]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	out := make(map[int64]*types.Video, len(videoIDs))
	if len(videoIDs) == 0 {
		return out, nil
	}
	var videos []*types.Video
	err := transaction.WithContext(ctx).
		Where("video_id IN ? AND status = ?", videoIDs, types.VideoStatusReady).
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	for _, v := range videos {
		out[v.VideoID] = v
	}
	return out, nil
}

func (r *videoRepo) ListReady(ctx context.Context, tx *gorm.DB, limit int) ([]*types.Video, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 5
	}
	var videos []*types.Video
	err := transaction.WithContext(ctx).
		Where("status = ?", types.VideoStatusReady).
		Order("created_at DESC").
		Limit(limit).
		Find(&videos).Error
	if err != nil {
		return nil, err
	}
	return videos, nil
}
