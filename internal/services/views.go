package services

import (
	"context"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/types"
)

type ViewService interface {
	MarkSeen(ctx context.Context, userID string, jobID int64) error
	Check(ctx context.Context, userID string, jobID int64) (bool, error)
	BulkCheck(ctx context.Context, userID string, jobIDs []int64) (map[int64]bool, error)
	ListSeen(ctx context.Context, userID string, limit, skip int) ([]*types.View, int64, error)
	Reset(ctx context.Context, userID string) (int64, error)
}

type viewService struct {
	log      *logger.Logger
	viewRepo repos.ViewRepo
}

func NewViewService(baseLog *logger.Logger, viewRepo repos.ViewRepo) ViewService {
	return &viewService{
		log:      baseLog.With("service", "ViewService"),
		viewRepo: viewRepo,
	}
}

func (s *viewService) MarkSeen(ctx context.Context, userID string, jobID int64) error {
	return s.viewRepo.MarkSeen(ctx, nil, userID, jobID)
}

func (s *viewService) Check(ctx context.Context, userID string, jobID int64) (bool, error) {
	return s.viewRepo.Check(ctx, nil, userID, jobID)
}

func (s *viewService) BulkCheck(ctx context.Context, userID string, jobIDs []int64) (map[int64]bool, error) {
	return s.viewRepo.BulkCheck(ctx, nil, userID, jobIDs)
}

func (s *viewService) ListSeen(ctx context.Context, userID string, limit, skip int) ([]*types.View, int64, error) {
	return s.viewRepo.ListSeen(ctx, nil, userID, limit, skip)
}

func (s *viewService) Reset(ctx context.Context, userID string) (int64, error) {
	count, err := s.viewRepo.ResetUser(ctx, nil, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info("view history reset", "user_id", userID, "deleted", count)
	return count, nil
}
