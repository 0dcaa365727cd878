package services

import (
	"context"
	"errors"
	"math/rand"

	"github.com/google/uuid"

	"github.com/jobreel/jobreel-backend/internal/fingerprint"
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/types"
)

// SearchConfig carries the coordinator's tunables. Defaults mirror the
// environment surface resolved in app.Config.
type SearchConfig struct {
	SimilarityThreshold   float64
	TargetCount           int
	MaxGeneratePerRequest int
	MaxUserConcurrent     int
	VectorSearchLimit     int
	VectorSearchCands     int
	Templates             []string
}

type SearchResult struct {
	UserID              string
	JobIDs              []int64
	GenerationTriggered bool
	GenerationJobIDs    []uuid.UUID
	Degraded            bool
}

type SearchService interface {
	// Search runs one full search round for a user: embed the query, rank
	// unseen jobs, serve what already has a ready video and queue
	// generation for the high-similarity remainder.
	Search(ctx context.Context, query, userID string) (*SearchResult, error)
}

type searchService struct {
	log        *logger.Logger
	cfg        SearchConfig
	embeddings EmbeddingService
	jobSearch  JobSearchService
	viewRepo   repos.ViewRepo
	videoRepo  repos.VideoRepo
	genRepo    repos.GenerationJobRepo
}

func NewSearchService(
	baseLog *logger.Logger,
	cfg SearchConfig,
	embeddings EmbeddingService,
	jobSearch JobSearchService,
	viewRepo repos.ViewRepo,
	videoRepo repos.VideoRepo,
	genRepo repos.GenerationJobRepo,
) SearchService {
	return &searchService{
		log:        baseLog.With("service", "SearchService"),
		cfg:        cfg,
		embeddings: embeddings,
		jobSearch:  jobSearch,
		viewRepo:   viewRepo,
		videoRepo:  videoRepo,
		genRepo:    genRepo,
	}
}

func (s *searchService) Search(ctx context.Context, query, userID string) (*SearchResult, error) {
	fp := fingerprint.Fingerprint(query)
	log := s.log.With("user_id", userID, "fingerprint", fp)

	vec, err := s.embeddings.EmbedQuery(ctx, query, fp)
	if err != nil {
		return nil, err
	}

	seen, err := s.viewRepo.SeenJobIDs(ctx, nil, userID)
	if err != nil {
		return nil, err
	}

	matches, degraded, err := s.jobSearch.TopK(ctx, vec, seen, s.cfg.VectorSearchLimit, s.cfg.VectorSearchCands)
	if err != nil {
		return nil, err
	}

	// The user has watched their way through the whole unseen tail. Cycle:
	// wipe the ledger and search again without the exclusion.
	if len(matches) == 0 && len(seen) > 0 {
		if _, err := s.viewRepo.ResetUser(ctx, nil, userID); err != nil {
			return nil, err
		}
		log.Info("unseen tail exhausted, view ledger auto-reset")
		seen = nil
		matches, degraded, err = s.jobSearch.TopK(ctx, vec, nil, s.cfg.VectorSearchLimit, s.cfg.VectorSearchCands)
		if err != nil {
			return nil, err
		}
	}

	tierA, tierB, tierC, err := s.partition(ctx, matches)
	if err != nil {
		return nil, err
	}

	// Nothing watchable among the candidates. If the user had history, the
	// exclusion is what starved us: reset and serve arbitrary ready videos
	// rather than an empty page.
	if len(tierA)+len(tierB) == 0 && len(seen) > 0 {
		return s.recoverFromCatalog(ctx, log, userID, degraded)
	}

	result := append(append([]int64{}, tierA...), tierB...)
	if len(result) > s.cfg.TargetCount {
		result = result[:s.cfg.TargetCount]
	}

	var genIDs []uuid.UUID
	if deficit := s.cfg.TargetCount - len(tierA); deficit > 0 {
		toGenerate := tierC
		limit := deficit
		if limit > s.cfg.MaxGeneratePerRequest {
			limit = s.cfg.MaxGeneratePerRequest
		}
		if len(toGenerate) > limit {
			toGenerate = toGenerate[:limit]
		}
		genIDs = s.enqueueGenerations(ctx, log, fp, userID, toGenerate)
	}

	for _, jobID := range result {
		if err := s.viewRepo.MarkSeen(ctx, nil, userID, jobID); err != nil {
			return nil, err
		}
	}

	log.Info("search served",
		"results", len(result),
		"generations", len(genIDs),
		"degraded", degraded,
	)
	return &SearchResult{
		UserID:              userID,
		JobIDs:              result,
		GenerationTriggered: len(genIDs) > 0,
		GenerationJobIDs:    genIDs,
		Degraded:            degraded,
	}, nil
}

// partition splits ranked matches into three tiers against the video
// catalog: high score with a ready video, low score with a ready video,
// and high score with nothing to play yet. Low-score videoless matches
// are dropped.
func (s *searchService) partition(ctx context.Context, matches []JobMatch) (tierA, tierB, tierC []int64, err error) {
	if len(matches) == 0 {
		return nil, nil, nil, nil
	}
	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.JobID)
	}
	ready, err := s.videoRepo.GetReadyByVideoIDs(ctx, nil, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	for _, m := range matches {
		_, hasVideo := ready[m.JobID]
		switch {
		case hasVideo && m.Score >= s.cfg.SimilarityThreshold:
			tierA = append(tierA, m.JobID)
		case hasVideo:
			tierB = append(tierB, m.JobID)
		case m.Score >= s.cfg.SimilarityThreshold:
			tierC = append(tierC, m.JobID)
		}
	}
	return tierA, tierB, tierC, nil
}

// recoverFromCatalog serves arbitrary ready videos after a view reset.
// Generation is deliberately not triggered here: the user is being cycled
// back through existing content, not waiting on new renders.
func (s *searchService) recoverFromCatalog(ctx context.Context, log *logger.Logger, userID string, degraded bool) (*SearchResult, error) {
	if _, err := s.viewRepo.ResetUser(ctx, nil, userID); err != nil {
		return nil, err
	}
	videos, err := s.videoRepo.ListReady(ctx, nil, s.cfg.TargetCount)
	if err != nil {
		return nil, err
	}
	jobIDs := make([]int64, 0, len(videos))
	for _, v := range videos {
		jobIDs = append(jobIDs, v.VideoID)
		if err := s.viewRepo.MarkSeen(ctx, nil, userID, v.VideoID); err != nil {
			return nil, err
		}
	}
	log.Info("no watchable candidates, recycled catalog", "results", len(jobIDs))
	return &SearchResult{
		UserID:              userID,
		JobIDs:              jobIDs,
		GenerationTriggered: false,
		GenerationJobIDs:    nil,
		Degraded:            degraded,
	}, nil
}

// enqueueGenerations queues a render for each job, tolerating dedup and
// quota rejections. Anything else is logged and skipped too: a failed
// enqueue must never fail the search that noticed the gap.
func (s *searchService) enqueueGenerations(ctx context.Context, log *logger.Logger, fp, userID string, jobIDs []int64) []uuid.UUID {
	var out []uuid.UUID
	for _, jobID := range jobIDs {
		job := &types.GenerationJob{
			JobID:            jobID,
			TemplateID:       s.pickTemplate(),
			QueryFingerprint: fp,
			UserID:           userID,
			Status:           types.GenerationStatusQueued,
		}
		created, err := s.genRepo.Enqueue(ctx, nil, job, s.cfg.MaxUserConcurrent)
		if err != nil {
			switch {
			case errors.Is(err, repos.ErrDuplicateGenerationJob):
				log.Debug("generation already queued", "job_id", jobID)
			case errors.Is(err, repos.ErrUserAtLimit):
				log.Info("generation quota reached", "job_id", jobID)
			default:
				log.Error("enqueue generation failed", "job_id", jobID, "error", err.Error())
			}
			continue
		}
		out = append(out, created.ID)
	}
	return out
}

func (s *searchService) pickTemplate() string {
	if len(s.cfg.Templates) == 0 {
		return ""
	}
	return s.cfg.Templates[rand.Intn(len(s.cfg.Templates))]
}
