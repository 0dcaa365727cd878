package services

import (
	"context"

	"github.com/jobreel/jobreel-backend/internal/clients/qdrant"
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
)

// FallbackScore is the sentinel attached to matches produced while the
// vector index is down. It sits below any realistic similarity threshold
// so degraded results land in the low-score partition and never trigger
// generation storms.
const FallbackScore = 0.5

type JobMatch struct {
	JobID int64
	Score float64
}

type JobSearchService interface {
	// TopK returns active jobs similar to the query vector, excluding
	// excludeJobIDs, sorted by descending score. When the vector index is
	// unreachable it degrades to arbitrary active jobs from the catalog
	// with FallbackScore and reports degraded=true. A degraded empty
	// result is only an error when the catalog itself is unreachable.
	TopK(ctx context.Context, vector []float32, excludeJobIDs []int64, limit, numCandidates int) (matches []JobMatch, degraded bool, err error)
}

type jobSearchService struct {
	log     *logger.Logger
	index   qdrant.JobIndex
	jobRepo repos.JobRepo
}

func NewJobSearchService(baseLog *logger.Logger, index qdrant.JobIndex, jobRepo repos.JobRepo) JobSearchService {
	return &jobSearchService{
		log:     baseLog.With("service", "JobSearchService"),
		index:   index,
		jobRepo: jobRepo,
	}
}

func (s *jobSearchService) TopK(ctx context.Context, vector []float32, excludeJobIDs []int64, limit, numCandidates int) ([]JobMatch, bool, error) {
	if numCandidates < limit {
		numCandidates = limit
	}

	hits, err := s.index.Search(ctx, vector, limit, numCandidates, excludeJobIDs)
	if err == nil {
		matches := make([]JobMatch, 0, len(hits))
		for _, h := range hits {
			matches = append(matches, JobMatch{JobID: h.JobID, Score: h.Score})
		}
		return matches, false, nil
	}
	if !qdrant.IsUnavailable(err) {
		return nil, false, err
	}
	s.log.Warn("vector index unavailable, serving degraded results", "error", err.Error())

	jobs, dbErr := s.jobRepo.ListActiveExcluding(ctx, nil, excludeJobIDs, limit)
	if dbErr != nil {
		// Both the index and the catalog are down; nothing left to degrade to.
		return nil, true, dbErr
	}
	matches := make([]JobMatch, 0, len(jobs))
	for _, j := range jobs {
		matches = append(matches, JobMatch{JobID: j.JobID, Score: FallbackScore})
	}
	return matches, true, nil
}
