package app

import (
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/services"
)

type Services struct {
	Embedding services.EmbeddingService
	JobSearch services.JobSearchService
	Search    services.SearchService
	Views     services.ViewService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) Services {
	log.Info("Wiring services...")

	embedding := services.NewEmbeddingService(log, clients.Gemini, clients.EmbedCache, cfg.EmbeddingDim)
	jobSearch := services.NewJobSearchService(log, clients.JobIndex, reposet.Job)
	search := services.NewSearchService(
		log,
		services.SearchConfig{
			SimilarityThreshold:   cfg.SimilarityThreshold,
			TargetCount:           cfg.TargetCount,
			MaxGeneratePerRequest: cfg.MaxGeneratePerRequest,
			MaxUserConcurrent:     cfg.MaxUserConcurrent,
			VectorSearchLimit:     cfg.VectorSearchLimit,
			VectorSearchCands:     cfg.VectorSearchCands,
			Templates:             cfg.Templates,
		},
		embedding,
		jobSearch,
		reposet.View,
		reposet.Video,
		reposet.GenerationJob,
	)
	views := services.NewViewService(log, reposet.View)

	return Services{
		Embedding: embedding,
		JobSearch: jobSearch,
		Search:    search,
		Views:     views,
	}
}
