package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jobreel/jobreel-backend/internal/clients/gemini"
	"github.com/jobreel/jobreel-backend/internal/clients/redis"
	"github.com/jobreel/jobreel-backend/internal/logger"
)

var (
	// ErrEmbeddingUnavailable means the provider could not be reached or
	// kept failing after retries. Mapped to 502 at the HTTP surface.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrEmbeddingMalformed means the provider answered with a vector of
	// the wrong dimension. Not retryable: it is a configuration mismatch.
	ErrEmbeddingMalformed = errors.New("embedding dimension mismatch")
)

type EmbeddingService interface {
	// EmbedQuery returns the query vector for text. fingerprint keys the
	// optional cache; pass the normalized query fingerprint so identical
	// queries share one provider call.
	EmbedQuery(ctx context.Context, text, fingerprint string) ([]float32, error)
}

type embeddingService struct {
	log       *logger.Logger
	provider  gemini.Client
	cache     redis.EmbedCache
	dimension int
}

// NewEmbeddingService wraps the provider client with dimension validation
// and an optional vector cache. cache may be nil.
func NewEmbeddingService(baseLog *logger.Logger, provider gemini.Client, cache redis.EmbedCache, dimension int) EmbeddingService {
	return &embeddingService{
		log:       baseLog.With("service", "EmbeddingService"),
		provider:  provider,
		cache:     cache,
		dimension: dimension,
	}
}

func (s *embeddingService) EmbedQuery(ctx context.Context, text, fingerprint string) ([]float32, error) {
	if s.cache != nil && fingerprint != "" {
		if vec, ok := s.cache.Get(ctx, fingerprint); ok {
			if len(vec) == s.dimension {
				return vec, nil
			}
			s.log.Warn("cached vector has wrong dimension, discarding",
				"fingerprint", fingerprint, "got", len(vec), "want", s.dimension)
		}
	}

	vec, err := s.provider.Embed(ctx, text, gemini.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingUnavailable, err)
	}
	if len(vec) != s.dimension {
		return nil, fmt.Errorf("%w: want=%d got=%d", ErrEmbeddingMalformed, s.dimension, len(vec))
	}

	if s.cache != nil && fingerprint != "" {
		s.cache.Set(ctx, fingerprint, vec)
	}
	return vec, nil
}
