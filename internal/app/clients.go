package app

import (
	"fmt"
	"os"
	"strings"

	"github.com/jobreel/jobreel-backend/internal/clients/gemini"
	"github.com/jobreel/jobreel-backend/internal/clients/qdrant"
	"github.com/jobreel/jobreel-backend/internal/clients/redis"
	"github.com/jobreel/jobreel-backend/internal/clients/renderer"
	"github.com/jobreel/jobreel-backend/internal/clients/spaces"
	"github.com/jobreel/jobreel-backend/internal/logger"
)

type Clients struct {
	Gemini     gemini.Client
	JobIndex   qdrant.JobIndex
	Spaces     spaces.Client
	Renderer   renderer.Client
	EmbedCache redis.EmbedCache
}

func wireClients(log *logger.Logger) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis is optional: without it every search pays one embedding call.
	var cache redis.EmbedCache
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		c, err := redis.NewEmbedCache(log)
		if err != nil {
			return Clients{}, fmt.Errorf("init redis embed cache: %w", err)
		}
		cache = c
	}

	geminiClient, err := gemini.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init gemini client: %w", err)
	}

	qdrantCfg, err := qdrant.ResolveConfigFromEnv()
	if err != nil {
		return Clients{}, fmt.Errorf("resolve qdrant config: %w", err)
	}
	jobIndex, err := qdrant.NewJobIndex(log, qdrantCfg)
	if err != nil {
		return Clients{}, fmt.Errorf("init qdrant job index: %w", err)
	}

	spacesClient, err := spaces.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init spaces client: %w", err)
	}

	rendererClient, err := renderer.NewClient(log)
	if err != nil {
		return Clients{}, fmt.Errorf("init renderer client: %w", err)
	}

	return Clients{
		Gemini:     geminiClient,
		JobIndex:   jobIndex,
		Spaces:     spacesClient,
		Renderer:   rendererClient,
		EmbedCache: cache,
	}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.EmbedCache != nil {
		_ = c.EmbedCache.Close()
	}
}
