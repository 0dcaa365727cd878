package app

import (
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/utils"
)

type Config struct {
	APIKey       string
	AllowOrigins []string
	AutoMigrate  bool

	SimilarityThreshold   float64
	TargetCount           int
	MaxGeneratePerRequest int
	MaxUserConcurrent     int
	VectorSearchLimit     int
	VectorSearchCands     int
	EmbeddingDim          int
	Templates             []string

	PollInterval  time.Duration
	SweepInterval time.Duration
	StaleAfter    time.Duration
	ClaimGrace    time.Duration
	QueueTTL      time.Duration
	MaxRetries    int
	WorkerTempDir string
}

// templatesFile is the optional YAML pool shape:
//
//	templates:
//	  - id: family_guy
//	  - id: spongebob
type templatesFile struct {
	Templates []struct {
		ID string `yaml:"id"`
	} `yaml:"templates"`
}

func LoadConfig(log *logger.Logger) Config {
	apiKey := utils.GetEnv("API_KEY", "", log)
	origins := splitCSV(utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", log))

	similarityThreshold := utils.GetEnvAsFloat("SIMILARITY_THRESHOLD", 0.75, log)
	targetCount := utils.GetEnvAsInt("TARGET_COUNT", 5, log)
	maxGeneratePerRequest := utils.GetEnvAsInt("MAX_GENERATE_PER_REQUEST", 5, log)
	maxUserConcurrent := utils.GetEnvAsInt("MAX_USER_CONCURRENT", 2, log)
	vectorSearchLimit := utils.GetEnvAsInt("VECTOR_SEARCH_LIMIT", 20, log)
	vectorSearchCands := utils.GetEnvAsInt("VECTOR_SEARCH_CANDIDATES", 50, log)
	embeddingDim := utils.GetEnvAsInt("EMBEDDING_DIM", 768, log)

	pollIntervalS := utils.GetEnvAsInt("POLL_INTERVAL_S", 5, log)
	jobTimeoutMin := utils.GetEnvAsInt("JOB_TIMEOUT_MIN", 10, log)
	maxRetries := utils.GetEnvAsInt("MAX_RETRIES", 3, log)
	queueTTLH := utils.GetEnvAsInt("QUEUE_TTL_H", 24, log)

	return Config{
		APIKey:       apiKey,
		AllowOrigins: origins,
		AutoMigrate:  utils.GetEnvAsBool("DB_AUTO_MIGRATE", true, log),

		SimilarityThreshold:   similarityThreshold,
		TargetCount:           targetCount,
		MaxGeneratePerRequest: maxGeneratePerRequest,
		MaxUserConcurrent:     maxUserConcurrent,
		VectorSearchLimit:     vectorSearchLimit,
		VectorSearchCands:     vectorSearchCands,
		EmbeddingDim:          embeddingDim,
		Templates:             loadTemplates(log),

		PollInterval:  time.Duration(pollIntervalS) * time.Second,
		SweepInterval: 5 * time.Minute,
		StaleAfter:    time.Duration(jobTimeoutMin) * time.Minute,
		ClaimGrace:    2 * time.Second,
		QueueTTL:      time.Duration(queueTTLH) * time.Hour,
		MaxRetries:    maxRetries,
		WorkerTempDir: utils.GetEnv("WORKER_TEMP_DIR", os.TempDir(), log),
	}
}

// loadTemplates resolves the rendering style pool: a YAML file when
// TEMPLATES_FILE is set, otherwise the VIDEO_TEMPLATES env list.
func loadTemplates(log *logger.Logger) []string {
	if path := strings.TrimSpace(os.Getenv("TEMPLATES_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Warn("could not read templates file, falling back to env", "path", path, "error", err.Error())
		} else {
			var f templatesFile
			if err := yaml.Unmarshal(raw, &f); err != nil {
				log.Warn("could not parse templates file, falling back to env", "path", path, "error", err.Error())
			} else {
				var out []string
				for _, t := range f.Templates {
					if id := strings.TrimSpace(t.ID); id != "" {
						out = append(out, id)
					}
				}
				if len(out) > 0 {
					return out
				}
			}
		}
	}
	return splitCSV(utils.GetEnv("VIDEO_TEMPLATES", "family_guy,spongebob,political", log))
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
