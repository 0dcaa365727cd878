package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/clients/qdrant"
	"github.com/jobreel/jobreel-backend/internal/clients/spaces"
	"github.com/jobreel/jobreel-backend/internal/db"
	"github.com/jobreel/jobreel-backend/internal/logger"
)

func HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

type HealthHandler struct {
	log     *logger.Logger
	pg      *db.PostgresService
	storage spaces.Client
	index   qdrant.JobIndex
}

func NewHealthHandler(log *logger.Logger, pg *db.PostgresService, storage spaces.Client, index qdrant.JobIndex) *HealthHandler {
	return &HealthHandler{
		log:     log.With("handler", "HealthHandler"),
		pg:      pg,
		storage: storage,
		index:   index,
	}
}

// Ready probes every dependency and reports per-dependency status. It
// always answers 200: a degraded dependency is information for the
// operator, not a reason to have the orchestrator kill the process.
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := contextWithDeadline(c, 3*time.Second)
	defer cancel()

	deps := gin.H{}
	status := "ok"
	record := func(name string, err error) {
		if err != nil {
			h.log.Warn("dependency check failed", "dependency", name, "error", err.Error())
			deps[name] = err.Error()
			status = "degraded"
			return
		}
		deps[name] = "ok"
	}

	record("postgres", h.pg.Ping())
	record("object_store", h.storage.HeadBucket(ctx))
	record("vector_index", h.index.Ready(ctx))

	RespondOK(c, gin.H{"status": status, "deps": deps})
}
