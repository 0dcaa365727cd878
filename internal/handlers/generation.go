package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/types"
)

type GenerationHandler struct {
	log     *logger.Logger
	genRepo repos.GenerationJobRepo
}

func NewGenerationHandler(log *logger.Logger, genRepo repos.GenerationJobRepo) *GenerationHandler {
	return &GenerationHandler{
		log:     log.With("handler", "GenerationHandler"),
		genRepo: genRepo,
	}
}

// Get reports the queue status of one generation job so clients can poll
// while a render is in flight.
func (h *GenerationHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("job_uuid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_uuid", errors.New("job_uuid must be a uuid"))
		return
	}
	job, err := h.genRepo.GetByID(c.Request.Context(), nil, id)
	if err != nil {
		h.log.Error("generation lookup failed", "job_uuid", id.String(), "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("queue store unavailable"))
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "generation_not_found", errors.New("no generation job with this uuid"))
		return
	}
	RespondOK(c, gin.H{
		"job_uuid":     job.ID.String(),
		"job_id":       strconv.FormatInt(job.JobID, 10),
		"status":       job.Status,
		"in_flight":    types.IsActiveGenerationStatus(job.Status),
		"template_id":  job.TemplateID,
		"retry_count":  job.RetryCount,
		"error":        job.Error,
		"created_at":   job.CreatedAt,
		"started_at":   job.StartedAt,
		"completed_at": job.CompletedAt,
	})
}
