package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/services"
)

// searchDeadline bounds one search round end to end: one embedding call,
// one vector query and a handful of catalog reads.
const searchDeadline = 5 * time.Second

type SearchHandler struct {
	log           *logger.Logger
	searchService services.SearchService
}

func NewSearchHandler(log *logger.Logger, searchService services.SearchService) *SearchHandler {
	return &SearchHandler{
		log:           log.With("handler", "SearchHandler"),
		searchService: searchService,
	}
}

type searchRequest struct {
	Query  string `json:"query" binding:"required"`
	UserID string `json:"user_id" binding:"required"`
}

type searchResponse struct {
	UserID              string   `json:"user_id"`
	JobIDs              []string `json:"job_ids"`
	Count               int      `json:"count"`
	GenerationTriggered bool     `json:"generation_triggered"`
	GenerationJobIDs    []string `json:"generation_job_ids"`
	Degraded            bool     `json:"degraded,omitempty"`
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("query must not be blank"))
		return
	}

	ctx, cancel := contextWithDeadline(c, searchDeadline)
	defer cancel()

	result, err := h.searchService.Search(ctx, req.Query, req.UserID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmbeddingUnavailable):
			RespondError(c, http.StatusBadGateway, "embedding_unavailable", err)
		case errors.Is(err, services.ErrEmbeddingMalformed):
			RespondError(c, http.StatusBadGateway, "embedding_malformed", err)
		default:
			h.log.Error("search failed", "user_id", req.UserID, "error", err.Error())
			RespondError(c, http.StatusServiceUnavailable, "search_unavailable", errors.New("search temporarily unavailable"))
		}
		return
	}

	jobIDs := make([]string, 0, len(result.JobIDs))
	for _, id := range result.JobIDs {
		jobIDs = append(jobIDs, strconv.FormatInt(id, 10))
	}
	genIDs := make([]string, 0, len(result.GenerationJobIDs))
	for _, id := range result.GenerationJobIDs {
		genIDs = append(genIDs, id.String())
	}

	RespondOK(c, searchResponse{
		UserID:              result.UserID,
		JobIDs:              jobIDs,
		Count:               len(jobIDs),
		GenerationTriggered: result.GenerationTriggered,
		GenerationJobIDs:    genIDs,
		Degraded:            result.Degraded,
	})
}
