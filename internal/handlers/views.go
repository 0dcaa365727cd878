package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/services"
)

type ViewsHandler struct {
	log         *logger.Logger
	viewService services.ViewService
}

func NewViewsHandler(log *logger.Logger, viewService services.ViewService) *ViewsHandler {
	return &ViewsHandler{
		log:         log.With("handler", "ViewsHandler"),
		viewService: viewService,
	}
}

type markSeenRequest struct {
	UserID string `json:"user_id" binding:"required"`
	JobID  string `json:"job_id" binding:"required"`
}

func (h *ViewsHandler) MarkSeen(c *gin.Context) {
	var req markSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	jobID, err := parseJobID(req.JobID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	if err := h.viewService.MarkSeen(c.Request.Context(), req.UserID, jobID); err != nil {
		h.log.Error("mark seen failed", "user_id", req.UserID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("view store unavailable"))
		return
	}
	RespondOK(c, gin.H{"user_id": req.UserID, "job_id": req.JobID, "seen": true})
}

func (h *ViewsHandler) Check(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("user_id required"))
		return
	}
	jobID, err := parseJobID(c.Query("job_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	seen, err := h.viewService.Check(c.Request.Context(), userID, jobID)
	if err != nil {
		h.log.Error("check failed", "user_id", userID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("view store unavailable"))
		return
	}
	RespondOK(c, gin.H{"user_id": userID, "job_id": c.Query("job_id"), "seen": seen})
}

type bulkCheckRequest struct {
	UserID string   `json:"user_id" binding:"required"`
	JobIDs []string `json:"job_ids" binding:"required"`
}

func (h *ViewsHandler) BulkCheck(c *gin.Context) {
	var req bulkCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	jobIDs := make([]int64, 0, len(req.JobIDs))
	for _, raw := range req.JobIDs {
		id, err := parseJobID(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
			return
		}
		jobIDs = append(jobIDs, id)
	}
	seen, err := h.viewService.BulkCheck(c.Request.Context(), req.UserID, jobIDs)
	if err != nil {
		h.log.Error("bulk check failed", "user_id", req.UserID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("view store unavailable"))
		return
	}
	out := make(map[string]bool, len(seen))
	for id, s := range seen {
		out[strconv.FormatInt(id, 10)] = s
	}
	RespondOK(c, gin.H{"user_id": req.UserID, "seen": out})
}

func (h *ViewsHandler) ListSeen(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("user_id required"))
		return
	}
	limit := parseIntQuery(c, "limit", 50)
	skip := parseIntQuery(c, "skip", 0)

	views, total, err := h.viewService.ListSeen(c.Request.Context(), userID, limit, skip)
	if err != nil {
		h.log.Error("list seen failed", "user_id", userID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("view store unavailable"))
		return
	}
	jobIDs := make([]string, 0, len(views))
	for _, v := range views {
		jobIDs = append(jobIDs, strconv.FormatInt(v.JobID, 10))
	}
	RespondOK(c, gin.H{
		"user_id": userID,
		"job_ids": jobIDs,
		"total":   total,
		"limit":   limit,
		"skip":    skip,
	})
}

func (h *ViewsHandler) Reset(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_request", errors.New("user_id required"))
		return
	}
	deleted, err := h.viewService.Reset(c.Request.Context(), userID)
	if err != nil {
		h.log.Error("view reset failed", "user_id", userID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("view store unavailable"))
		return
	}
	RespondOK(c, gin.H{"user_id": userID, "deleted": deleted})
}

func parseJobID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, errors.New("job_id must be an integer string")
	}
	return id, nil
}

func parseIntQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
