package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/types"
)

type VideoHandler struct {
	log       *logger.Logger
	videoRepo repos.VideoRepo
}

func NewVideoHandler(log *logger.Logger, videoRepo repos.VideoRepo) *VideoHandler {
	return &VideoHandler{
		log:       log.With("handler", "VideoHandler"),
		videoRepo: videoRepo,
	}
}

// Get returns playback metadata for one generated video.
func (h *VideoHandler) Get(c *gin.Context) {
	jobID, err := parseJobID(c.Param("job_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	video, err := h.videoRepo.GetByVideoID(c.Request.Context(), nil, jobID)
	if err != nil {
		h.log.Error("video lookup failed", "job_id", jobID, "error", err.Error())
		RespondError(c, http.StatusServiceUnavailable, "store_unavailable", errors.New("video store unavailable"))
		return
	}
	if video == nil || video.Status != types.VideoStatusReady {
		RespondError(c, http.StatusNotFound, "video_not_found", errors.New("no ready video for this job"))
		return
	}
	RespondOK(c, gin.H{
		"video_id":     c.Param("job_id"),
		"status":       video.Status,
		"manifest_key": video.ManifestKey,
		"cdn_url":      video.CDNURL,
		"poster_url":   posterURL(video.CDNURL),
		"template_id":  video.TemplateID,
		"created_at":   video.CreatedAt,
	})
}

// posterURL maps the manifest URL to its sibling poster image. The
// renderer always writes poster.jpg next to master.m3u8.
func posterURL(manifestURL string) string {
	idx := strings.LastIndex(manifestURL, "/")
	if idx < 0 {
		return ""
	}
	return manifestURL[:idx+1] + "poster.jpg"
}
