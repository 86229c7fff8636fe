package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dvdzapata/EPREL/internal/service"
)

// JobsHandler serves sync job progress endpoints.
type JobsHandler struct {
	stats *service.StatsService
}

func NewJobsHandler(stats *service.StatsService) *JobsHandler {
	return &JobsHandler{stats: stats}
}

// Latest handles GET /api/v1/jobs/latest.
func (h *JobsHandler) Latest(c *gin.Context) {
	detail, err := h.stats.LatestJob(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if detail == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no sync job has run yet"})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Get handles GET /api/v1/jobs/:id.
func (h *JobsHandler) Get(c *gin.Context) {
	detail, err := h.stats.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Checkpoints handles GET /api/v1/jobs/:id/checkpoints.
func (h *JobsHandler) Checkpoints(c *gin.Context) {
	detail, err := h.stats.Job(c.Request.Context(), c.Param("id"))
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"checkpoints": detail.Checkpoints})
}
