package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dvdzapata/EPREL/internal/service"
)

// StatsHandler serves catalog statistics endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Overview handles GET /api/v1/stats.
func (h *StatsHandler) Overview(c *gin.Context) {
	overview, err := h.stats.Overview(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, overview)
}
