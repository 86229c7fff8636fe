package api

import (
	"github.com/gin-gonic/gin"

	"github.com/dvdzapata/EPREL/internal/api/handler"
	"github.com/dvdzapata/EPREL/internal/api/middleware"
	"github.com/dvdzapata/EPREL/internal/config"
	"github.com/dvdzapata/EPREL/internal/logger"
	"github.com/dvdzapata/EPREL/internal/service"
)

// SetupRouter configures the Gin router with all routes.
func SetupRouter(stats *service.StatsService, upstream handler.Pinger, cfg *config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(upstream)
	jobsHandler := handler.NewJobsHandler(stats)
	statsHandler := handler.NewStatsHandler(stats)

	r.GET("/health", healthHandler.Health)
	r.GET("/ready", healthHandler.Ready)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/jobs/latest", jobsHandler.Latest)
		v1.GET("/jobs/:id", jobsHandler.Get)
		v1.GET("/jobs/:id/checkpoints", jobsHandler.Checkpoints)

		v1.GET("/stats", statsHandler.Overview)
	}

	return r
}
