package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/timmy/reelvault/internal/api/handler"
	"github.com/timmy/reelvault/internal/api/middleware"
	"github.com/timmy/reelvault/internal/config"
	"github.com/timmy/reelvault/internal/service"
)

// Services are the dependencies the HTTP surface dispatches to.
type Services struct {
	Search  *service.SearchService
	History *service.HistoryService
	Worker  *service.DownloadWorker
	Jobs    *service.JobAdmin
	// Ping checks the database for /health; optional.
	Ping func(ctx context.Context) error
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc *Services, cfg *config.ServerConfig) *gin.Engine {
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
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(svc.Ping)
	searchHandler := handler.NewSearchHandler(svc.Search)
	historyHandler := handler.NewHistoryHandler(svc.History)
	workerHandler := handler.NewWorkerHandler(svc.Worker)
	adminHandler := handler.NewAdminHandler(svc.Jobs)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		// Search
		v1.POST("/search", searchHandler.Search)
		v1.POST("/search/:id/more", searchHandler.LoadMore)

		// History
		v1.GET("/history", historyHandler.ListSearches)
		v1.GET("/history/:id", historyHandler.GetSearch)
		v1.GET("/assets/:mediaId", historyHandler.GetAsset)

		// Worker
		v1.POST("/worker/download", workerHandler.Run)
	}

	if cfg.AdminToken != "" {
		admin := v1.Group("/admin", middleware.AdminAuth(cfg.AdminToken))
		admin.GET("/jobs/stats", adminHandler.JobStats)
		admin.POST("/jobs/requeue", adminHandler.RequeueFailed)
		admin.POST("/jobs/reclaim", adminHandler.ReclaimStale)
	}

	return r
}
