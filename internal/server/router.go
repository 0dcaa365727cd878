package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/handlers"
	"github.com/jobreel/jobreel-backend/internal/middleware"
)

type RouterConfig struct {
	SearchHandler     *handlers.SearchHandler
	ViewsHandler      *handlers.ViewsHandler
	VideoHandler      *handlers.VideoHandler
	GenerationHandler *handlers.GenerationHandler
	HealthHandler     *handlers.HealthHandler
	APIKeyMiddleware  *middleware.APIKeyMiddleware
	AllowOrigins      []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	origins := cfg.AllowOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "X-API-Key", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	if cfg.HealthHandler != nil {
		router.GET("/healthz", cfg.HealthHandler.Ready)
	}

	// ===============
	// || Protected ||
	// ===============
	api := router.Group("/api")
	api.Use(cfg.APIKeyMiddleware.RequireAPIKey())
	{
		// Search
		api.POST("/search", cfg.SearchHandler.Search)
		// Views
		api.POST("/views/mark-seen", cfg.ViewsHandler.MarkSeen)
		api.GET("/views/check", cfg.ViewsHandler.Check)
		api.POST("/views/bulk-check", cfg.ViewsHandler.BulkCheck)
		api.GET("/views", cfg.ViewsHandler.ListSeen)
		api.DELETE("/views", cfg.ViewsHandler.Reset)
		// Videos
		api.GET("/video/:job_id", cfg.VideoHandler.Get)
		// Generation status
		api.GET("/generation/:job_uuid", cfg.GenerationHandler.Get)
	}

	return router
}
