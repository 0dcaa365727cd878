package app

import (
	"github.com/gin-gonic/gin"

	"github.com/jobreel/jobreel-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers, mw Middleware) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		SearchHandler:     handlerset.Search,
		ViewsHandler:      handlerset.Views,
		VideoHandler:      handlerset.Video,
		GenerationHandler: handlerset.Generation,
		HealthHandler:     handlerset.Health,
		APIKeyMiddleware:  mw.APIKey,
		AllowOrigins:      cfg.AllowOrigins,
	})
}
