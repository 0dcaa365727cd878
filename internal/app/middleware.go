package app

import (
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/middleware"
)

type Middleware struct {
	APIKey *middleware.APIKeyMiddleware
}

func wireMiddleware(log *logger.Logger, cfg Config) Middleware {
	log.Info("Wiring middleware...")
	return Middleware{
		APIKey: middleware.NewAPIKeyMiddleware(log, cfg.APIKey),
	}
}
