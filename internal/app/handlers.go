package app

import (
	"github.com/jobreel/jobreel-backend/internal/db"
	"github.com/jobreel/jobreel-backend/internal/handlers"
	"github.com/jobreel/jobreel-backend/internal/logger"
)

type Handlers struct {
	Search     *handlers.SearchHandler
	Views      *handlers.ViewsHandler
	Video      *handlers.VideoHandler
	Generation *handlers.GenerationHandler
	Health     *handlers.HealthHandler
}

func wireHandlers(log *logger.Logger, pg *db.PostgresService, clients Clients, services Services, reposet Repos) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Search:     handlers.NewSearchHandler(log, services.Search),
		Views:      handlers.NewViewsHandler(log, services.Views),
		Video:      handlers.NewVideoHandler(log, reposet.Video),
		Generation: handlers.NewGenerationHandler(log, reposet.GenerationJob),
		Health:     handlers.NewHealthHandler(log, pg, clients.Spaces, clients.JobIndex),
	}
}
