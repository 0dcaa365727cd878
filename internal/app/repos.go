package app

import (
	"gorm.io/gorm"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
)

type Repos struct {
	Job           repos.JobRepo
	Video         repos.VideoRepo
	View          repos.ViewRepo
	GenerationJob repos.GenerationJobRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Job:           repos.NewJobRepo(db, log),
		Video:         repos.NewVideoRepo(db, log),
		View:          repos.NewViewRepo(db, log),
		GenerationJob: repos.NewGenerationJobRepo(db, log),
	}
}
