package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/jobreel/jobreel-backend/internal/app"
	"github.com/jobreel/jobreel-backend/internal/clients/renderer"
	"github.com/jobreel/jobreel-backend/internal/clients/spaces"
	"github.com/jobreel/jobreel-backend/internal/db"
	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/repos"
	"github.com/jobreel/jobreel-backend/internal/worker"
)

func main() {
	// Env
	_ = godotenv.Load()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := app.LoadConfig(log)

	// Postgres
	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err.Error())
		os.Exit(1)
	}
	if cfg.AutoMigrate {
		if err := pg.AutoMigrateAll(); err != nil {
			log.Error("Postgres auto migration failed", "error", err.Error())
			os.Exit(1)
		}
	}
	thePG := pg.DB()

	// Repos
	genRepo := repos.NewGenerationJobRepo(thePG, log)
	jobRepo := repos.NewJobRepo(thePG, log)
	vidRepo := repos.NewVideoRepo(thePG, log)

	// Clients
	rendererClient, err := renderer.NewClient(log)
	if err != nil {
		log.Error("Could not init renderer client", "error", err.Error())
		os.Exit(1)
	}
	storage, err := spaces.NewClient(log)
	if err != nil {
		log.Error("Could not init spaces client", "error", err.Error())
		os.Exit(1)
	}
	if err := storage.HeadBucket(context.Background()); err != nil {
		log.Error("Bucket unreachable", "error", err.Error())
		os.Exit(1)
	}

	workerID := strings.TrimSpace(os.Getenv("WORKER_ID"))
	if workerID == "" {
		workerID = worker.DefaultWorkerID()
	}

	w := worker.New(log, worker.Config{
		WorkerID:      workerID,
		PollInterval:  cfg.PollInterval,
		SweepInterval: cfg.SweepInterval,
		StaleAfter:    cfg.StaleAfter,
		ClaimGrace:    cfg.ClaimGrace,
		QueueTTL:      cfg.QueueTTL,
		MaxRetries:    cfg.MaxRetries,
		TempDir:       cfg.WorkerTempDir,
	}, genRepo, jobRepo, vidRepo, rendererClient, storage)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := w.Run(ctx); err != nil && err != context.Canceled {
		log.Error("Worker stopped", "error", err.Error())
		os.Exit(1)
	}
}
