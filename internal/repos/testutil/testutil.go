package testutil

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/jobreel/jobreel-backend/internal/logger"
	"github.com/jobreel/jobreel-backend/internal/types"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	logOnce sync.Once
	logg    *logger.Logger
	logErr  error
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

func DB(tb testing.TB) *gorm.DB {
	tb.Helper()

	dbOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			dbErr = errMissingDSN
			return
		}

		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			TranslateError:                           true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if err != nil {
			dbErr = err
			return
		}

		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
			dbErr = err
			return
		}

		if err := db.AutoMigrate(
			&types.Job{},
			&types.Video{},
			&types.View{},
			&types.GenerationJob{},
		); err != nil {
			dbErr = err
			return
		}

		dbErr = db.Exec(`
			CREATE UNIQUE INDEX IF NOT EXISTS uq_generation_job_live
			ON "generation_job" ("query_fingerprint", "job_id")
			WHERE "status" <> 'failed'
		`).Error
	})

	if errors.Is(dbErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run repo integration tests")
	}
	if dbErr != nil {
		tb.Fatalf("failed to init test db: %v", dbErr)
	}
	return db
}

func Tx(tb testing.TB, db *gorm.DB) *gorm.DB {
	tb.Helper()
	tx := db.Begin()
	if tx.Error != nil {
		tb.Fatalf("begin tx: %v", tx.Error)
	}
	tb.Cleanup(func() {
		_ = tx.Rollback().Error
	})
	return tx
}

func SeedJob(tb testing.TB, ctx context.Context, tx *gorm.DB, jobID int64, description string) *types.Job {
	tb.Helper()
	j := &types.Job{
		JobID:       jobID,
		Title:       "Backend Engineer",
		Company:     "Acme",
		Description: description,
		Active:      true,
	}
	if err := tx.WithContext(ctx).Create(j).Error; err != nil {
		tb.Fatalf("seed job: %v", err)
	}
	return j
}

func SeedVideo(tb testing.TB, ctx context.Context, tx *gorm.DB, videoID int64) *types.Video {
	tb.Helper()
	v := &types.Video{
		VideoID:         videoID,
		Status:          types.VideoStatusReady,
		ManifestKey:     "hls/1/master.m3u8",
		TemplateID:      "spongebob",
		GenerationJobID: uuid.New(),
	}
	if err := tx.WithContext(ctx).Create(v).Error; err != nil {
		tb.Fatalf("seed video: %v", err)
	}
	return v
}

func SeedGenerationJob(tb testing.TB, ctx context.Context, tx *gorm.DB, jobID int64, fp, userID, status string, createdAt time.Time) *types.GenerationJob {
	tb.Helper()
	g := &types.GenerationJob{
		ID:               uuid.New(),
		JobID:            jobID,
		TemplateID:       "spongebob",
		QueryFingerprint: fp,
		UserID:           userID,
		Status:           status,
		OutputVideoID:    jobID,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	if status == types.GenerationStatusRunning {
		now := time.Now()
		worker := "worker-test"
		g.WorkerID = &worker
		g.StartedAt = &now
	}
	if err := tx.WithContext(ctx).Create(g).Error; err != nil {
		tb.Fatalf("seed generation job: %v", err)
	}
	return g
}
