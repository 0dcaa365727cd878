package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	GenerationStatusQueued   = "queued"
	GenerationStatusRunning  = "running"
	GenerationStatusUploaded = "uploaded"
	GenerationStatusIndexed  = "indexed"
	GenerationStatusReady    = "ready"
	GenerationStatusFailed   = "failed"
)

// GenerationJob is one row of the video generation queue. The queue is a
// plain Postgres table: claims take a row lock, retries and stale-lease
// recovery mutate status in place.
type GenerationJob struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"job_uuid"`
	JobID            int64      `gorm:"column:job_id;not null;index" json:"job_id"`
	TemplateID       string     `gorm:"column:template_id;not null" json:"template_id"`
	QueryFingerprint string     `gorm:"column:query_fingerprint;not null;index" json:"query_fingerprint"`
	UserID           string     `gorm:"column:user_id;not null;index:idx_generation_job_user_status" json:"user_id"`
	Status           string     `gorm:"column:status;not null;index:idx_generation_job_user_status;index:idx_generation_job_status_created" json:"status"`
	OutputVideoID    int64      `gorm:"column:output_video_id;not null" json:"output_video_id"`
	RetryCount       int        `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	WorkerID         *string    `gorm:"column:worker_id" json:"worker_id,omitempty"`
	Error            string     `gorm:"column:error" json:"error,omitempty"`
	StartedAt        *time.Time `gorm:"column:started_at" json:"started_at,omitempty"`
	CompletedAt      *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt        time.Time  `gorm:"not null;default:now();index:idx_generation_job_status_created" json:"created_at"`
	UpdatedAt        time.Time  `gorm:"not null;default:now()" json:"updated_at"`
}

func (GenerationJob) TableName() string { return "generation_job" }

// IsActiveGenerationStatus reports whether a job is still in flight:
// queued or held by a worker. Ready and failed are terminal.
func IsActiveGenerationStatus(status string) bool {
	switch status {
	case GenerationStatusQueued, GenerationStatusRunning, GenerationStatusUploaded, GenerationStatusIndexed:
		return true
	default:
		return false
	}
}
