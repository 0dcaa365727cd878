package types

import (
	"time"

	"github.com/google/uuid"
)

const VideoStatusReady = "ready"

// Video is the catalog row for a finished render. video_id equals the
// job_id it was generated for, and a row is written exactly once.
type Video struct {
	VideoID         int64     `gorm:"column:video_id;primaryKey;autoIncrement:false" json:"video_id"`
	Status          string    `gorm:"column:status;not null;index" json:"status"`
	ManifestKey     string    `gorm:"column:manifest_key;not null" json:"manifest_key"`
	CDNURL          string    `gorm:"column:cdn_url" json:"cdn_url,omitempty"`
	TemplateID      string    `gorm:"column:template_id;not null" json:"template_id"`
	GenerationJobID uuid.UUID `gorm:"type:uuid;column:generation_job_id" json:"generation_job_id"`
	CreatedAt       time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Video) TableName() string { return "video" }
