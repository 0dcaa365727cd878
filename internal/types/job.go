package types

import (
	"time"

	"gorm.io/datatypes"
)

// Job is a row of the job corpus. It is authored by the ingestion
// pipeline; this service only ever reads it.
type Job struct {
	JobID       int64          `gorm:"column:job_id;primaryKey;autoIncrement:false" json:"job_id"`
	Title       string         `gorm:"column:title" json:"title"`
	Company     string         `gorm:"column:company" json:"company"`
	Description string         `gorm:"column:description" json:"description"`
	Active      bool           `gorm:"column:active;not null;default:true;index" json:"active"`
	Payload     datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (Job) TableName() string { return "job" }
