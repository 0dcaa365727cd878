package types

import (
	"time"

	"github.com/google/uuid"
)

// View records that a job was returned to a user. Unique on
// (user_id, job_id); mark-seen upserts so concurrent searches collapse.
type View struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    string    `gorm:"column:user_id;not null;uniqueIndex:uq_job_view_user_job;index" json:"user_id"`
	JobID     int64     `gorm:"column:job_id;not null;uniqueIndex:uq_job_view_user_job" json:"job_id"`
	Seen      bool      `gorm:"column:seen;not null;default:false" json:"seen"`
	CreatedAt time.Time `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (View) TableName() string { return "job_view" }
