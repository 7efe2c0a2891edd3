package models

import (
	"time"
)

// Content job statuses.
const (
	JobStatusDraft     = "draft"
	JobStatusPending   = "pending"
	JobStatusReady     = "ready"
	JobStatusError     = "error"
	JobStatusCompleted = "completed"
)

// ContentJob is a unit of generated content. The generation pipeline owns the
// body; the dispatcher only ever reads it.
type ContentJob struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProfileName      string    `gorm:"size:255" json:"profile_name"`
	Title            string    `gorm:"size:500" json:"title"`
	ContentType      string    `gorm:"size:100" json:"content_type"`
	GeneratedContent string    `gorm:"type:text" json:"generated_content"`
	Status           string    `gorm:"size:50;default:'completed'" json:"status"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ContentJob) TableName() string {
	return "content_jobs"
}
