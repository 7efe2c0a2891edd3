package models

import (
	"time"
)

// Channel is a named delivery destination subject to rate limits. The
// dispatcher only reads channels; administration happens elsewhere.
// Nil limits mean unlimited.
type Channel struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	Name               string    `gorm:"uniqueIndex;not null;size:255" json:"name"`
	MaxPerDay          *int      `json:"max_per_day"`
	MinIntervalSeconds *int      `json:"min_interval_seconds"`
	JitterSeconds      *int      `json:"jitter_seconds"`
	CreatedAt          time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Channel) TableName() string {
	return "channels"
}
