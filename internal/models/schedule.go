package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Schedule entry statuses. posted and canceled are terminal; failed and
// error stay retry-eligible through the administrative retry action.
const (
	ScheduleStatusScheduled = "scheduled"
	ScheduleStatusQueued    = "queued"
	ScheduleStatusPosted    = "posted"
	ScheduleStatusFailed    = "failed"
	ScheduleStatusError     = "error"
	ScheduleStatusCanceled  = "canceled"
)

// JSONMap represents a PostgreSQL jsonb object column.
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = JSONMap{}
		return nil
	}

	switch v := value.(type) {
	case []byte:
		if len(v) == 0 {
			*m = JSONMap{}
			return nil
		}
		return json.Unmarshal(v, m)
	case string:
		if v == "" {
			*m = JSONMap{}
			return nil
		}
		return json.Unmarshal([]byte(v), m)
	default:
		return fmt.Errorf("cannot scan %T into JSONMap", value)
	}
}

// Value implements the driver.Valuer interface
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// ScheduleEntry is one promise to deliver a ContentJob to one platform at one
// time. Rows are mutated only by the administrative API and the dispatcher;
// cancellation is a status change, never a delete.
type ScheduleEntry struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	JobID           uint       `gorm:"not null;index" json:"job_id"`
	Platform        string     `gorm:"not null;size:100;index" json:"platform"`
	ChannelID       *uint      `gorm:"index" json:"channel_id"`
	ScheduledFor    time.Time  `gorm:"not null;index" json:"scheduled_for"`
	Status          string     `gorm:"size:50;default:'scheduled';index" json:"status"`
	Result          string     `gorm:"type:text" json:"result"`
	Attempts        int        `gorm:"default:0" json:"attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at"`
	DeliveryMeta    JSONMap    `gorm:"type:jsonb;default:'{}'" json:"delivery_meta"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Job     ContentJob `gorm:"foreignKey:JobID" json:"job"`
	Channel *Channel   `gorm:"foreignKey:ChannelID" json:"channel,omitempty"`
}

func (ScheduleEntry) TableName() string {
	return "schedule_entries"
}

// IsTerminal reports whether the entry can no longer be dispatched or retried.
func (e *ScheduleEntry) IsTerminal() bool {
	return e.Status == ScheduleStatusPosted || e.Status == ScheduleStatusCanceled
}

// ScheduleListItem is a ScheduleEntry row joined with job columns for
// display. Kept flat so it scans directly from the join query.
type ScheduleListItem struct {
	ID              uint       `json:"id"`
	JobID           uint       `json:"job_id"`
	Platform        string     `json:"platform"`
	ChannelID       *uint      `json:"channel_id"`
	ScheduledFor    time.Time  `json:"scheduled_for"`
	Status          string     `json:"status"`
	Result          string     `json:"result"`
	Attempts        int        `json:"attempts"`
	LastAttemptedAt *time.Time `json:"last_attempted_at"`
	DeliveryMeta    JSONMap    `json:"delivery_meta"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	JobTitle        string     `json:"job_title"`
	JobContentType  string     `json:"job_content_type"`
}
