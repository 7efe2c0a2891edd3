package service

import (
	"encoding/json"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

// ScheduleStore is the durable, concurrency-safe storage surface for
// schedule entries. All mutation is transactional; delivery metadata is
// merged in the database (jsonb ||) so concurrent writers only ever append.
type ScheduleStore struct {
	db       *gorm.DB
	registry *publisher.Registry
}

func NewScheduleStore(db *gorm.DB, registry *publisher.Registry) *ScheduleStore {
	return &ScheduleStore{db: db, registry: registry}
}

// DB exposes the underlying handle for health checks.
func (s *ScheduleStore) DB() *gorm.DB {
	return s.db
}

// ── Jobs ──

func (s *ScheduleStore) CreateJob(job *models.ContentJob) error {
	if job.Status == "" {
		job.Status = models.JobStatusCompleted
	}
	return s.db.Create(job).Error
}

func (s *ScheduleStore) GetJob(id uint) (*models.ContentJob, error) {
	var job models.ContentJob
	if err := s.db.First(&job, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

func (s *ScheduleStore) ListJobs() ([]models.ContentJob, error) {
	var jobs []models.ContentJob
	err := s.db.Order("created_at DESC, id DESC").Find(&jobs).Error
	return jobs, err
}

// ── Schedule entry lifecycle ──

// Create validates its inputs and inserts a new entry in status scheduled
// with zero attempts. The platform identifier is normalized through the
// registry alias table before storage.
func (s *ScheduleStore) Create(jobID uint, platform string, scheduledFor time.Time, channelID *uint, meta models.JSONMap) (*models.ScheduleEntry, error) {
	if jobID == 0 {
		return nil, validationErrorf("job_id is required")
	}

	slug, err := s.registry.Normalize(platform)
	if err != nil {
		return nil, validationErrorf("unknown platform: %s", platform)
	}

	if err := s.db.First(&models.ContentJob{}, jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, validationErrorf("job %d does not exist", jobID)
		}
		return nil, err
	}

	if channelID != nil {
		if err := s.db.First(&models.Channel{}, *channelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, validationErrorf("channel %d does not exist", *channelID)
			}
			return nil, err
		}
	}

	if meta == nil {
		meta = models.JSONMap{}
	}

	entry := &models.ScheduleEntry{
		JobID:        jobID,
		Platform:     slug,
		ChannelID:    channelID,
		ScheduledFor: scheduledFor.UTC(),
		Status:       models.ScheduleStatusScheduled,
		DeliveryMeta: meta,
	}
	if err := s.db.Create(entry).Error; err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *ScheduleStore) Get(id uint) (*models.ScheduleEntry, error) {
	var entry models.ScheduleEntry
	if err := s.db.First(&entry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// List returns entries joined with job title/content type, newest activity
// first (ties by id descending).
func (s *ScheduleStore) List() ([]models.ScheduleListItem, error) {
	var items []models.ScheduleListItem
	err := s.db.Table("schedule_entries AS s").
		Select("s.*, j.title AS job_title, j.content_type AS job_content_type").
		Joins("LEFT JOIN content_jobs j ON j.id = s.job_id").
		Order("s.updated_at DESC, s.id DESC").
		Scan(&items).Error
	return items, err
}

// UpdateTimeAndPlatform edits target platform and time, permitted only while
// the entry is still scheduled. Once dispatch has claimed the row, the
// promised time is immutable.
func (s *ScheduleStore) UpdateTimeAndPlatform(id uint, platform string, scheduledFor time.Time) error {
	slug, err := s.registry.Normalize(platform)
	if err != nil {
		return validationErrorf("unknown platform: %s", platform)
	}

	res := s.db.Model(&models.ScheduleEntry{}).
		Where("id = ? AND status = ?", id, models.ScheduleStatusScheduled).
		Updates(map[string]interface{}{
			"platform":      slug,
			"scheduled_for": scheduledFor.UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// Cancel flips the entry to canceled. Idempotent; it never rewrites a posted
// entry, since posted is terminal delivery history.
func (s *ScheduleStore) Cancel(id uint) error {
	res := s.db.Model(&models.ScheduleEntry{}).
		Where("id = ? AND status <> ?", id, models.ScheduleStatusPosted).
		Update("status", models.ScheduleStatusCanceled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return err
		}
	}
	return nil
}

// Retry returns a failed or errored entry to the scheduled pool and clears
// the last result. Attempt history is preserved.
func (s *ScheduleStore) Retry(id uint) error {
	res := s.db.Model(&models.ScheduleEntry{}).
		Where("id = ? AND status IN ?", id, []string{models.ScheduleStatusFailed, models.ScheduleStatusError}).
		Updates(map[string]interface{}{
			"status": models.ScheduleStatusScheduled,
			"result": gorm.Expr("NULL"),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := s.Get(id); err != nil {
			return err
		}
		return ErrInvalidState
	}
	return nil
}

// ── Dispatch ──

// ClaimDue selects up to limit due entries with a non-blocking exclusive
// lock and flips each to queued inside the same transaction: attempts
// incremented, last_attempted_at stamped, queued_at merged into delivery
// metadata. Rows locked by a concurrent dispatcher are skipped, never waited
// for, so no two instances ever claim the same row. The transaction commits
// before any publish call is attempted.
func (s *ScheduleStore) ClaimDue(now time.Time, limit int) ([]models.ScheduleEntry, error) {
	now = now.UTC()
	var claimed []models.ScheduleEntry

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var due []models.ScheduleEntry
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND scheduled_for <= ?", models.ScheduleStatusScheduled, now).
			Order("scheduled_for ASC, id ASC").
			Limit(limit).
			Find(&due).Error; err != nil {
			return err
		}

		for i := range due {
			entry := &due[i]
			err := tx.Model(&models.ScheduleEntry{}).
				Where("id = ?", entry.ID).
				Updates(map[string]interface{}{
					"status":            models.ScheduleStatusQueued,
					"attempts":          gorm.Expr("attempts + 1"),
					"last_attempted_at": now,
					"delivery_meta":     metaMergeExpr(models.JSONMap{"queued_at": isoTime(now)}),
				}).Error
			if err != nil {
				return err
			}

			entry.Status = models.ScheduleStatusQueued
			entry.Attempts++
			attempted := now
			entry.LastAttemptedAt = &attempted
			if entry.DeliveryMeta == nil {
				entry.DeliveryMeta = models.JSONMap{}
			}
			entry.DeliveryMeta["queued_at"] = isoTime(now)
			claimed = append(claimed, *entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

// MarkPosted records a successful delivery. Terminal.
func (s *ScheduleStore) MarkPosted(id uint, res *publisher.Result, now time.Time) error {
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return s.db.Model(&models.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": models.ScheduleStatusPosted,
			"result": string(raw),
			"delivery_meta": metaMergeExpr(models.JSONMap{
				"published_at":   isoTime(now),
				"publish_result": res,
			}),
		}).Error
}

// MarkFailed records a delivery attempt the publisher reported or raised as
// a failure. Retry-eligible.
func (s *ScheduleStore) MarkFailed(id uint, message string, now time.Time) error {
	return s.db.Model(&models.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": models.ScheduleStatusFailed,
			"result": message,
			"delivery_meta": metaMergeExpr(models.JSONMap{
				"failed_at": isoTime(now),
				"error":     message,
			}),
		}).Error
}

// MarkError records an unexpected per-row dispatch failure (unknown
// platform, store hiccup mid-row). Requires administrative correction and an
// explicit retry.
func (s *ScheduleStore) MarkError(id uint, message string, now time.Time) error {
	return s.db.Model(&models.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": models.ScheduleStatusError,
			"result": message,
			"delivery_meta": metaMergeExpr(models.JSONMap{
				"last_error": message,
				"failed_at":  isoTime(now),
			}),
		}).Error
}

// Requeue returns a throttled entry to scheduled. A throttle denial was
// never a delivery attempt, so nothing beyond the claim's bookkeeping is
// recorded against it.
func (s *ScheduleStore) Requeue(id uint, now time.Time) error {
	return s.db.Model(&models.ScheduleEntry{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status": models.ScheduleStatusScheduled,
			"delivery_meta": metaMergeExpr(models.JSONMap{
				"throttled": true,
				"when":      isoTime(now),
			}),
		}).Error
}

// ── Channels & throttle queries ──

func (s *ScheduleStore) GetChannel(id uint) (*models.Channel, error) {
	var ch models.Channel
	if err := s.db.First(&ch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ch, nil
}

// CountPostedToday counts posted entries for the channel created within the
// current UTC calendar day.
func (s *ScheduleStore) CountPostedToday(channelID uint, now time.Time) (int64, error) {
	now = now.UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	err := s.db.Model(&models.ScheduleEntry{}).
		Where("channel_id = ? AND status = ? AND created_at >= ?", channelID, models.ScheduleStatusPosted, dayStart).
		Count(&count).Error
	return count, err
}

// LastPostedAt returns the updated_at of the channel's most recent posted
// entry, or nil when the channel has never posted.
func (s *ScheduleStore) LastPostedAt(channelID uint) (*time.Time, error) {
	var entry models.ScheduleEntry
	err := s.db.Where("channel_id = ? AND status = ?", channelID, models.ScheduleStatusPosted).
		Order("updated_at DESC").
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := entry.UpdatedAt
	return &t, nil
}

// metaMergeExpr builds the jsonb merge expression that appends fields to
// delivery_meta without ever replacing previously recorded ones.
func metaMergeExpr(meta models.JSONMap) clause.Expr {
	raw, _ := json.Marshal(meta)
	return gorm.Expr("COALESCE(delivery_meta, '{}'::jsonb) || ?::jsonb", string(raw))
}

func isoTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
