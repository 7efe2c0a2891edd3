package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/models"
)

// ThrottleStore is the query surface the throttle policy needs. Counts are
// read fresh on every decision: with concurrent dispatchers sharing the
// store, point-in-time queries are the only correct source of truth.
type ThrottleStore interface {
	CountPostedToday(channelID uint, now time.Time) (int64, error)
	LastPostedAt(channelID uint) (*time.Time, error)
}

// ThrottlePolicy decides whether a due, queued entry may proceed to a live
// publish given its channel's limits. Pure query plus decision; no caching,
// no side effects.
type ThrottlePolicy struct {
	store  ThrottleStore
	logger *zap.Logger
}

func NewThrottlePolicy(store ThrottleStore, logger *zap.Logger) *ThrottlePolicy {
	return &ThrottlePolicy{store: store, logger: logger}
}

// CanPublish applies the channel's daily cap and minimum spacing. A nil
// channel means the entry is unthrottled.
func (t *ThrottlePolicy) CanPublish(channel *models.Channel, now time.Time) (bool, error) {
	if channel == nil {
		return true, nil
	}

	if channel.MaxPerDay != nil {
		count, err := t.store.CountPostedToday(channel.ID, now)
		if err != nil {
			return false, err
		}
		if count >= int64(*channel.MaxPerDay) {
			t.logger.Debug("Channel daily cap reached",
				zap.String("channel", channel.Name),
				zap.Int64("posted_today", count),
				zap.Int("max_per_day", *channel.MaxPerDay))
			return false, nil
		}
	}

	if channel.MinIntervalSeconds != nil {
		last, err := t.store.LastPostedAt(channel.ID)
		if err != nil {
			return false, err
		}
		if last != nil {
			elapsed := now.Sub(*last)
			if elapsed < time.Duration(*channel.MinIntervalSeconds)*time.Second {
				t.logger.Debug("Channel minimum interval not yet elapsed",
					zap.String("channel", channel.Name),
					zap.Duration("elapsed", elapsed),
					zap.Int("min_interval_seconds", *channel.MinIntervalSeconds))
				return false, nil
			}
		}
	}

	return true, nil
}
