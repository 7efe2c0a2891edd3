package service

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teamops/teamops/internal/config"
	"github.com/teamops/teamops/internal/models"
	"github.com/teamops/teamops/internal/service/publisher"
)

// DispatchStore is the slice of the schedule store the dispatch loop drives.
type DispatchStore interface {
	ClaimDue(now time.Time, limit int) ([]models.ScheduleEntry, error)
	GetJob(id uint) (*models.ContentJob, error)
	GetChannel(id uint) (*models.Channel, error)
	MarkPosted(id uint, res *publisher.Result, now time.Time) error
	MarkFailed(id uint, message string, now time.Time) error
	MarkError(id uint, message string, now time.Time) error
	Requeue(id uint, now time.Time) error
}

// PublisherResolver resolves a platform identifier to a publishing capability.
type PublisherResolver interface {
	Resolve(platform string) (publisher.Publisher, error)
}

// Throttle decides whether a claimed entry may proceed to a live publish.
type Throttle interface {
	CanPublish(channel *models.Channel, now time.Time) (bool, error)
}

// Dispatcher is the state-machine driver for schedule entries: a single
// recurring background task per process that claims due rows and drives each
// one to an outcome. Multiple processes may run concurrently against the
// same store; row claiming keeps them from ever touching the same entry in
// the same cycle.
type Dispatcher struct {
	config   *config.DispatcherConfig
	logger   *zap.Logger
	store    DispatchStore
	registry PublisherResolver
	throttle Throttle

	instance string
	ticker   *time.Ticker
	stopCh   chan struct{}
	wg       sync.WaitGroup

	// now is swappable in tests.
	now func() time.Time
}

func NewDispatcher(cfg *config.DispatcherConfig, store DispatchStore, registry PublisherResolver, throttle Throttle, logger *zap.Logger) *Dispatcher {
	instance := uuid.NewString()
	return &Dispatcher{
		config:   cfg,
		logger:   logger.With(zap.String("dispatcher", instance)),
		store:    store,
		registry: registry,
		throttle: throttle,
		instance: instance,
		stopCh:   make(chan struct{}),
		now:      time.Now,
	}
}

// Start launches the polling loop. It returns immediately; the loop runs
// until Stop is called or the context is cancelled.
func (d *Dispatcher) Start(ctx context.Context) error {
	if !d.config.Enabled {
		d.logger.Info("Dispatcher is disabled")
		return nil
	}

	interval, err := time.ParseDuration(d.config.Interval)
	if err != nil {
		d.logger.Error("Invalid dispatch interval", zap.String("interval", d.config.Interval), zap.Error(err))
		return err
	}

	d.logger.Info("Starting dispatcher",
		zap.String("interval", d.config.Interval),
		zap.Int("batch_size", d.config.BatchSize),
		zap.Bool("live_publish", d.config.LivePublish))

	d.ticker = time.NewTicker(interval)
	d.wg.Add(1)

	go func() {
		defer d.wg.Done()

		// Run the first cycle immediately
		d.RunCycle(ctx)

		for {
			select {
			case <-d.ticker.C:
				d.RunCycle(ctx)
			case <-d.stopCh:
				d.logger.Info("Dispatcher stopped")
				return
			case <-ctx.Done():
				d.logger.Info("Dispatcher context cancelled")
				return
			}
		}
	}()

	return nil
}

// Stop requests the loop to stop at the next safe point and waits for the
// in-flight cycle to finish.
func (d *Dispatcher) Stop() {
	if d.ticker != nil {
		d.ticker.Stop()
	}
	close(d.stopCh)
	d.wg.Wait()
	d.logger.Info("Dispatcher shutdown completed")
}

// RunCycle claims one batch of due entries and processes them sequentially.
// Sequential handling keeps throttle counts consistent without extra
// locking. Every failure is contained: a row's error marks that row and the
// batch moves on, and a claim failure only costs this tick.
func (d *Dispatcher) RunCycle(ctx context.Context) int {
	now := d.now().UTC()

	claimed, err := d.store.ClaimDue(now, d.config.BatchSize)
	if err != nil {
		d.logger.Error("Failed to claim due entries", zap.Error(err))
		return 0
	}
	if len(claimed) == 0 {
		return 0
	}

	d.logger.Info("Claimed due entries", zap.Int("count", len(claimed)))

	for i := range claimed {
		entry := &claimed[i]
		if err := d.processEntry(ctx, entry); err != nil {
			d.logger.Error("Entry dispatch failed",
				zap.Uint("schedule_id", entry.ID),
				zap.String("platform", entry.Platform),
				zap.Error(err))
			if markErr := d.store.MarkError(entry.ID, err.Error(), d.now().UTC()); markErr != nil {
				d.logger.Error("Failed to record entry error",
					zap.Uint("schedule_id", entry.ID),
					zap.Error(markErr))
			}
		}
	}

	return len(claimed)
}

// processEntry drives one claimed (already queued) entry to its outcome.
// Returned errors mean "unexpected"; publish failures are handled inside and
// recorded as failed.
func (d *Dispatcher) processEntry(ctx context.Context, entry *models.ScheduleEntry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during dispatch: %v", r)
		}
	}()

	// Dry-run mode: the row stays queued as a record of what would have
	// been dispatched.
	if !d.config.LivePublish {
		d.logger.Info("Dry run, leaving entry queued",
			zap.Uint("schedule_id", entry.ID),
			zap.String("platform", entry.Platform))
		return nil
	}

	now := d.now().UTC()

	var channel *models.Channel
	if entry.ChannelID != nil {
		channel, err = d.store.GetChannel(*entry.ChannelID)
		if err != nil {
			return fmt.Errorf("channel %d lookup failed: %w", *entry.ChannelID, err)
		}
	}

	ok, err := d.throttle.CanPublish(channel, now)
	if err != nil {
		return fmt.Errorf("throttle check failed: %w", err)
	}
	if !ok {
		d.logger.Info("Entry throttled, requeued",
			zap.Uint("schedule_id", entry.ID),
			zap.String("channel", channel.Name))
		return d.store.Requeue(entry.ID, now)
	}

	if channel != nil && channel.JitterSeconds != nil && *channel.JitterSeconds > 0 {
		if err := d.jitterSleep(ctx, *channel.JitterSeconds); err != nil {
			// Shutting down mid-pacing: the entry keeps its queued claim
			// and reaches an outcome on the next run.
			return err
		}
	}

	pub, err := d.registry.Resolve(entry.Platform)
	if err != nil {
		return err
	}

	job, err := d.store.GetJob(entry.JobID)
	if err != nil {
		return fmt.Errorf("job %d lookup failed: %w", entry.JobID, err)
	}

	res, pubErr := pub.Publish(ctx, job, entry)
	now = d.now().UTC()

	if pubErr != nil {
		d.logger.Warn("Publish failed",
			zap.Uint("schedule_id", entry.ID),
			zap.String("platform", entry.Platform),
			zap.Error(pubErr))
		return d.store.MarkFailed(entry.ID, pubErr.Error(), now)
	}
	if res == nil || !res.Success {
		message := "publisher reported failure"
		if res != nil && res.Message != "" {
			message = res.Message
		}
		d.logger.Warn("Publish reported failure",
			zap.Uint("schedule_id", entry.ID),
			zap.String("platform", entry.Platform),
			zap.String("message", message))
		return d.store.MarkFailed(entry.ID, message, now)
	}

	d.logger.Info("Entry posted",
		zap.Uint("schedule_id", entry.ID),
		zap.String("platform", entry.Platform))
	return d.store.MarkPosted(entry.ID, res, now)
}

// jitterSleep paces a publish by a random duration bounded by the channel's
// jitter ceiling. Cancellable so shutdown never hangs on pacing.
func (d *Dispatcher) jitterSleep(ctx context.Context, maxSeconds int) error {
	delay := time.Duration(rand.Intn(maxSeconds+1)) * time.Second
	if delay == 0 {
		return nil
	}
	d.logger.Debug("Applying publish jitter", zap.Duration("delay", delay))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-d.stopCh:
		return context.Canceled
	}
}
