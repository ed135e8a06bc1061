// Package sweep implements the periodic alert sweep: walk all known users,
// resolve their newly-due reminders or ticket notifications, emit one
// notification event per result and advance the per-user scan watermark.
package sweep

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/julien-nc/integration-suitecrm/notify"
	"github.com/julien-nc/integration-suitecrm/store"
	"github.com/julien-nc/integration-suitecrm/suitecrm"
)

// Interval is the wall-clock interval between sweeps.
const Interval = 15 * time.Minute

// coldStartWindow bounds the first scan for a user without a watermark.
const coldStartWindow = 7 * 24 * time.Hour

// Service runs sweeps. A sweep already in progress makes a new Run a no-op,
// so reentrant scheduling cannot overlap two sweeps.
type Service struct {
	store   store.Store
	client  *suitecrm.Client
	emitter notify.Emitter
	logger  *zap.Logger
	now     func() time.Time
	running atomic.Bool
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the wall clock, used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(st store.Store, client *suitecrm.Client, emitter notify.Emitter, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:   st,
		client:  client,
		emitter: emitter,
		logger:  logger,
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Run performs one sweep over all known users. Per-user failures are
// collected and logged but never abort the sweep for other users.
func (s *Service) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Info("sweep already running, skipping")

		return nil
	}

	defer s.running.Store(false)

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}

	feed := s.client.AlertFeed(suitecrm.InstanceFlavor(ctx, s.store))

	var errs error

	for _, userID := range users {
		if err := s.sweepUser(ctx, feed, userID); err != nil {
			s.logger.Warn("sweep failed for user", zap.String("user", userID), zap.Error(err))

			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", userID, err))
		}
	}

	s.logger.Info("checked if users have SuiteCRM alerts", zap.Int("users", len(users)))

	return errs
}

func (s *Service) sweepUser(ctx context.Context, feed suitecrm.AlertFeed, userID string) error {
	accessToken, err := s.store.GetUserValue(ctx, userID, store.KeyToken, "")
	if err != nil {
		return err
	}

	if accessToken == "" {
		return nil
	}

	enabled, err := s.store.GetUserValue(ctx, userID, store.KeyNotificationEnabled, "0")
	if err != nil {
		return err
	}

	if enabled != "1" {
		return nil
	}

	watermark, err := s.watermark(ctx, userID, feed.WatermarkKey())
	if err != nil {
		return err
	}

	tsNow := s.now().Unix()

	items, err := feed.Due(ctx, userID, watermark, tsNow)
	if err != nil {
		return err
	}

	// an empty batch leaves the watermark untouched
	if len(items) == 0 {
		return nil
	}

	maxSeen := watermark

	for _, item := range items {
		if item.Timestamp > maxSeen {
			maxSeen = item.Timestamp
		}

		event := notify.NewEvent(userID, item.Subject, map[string]any{
			"type":            item.Module,
			"link":            item.Link,
			"title":           item.Title,
			"event_timestamp": item.EventTimestamp,
		})

		if err := s.emitter.Notify(ctx, event); err != nil {
			s.logger.Warn("failed to emit notification",
				zap.String("user", userID), zap.String("subject", item.Subject), zap.Error(err))
		}
	}

	if maxSeen > watermark {
		if err := s.store.SetUserValue(ctx, userID, feed.WatermarkKey(), strconv.FormatInt(maxSeen, 10)); err != nil {
			return fmt.Errorf("failed to advance watermark: %w", err)
		}
	}

	return nil
}

// watermark returns the stored scan start for userID, or the cold start
// window when none exists yet.
func (s *Service) watermark(ctx context.Context, userID, key string) (int64, error) {
	raw, err := s.store.GetUserValue(ctx, userID, key, "0")
	if err != nil {
		return 0, err
	}

	val, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || val == 0 {
		return s.now().Add(-coldStartWindow).Unix(), nil
	}

	return val, nil
}
