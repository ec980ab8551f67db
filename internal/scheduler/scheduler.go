// Package scheduler periodically cancels pending bookings whose payment
// window has passed, returning their rooms to the inventory.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/hotel-reservation/internal/model"
)

type pendingExpirer interface {
	ExpirePending(ctx context.Context, olderThan time.Duration) ([]model.Booking, error)
}

type Scheduler struct {
	expirer  pendingExpirer
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger
}

func New(expirer pendingExpirer, interval, ttl time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		expirer:  expirer,
		interval: interval,
		ttl:      ttl,
		logger:   logger,
	}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("pending_ttl", s.ttl),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	expired, err := s.expirer.ExpirePending(ctx, s.ttl)
	if err != nil {
		s.logger.Error("failed to expire pending bookings", zap.Error(err))
		return
	}

	for _, b := range expired {
		s.logger.Info("booking expired",
			zap.String("booking_id", b.ID),
			zap.Uint64("user_id", b.UserID),
			zap.Uint64("hotel_id", b.HotelID),
		)
	}
}
