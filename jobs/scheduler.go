package jobs

import (
	"context"
	"time"

	"bandar/callback"
	tasks "bandar/task"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const pruneEvery = time.Hour

type Scheduler struct {
	DB         *gorm.DB
	Dispatcher *callback.Dispatcher
	Policy     callback.RetryPolicy
	// Every is the redelivery tick.
	Every     time.Duration
	Retention time.Duration
	Log       *zap.Logger
}

// Start runs the background loops until ctx is done. Redelivery only runs
// when the retry policy is enabled.
func (s Scheduler) Start(ctx context.Context) {
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("jobs")

	if s.Policy != nil && s.Policy.Enabled() {
		every := s.Every
		if every <= 0 {
			every = time.Minute
		}
		go loop(ctx, every, func(now time.Time) {
			n, err := s.Dispatcher.RetryDue(ctx, s.Policy, now)
			if err != nil {
				log.Error("redelivery sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				log.Info("redelivered callbacks", zap.Int("count", n))
			}
		})
	}

	if s.Retention > 0 {
		go loop(ctx, pruneEvery, func(now time.Time) {
			n, err := tasks.PruneDeliveries(ctx, s.DB, s.Retention, now)
			if err != nil {
				log.Error("prune deliveries failed", zap.Error(err))
				return
			}
			log.Info("pruned delivery log", zap.Int64("rows", n))
		})
	}
}

func loop(ctx context.Context, every time.Duration, run func(now time.Time)) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			run(now)
		}
	}
}
