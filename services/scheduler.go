package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const sweepTimeout = 30 * time.Second

// StartSweeper запускает CancelStale каждые interval, первый раз сразу. Останавливает
// возвращенный планировщик вызывающий.
func StartSweeper(ctx context.Context, tournaments TournamentService, interval time.Duration, logger *zap.Logger) (gocron.Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("sweeper")

	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			runCtx, cancel := context.WithTimeout(ctx, sweepTimeout)
			defer cancel()
			n, err := tournaments.CancelStale(runCtx)
			if err != nil {
				logger.Error("stale tournament sweep failed", zap.Error(err))
				return
			}
			if n > 0 {
				logger.Info("stale tournaments cancelled", zap.Int("count", n))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to register sweep job: %w", err)
	}

	sched.Start()
	logger.Info("sweeper started", zap.Duration("interval", interval))
	return sched, nil
}
