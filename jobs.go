package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/3ll3d00d/jriver-bridge/coordinator"
	"github.com/3ll3d00d/jriver-bridge/history"
)

const historyRetention = 90 * 24 * time.Hour

// SetupInBackground schedules the polling loop and housekeeping jobs.
// The poll job runs in singleton mode so a slow media server cannot
// stack cycles on top of each other.
func SetupInBackground(coord *coordinator.Coordinator, store *history.Store) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(time.Second),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := coord.Refresh(ctx); err != nil && !errors.Is(err, coordinator.ErrUpdateFailed) {
				slog.With(slog.String("error", err.Error())).Debug("Poll cycle failed")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			pruned, err := store.Prune(time.Now().Add(-historyRetention))
			if err != nil {
				slog.With(slog.String("error", err.Error())).Error("Failed to prune playback history")
				return
			}
			if pruned > 0 {
				slog.With(slog.Int64("entries", pruned)).Info("Pruned old playback history")
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	return s, nil
}
