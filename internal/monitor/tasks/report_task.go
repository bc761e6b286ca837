package tasks

import (
	"context"
	"fmt"
	"time"
)

// runTimeout bounds a scheduled monitoring pass so a wedged fetch cannot
// hold the scheduler slot until the next trigger.
const runTimeout = 15 * time.Minute

// newDailyReportTask creates the scheduled task that runs the full
// monitoring pipeline and reports the outcome.
func newDailyReportTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "daily_report")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled monitoring run...")
		startTime := time.Now()

		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()

		run, err := deps.Runner.Run(runCtx)
		duration := time.Since(startTime)
		if err != nil {
			log.ErrorContext(ctx, "Scheduled monitoring run failed",
				"error", err,
				"duration", duration)
			return fmt.Errorf("monitoring run failed: %w", err)
		}

		log.InfoContext(ctx, "Scheduled monitoring run completed",
			"run_id", run.ID,
			"outperformers", run.Outperformers,
			"email_sent", run.EmailSent,
			"duration", duration)

		return nil
	}
}
