package tasks

import (
	"context"
	"fmt"
	"time"
)

// newDBMaintenanceTask creates the scheduled task that prunes runs past
// the retention window and compacts the database afterwards.
func newDBMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "db_maintenance")

	return func(ctx context.Context) error {
		log.InfoContext(ctx, "Starting scheduled database maintenance...")
		startTime := time.Now()

		cutoff := time.Now().UTC().AddDate(0, 0, -deps.Config.Database.RetentionDays)
		pruned, err := deps.Store.PruneRuns(ctx, cutoff)
		if err != nil {
			log.ErrorContext(ctx, "Run pruning failed", "error", err)
			return fmt.Errorf("run pruning failed: %w", err)
		}
		if pruned > 0 {
			log.InfoContext(ctx, "Pruned runs past retention", "count", pruned, "cutoff", cutoff)
		}

		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			log.ErrorContext(ctx, "SQL maintenance failed",
				"error", err,
				"duration", time.Since(startTime))
			return fmt.Errorf("sql maintenance failed: %w", err)
		}

		log.InfoContext(ctx, "Database maintenance completed", "duration", time.Since(startTime))

		return nil
	}
}
