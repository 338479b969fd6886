package tasks

import (
	"context"
	"fmt"
	"time"
)

// sqlMaintenanceTimeout bounds a single VACUUM run.
const sqlMaintenanceTimeout = 2 * time.Minute

// newSQLMaintenanceTask compacts and re-analyses the agent database.
func newSQLMaintenanceTask(deps TaskDeps) ScheduledTaskFunc {
	log := deps.Logger.With("task", "sql_maintenance")

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, sqlMaintenanceTimeout)
		defer cancel()

		began := time.Now()
		if err := deps.Store.RunSQLMaintenance(ctx); err != nil {
			return fmt.Errorf("sql maintenance: %w", err)
		}
		log.InfoContext(ctx, "Database compacted", "took", time.Since(began))
		return nil
	}
}
