// Package jobs contains background workers that run on a schedule.
// The tree maintenance job keeps the hierarchy columns of every catalog
// table consistent with the parent graph. Jobs are idempotent: re-running
// after a crash produces the same result as a clean run.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/db/repositories"
	"github.com/application-catalog/application-catalog/internal/safego"
	"github.com/application-catalog/application-catalog/internal/telemetry"
)

// TreeMaintenanceJob periodically verifies the hierarchy columns of every
// catalog table and rebuilds any tree that has drifted from its parent
// graph. Structural writes rebuild inside their own transactions, so in
// normal operation this job finds nothing to do — it exists to repair rows
// touched outside the application (manual SQL, restores, partial imports)
// and to refresh the entity row gauges.
type TreeMaintenanceJob struct {
	db     *sqlx.DB
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewTreeMaintenanceJob creates a new tree maintenance job
func NewTreeMaintenanceJob(db *sqlx.DB) *TreeMaintenanceJob {
	return &TreeMaintenanceJob{
		db:     db,
		stopCh: make(chan struct{}),
	}
}

// Start launches the maintenance loop. An initial pass runs immediately so a
// freshly restored database is repaired at boot rather than one interval
// later. intervalMinutes <= 0 disables the job.
func (j *TreeMaintenanceJob) Start(ctx context.Context, intervalMinutes int) {
	if intervalMinutes <= 0 {
		slog.Info("tree maintenance job disabled")
		return
	}
	slog.Info("starting tree maintenance job", "interval_minutes", intervalMinutes)

	j.wg.Add(1)
	go func() {
		defer j.wg.Done()

		ticker := time.NewTicker(time.Duration(intervalMinutes) * time.Minute)
		defer ticker.Stop()

		j.runOnce(ctx)

		for {
			select {
			case <-ticker.C:
				safego.Go(func() { j.runOnce(ctx) })
			case <-j.stopCh:
				slog.Info("tree maintenance job stopped")
				return
			case <-ctx.Done():
				slog.Info("tree maintenance job context cancelled")
				return
			}
		}
	}()
}

// Stop signals the loop to exit and waits for an in-flight pass to finish
func (j *TreeMaintenanceJob) Stop() {
	close(j.stopCh)
	j.wg.Wait()
}

// runOnce verifies every hierarchy table, rebuilding the ones that drifted,
// and refreshes the entity row gauges. Per-table failures are logged and the
// remaining tables still run.
func (j *TreeMaintenanceJob) runOnce(ctx context.Context) {
	for _, table := range repositories.HierarchyTables() {
		count, drifted, err := j.verifyTable(ctx, table)
		if err != nil {
			slog.Error("tree verification failed", "table", table, "error", err)
			continue
		}
		telemetry.EntityRows.WithLabelValues(table).Set(float64(count))

		if !drifted {
			continue
		}
		slog.Warn("hierarchy drift detected, rebuilding", "table", table)
		if err := repositories.RebuildTree(ctx, j.db, table); err != nil {
			slog.Error("tree rebuild failed", "table", table, "error", err)
		}
	}
}

// verifyTable returns the table's row count and whether its hierarchy
// columns have drifted. Drift means orphaned parent references, empty or
// duplicate materialized paths, or inverted left/right bounds.
func (j *TreeMaintenanceJob) verifyTable(ctx context.Context, table string) (count int, drifted bool, err error) {
	// The table name comes from HierarchyTables, never from input.
	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (
				WHERE parent_id IS NOT NULL
				  AND parent_id NOT IN (SELECT id FROM %[1]s)
			) AS orphans,
			COUNT(*) FILTER (WHERE tree_path = '' OR tree_right <= tree_left) AS unplaced,
			COUNT(DISTINCT tree_path) AS distinct_paths
		FROM %[1]s
	`, table)

	var row struct {
		Total         int `db:"total"`
		Orphans       int `db:"orphans"`
		Unplaced      int `db:"unplaced"`
		DistinctPaths int `db:"distinct_paths"`
	}
	if err := j.db.GetContext(ctx, &row, query); err != nil {
		return 0, false, fmt.Errorf("failed to verify %s hierarchy: %w", table, err)
	}

	drifted = row.Orphans > 0 || row.Unplaced > 0 || (row.Total > 0 && row.DistinctPaths != row.Total)
	return row.Total, drifted, nil
}
