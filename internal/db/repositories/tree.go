// tree.go implements the full-tree rebuild that keeps the hierarchy columns
// (tree_path, tree_depth, tree_left, tree_right) consistent, plus the ancestry
// lookups behind full paths and tree info lines. Every structural write runs a
// rebuild inside its own transaction, so readers always see placements
// produced by a single walk.
package repositories

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/application-catalog/application-catalog/internal/telemetry"
	"github.com/application-catalog/application-catalog/internal/tree"
)

// Hierarchy table names. These are the only values ever interpolated into
// tree queries; user input never reaches them.
const (
	applicationsTable  = "applications"
	attributesTable    = "attributes"
	organisationsTable = "organisations"
)

type treeRow struct {
	ID       uuid.UUID  `db:"id"`
	ParentID *uuid.UUID `db:"parent_id"`
}

// lastRebuild holds the wall-clock time of the most recent successful rebuild
// of any hierarchy table. The admin stats endpoint reports it.
var lastRebuild atomic.Value

// LastTreeRebuild returns the time of the most recent successful hierarchy
// rebuild in this process, or the zero time if none has run yet.
func LastTreeRebuild() time.Time {
	if v, ok := lastRebuild.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

// rebuildTree recomputes the hierarchy columns for every row of table within
// tx. Sibling order is creation time then id, which keeps rebuilds
// deterministic across runs. A cycle introduced by a parent update surfaces
// here as an error, aborting the surrounding transaction.
func rebuildTree(ctx context.Context, tx *sqlx.Tx, table string) error {
	start := time.Now()

	var rows []treeRow
	query := fmt.Sprintf(`SELECT id, parent_id FROM %s ORDER BY created_at, id`, table)
	if err := tx.SelectContext(ctx, &rows, query); err != nil {
		return fmt.Errorf("failed to load %s hierarchy: %w", table, err)
	}

	nodes := make([]tree.Node, len(rows))
	for i, row := range rows {
		nodes[i] = tree.Node{ID: row.ID, ParentID: row.ParentID}
	}

	placements, err := tree.Build(nodes)
	if err != nil {
		return fmt.Errorf("failed to rebuild %s tree: %w", table, err)
	}

	update := fmt.Sprintf(
		`UPDATE %s SET tree_path = $2, tree_depth = $3, tree_left = $4, tree_right = $5 WHERE id = $1`,
		table,
	)
	for _, p := range placements {
		if _, err := tx.ExecContext(ctx, update, p.ID, p.Path, p.Depth, p.Left, p.Right); err != nil {
			return fmt.Errorf("failed to store %s placement: %w", table, err)
		}
	}

	telemetry.TreeRebuildsTotal.WithLabelValues(table).Inc()
	telemetry.TreeRebuildDuration.WithLabelValues(table).Observe(time.Since(start).Seconds())
	lastRebuild.Store(time.Now())

	return nil
}

// RebuildTree recomputes the hierarchy columns for table in its own
// transaction. The periodic maintenance job uses it to repair drift; entity
// repositories rebuild inside their write transactions instead.
func RebuildTree(ctx context.Context, db *sqlx.DB, table string) error {
	switch table {
	case applicationsTable, attributesTable, organisationsTable:
	default:
		return fmt.Errorf("unknown hierarchy table: %s", table)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint:errcheck

	if err := rebuildTree(ctx, tx, table); err != nil {
		return err
	}

	return tx.Commit()
}

// HierarchyTables lists every table maintained by the tree rebuild.
func HierarchyTables() []string {
	return []string{applicationsTable, attributesTable, organisationsTable}
}

type treeAncestry struct {
	Name string `db:"name"`
	Slug string `db:"slug"`
}

// loadAncestry returns the names and slugs along the path from the root down
// to the node with the given tree path, inclusive.
func loadAncestry(ctx context.Context, db *sqlx.DB, table, treePath string) ([]treeAncestry, error) {
	paths := append(tree.AncestorPaths(treePath), treePath)

	query, args, err := sqlx.In(
		fmt.Sprintf(`SELECT name, slug FROM %s WHERE tree_path IN (?) ORDER BY tree_depth`, table),
		paths,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build ancestry query: %w", err)
	}
	query = db.Rebind(query)

	var rows []treeAncestry
	if err := db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load %s ancestry: %w", table, err)
	}
	return rows, nil
}
