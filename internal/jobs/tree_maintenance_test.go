package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

func newTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	return sqlx.NewDb(mockDB, "sqlmock"), mock
}

func verifyColumns() []string {
	return []string{"total", "orphans", "unplaced", "distinct_paths"}
}

// expectVerify queues the drift check for one hierarchy table.
func expectVerify(mock sqlmock.Sqlmock, total, orphans, unplaced, distinctPaths int) {
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).
		WillReturnRows(sqlmock.NewRows(verifyColumns()).
			AddRow(total, orphans, unplaced, distinctPaths))
}

// expectRebuild queues the transactional rebuild for a table containing the
// given number of rows, each placed as a root.
func expectRebuild(mock sqlmock.Sqlmock, rows int) {
	mock.ExpectBegin()
	loaded := sqlmock.NewRows([]string{"id", "parent_id"})
	for i := 0; i < rows; i++ {
		loaded.AddRow(uuid.NewString(), nil)
	}
	mock.ExpectQuery(`SELECT id, parent_id FROM`).WillReturnRows(loaded)
	for i := 0; i < rows; i++ {
		mock.ExpectExec(`UPDATE .* SET tree_path`).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestVerifyTable_Consistent(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	expectVerify(mock, 5, 0, 0, 5)

	count, drifted, err := job.verifyTable(context.Background(), "applications")
	if err != nil {
		t.Fatalf("verifyTable: %v", err)
	}
	if count != 5 {
		t.Errorf("count = %d, want 5", count)
	}
	if drifted {
		t.Error("expected consistent table, got drifted")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestVerifyTable_Drift(t *testing.T) {
	tests := []struct {
		name          string
		total         int
		orphans       int
		unplaced      int
		distinctPaths int
		want          bool
	}{
		{"orphaned parent", 3, 1, 0, 3, true},
		{"empty path", 3, 0, 1, 3, true},
		{"duplicate path", 3, 0, 0, 2, true},
		{"empty table", 0, 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newTestDB(t)
			job := NewTreeMaintenanceJob(db)

			expectVerify(mock, tt.total, tt.orphans, tt.unplaced, tt.distinctPaths)

			_, drifted, err := job.verifyTable(context.Background(), "applications")
			if err != nil {
				t.Fatalf("verifyTable: %v", err)
			}
			if drifted != tt.want {
				t.Errorf("drifted = %v, want %v", drifted, tt.want)
			}
		})
	}
}

func TestVerifyTable_QueryError(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).
		WillReturnError(errors.New("connection reset"))

	if _, _, err := job.verifyTable(context.Background(), "applications"); err == nil {
		t.Fatal("expected error, got nil")
	}
}

func TestRunOnce_RebuildsDriftedTables(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	// applications drifted, attributes and organisations consistent.
	expectVerify(mock, 2, 1, 0, 2)
	expectRebuild(mock, 2)
	expectVerify(mock, 3, 0, 0, 3)
	expectVerify(mock, 0, 0, 0, 0)

	job.runOnce(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRunOnce_ContinuesAfterTableError(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\) AS total`).
		WillReturnError(errors.New("relation missing"))
	expectVerify(mock, 1, 0, 0, 1)
	expectVerify(mock, 1, 0, 0, 1)

	job.runOnce(context.Background())

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestStartDisabledWhenIntervalZero(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	job.Start(context.Background(), 0)
	job.wg.Wait()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("disabled job touched the database: %v", err)
	}
}

func TestStartAndStop(t *testing.T) {
	db, mock := newTestDB(t)
	job := NewTreeMaintenanceJob(db)

	// Initial pass runs before the first tick.
	expectVerify(mock, 0, 0, 0, 0)
	expectVerify(mock, 0, 0, 0, 0)
	expectVerify(mock, 0, 0, 0, 0)

	job.Start(context.Background(), 60)
	time.Sleep(50 * time.Millisecond)
	job.Stop()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
