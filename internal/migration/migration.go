package migration

import (
	"context"

	"surveystats/internal"
	"surveystats/internal/errors"

	"github.com/jmoiron/sqlx"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner creates the result store schema. Statements use only
// types shared by SQLite and PostgreSQL so one schema serves both drivers.
type MigrationRunner struct {
	version string
	logger  *internal.Logger
}

// NewRunner creates a new migration runner
func NewRunner(logger *internal.Logger) *MigrationRunner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &MigrationRunner{
		version: "1.0.0",
		logger:  logger,
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createRunsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create runs table", err)
	}

	if err := r.createSummaryRowsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create summary_rows table", err)
	}

	if err := r.createCrosstabCellsTable(ctx, db); err != nil {
		return errors.DatabaseError("failed to create crosstab_cells table", err)
	}

	r.createIndexes(ctx, db)
	r.logger.Debug("[Migration] schema %s applied (%s)", r.version, db.DriverName())
	return nil
}

func (r *MigrationRunner) createRunsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id VARCHAR(36) PRIMARY KEY,
			label TEXT NOT NULL,
			source TEXT NOT NULL,
			created_at TEXT NOT NULL
		)
	`)
	return err
}

func (r *MigrationRunner) createSummaryRowsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS summary_rows (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			position INTEGER NOT NULL,
			indicator TEXT NOT NULL,
			group_columns TEXT NOT NULL,
			group_key TEXT NOT NULL,
			weighted_mean DOUBLE PRECISION NOT NULL,
			se DOUBLE PRECISION NOT NULL,
			weighted_median DOUBLE PRECISION NOT NULL,
			n INTEGER NOT NULL,
			total_weight DOUBLE PRECISION NOT NULL,
			ci_level DOUBLE PRECISION,
			ci_lower DOUBLE PRECISION,
			ci_upper DOUBLE PRECISION,
			small_sample BOOLEAN,
			PRIMARY KEY (run_id, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createCrosstabCellsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS crosstab_cells (
			run_id VARCHAR(36) NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			position INTEGER NOT NULL,
			row_value TEXT NOT NULL,
			col_value TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			weighted_mean DOUBLE PRECISION NOT NULL,
			n INTEGER NOT NULL,
			PRIMARY KEY (run_id, name, position)
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_summary_rows_indicator ON summary_rows(run_id, indicator)",
	}

	for _, idxSQL := range indexes {
		if _, err := db.ExecContext(ctx, idxSQL); err != nil {
			// Log but don't fail on index creation errors
			r.logger.Warn("[Migration] failed to create index: %v", err)
		}
	}
}
