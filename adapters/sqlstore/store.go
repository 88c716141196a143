package sqlstore

import (
	"context"
	"fmt"

	"surveystats/internal"
	"surveystats/internal/errors"
	"surveystats/internal/migration"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// modernc registers as "sqlite", which sqlx does not know by name.
	sqlx.BindDriver(DriverSQLite, sqlx.QUESTION)
}

// Open connects to the database, verifies the connection and applies the
// schema migrations.
func Open(ctx context.Context, driver, dsn string, logger *internal.Logger) (*sqlx.DB, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
	default:
		return nil, errors.ConfigInvalid(fmt.Sprintf("unsupported database driver %q", driver))
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.DatabaseError("failed to open database", err)
	}
	if driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps
		// ":memory:" databases shared across calls.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.DatabaseError("failed to connect to database", err)
	}
	if driver == DriverSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, errors.DatabaseError("failed to enable foreign keys", err)
		}
	}

	if err := migration.NewRunner(logger).Run(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("[ResultStore] connected (%s)", driver)
	return db, nil
}
