package accounts

import (
	"database/sql"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// DBOption configures the bun.DB returned by OpenDB
type DBOption func(*bun.DB)

// WithQueryDebug logs every query to stderr
func WithQueryDebug(verbose bool) DBOption {
	return func(db *bun.DB) {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(verbose)))
	}
}

// OpenDB opens a bun.DB for the given driver ("sqlite" or "postgres").
func OpenDB(driver, dsn string, opts ...DBOption) (*bun.DB, error) {
	var db *bun.DB

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverSQLite, "sqlite3":
		sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// in memory databases only live on their own connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
		if _, err := db.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable sqlite foreign keys")
		}
	case DriverPostgres, "pg", "postgresql":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New("unsupported database driver", goerrors.CategoryValidation).
			WithMetadata(map[string]any{"driver": driver})
	}

	for _, opt := range opts {
		if opt != nil {
			opt(db)
		}
	}

	return db, nil
}
