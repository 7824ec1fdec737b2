// Package storage opens the bun database backing the account service
// and applies its migrations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	account "github.com/goliatone/go-account"
	goerrors "github.com/goliatone/go-errors"
	"github.com/pressly/goose/v3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
)

// Supported drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects the database
type Config struct {
	Driver string
	DSN    string
	Debug  bool
}

// DefaultConfig is an in-memory sqlite database
func DefaultConfig() Config {
	return Config{
		Driver: DriverSQLite,
		DSN:    ":memory:",
	}
}

// Open connects to the configured database
func Open(ctx context.Context, cfg Config) (*bun.DB, error) {
	var db *bun.DB

	switch strings.ToLower(cfg.Driver) {
	case DriverSQLite, "sqlite3", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to open sqlite database")
		}
		// sqlite serializes writers and in-memory databases are per connection
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())

		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to enable sqlite foreign keys")
		}
	case DriverPostgres, "pg":
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.DSN)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, goerrors.New(fmt.Sprintf("unsupported database driver %q", cfg.Driver), goerrors.CategoryValidation).
			WithTextCode("UNSUPPORTED_DRIVER")
	}

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reach database")
	}

	return db, nil
}

// gooseDialect maps a bun dialect onto the goose dialect and the
// embedded migrations directory
func gooseDialect(db *bun.DB) (string, string) {
	if db.Dialect().Name() == dialect.PG {
		return "postgres", "postgres"
	}
	return "sqlite3", "sqlite"
}

var gooseUpContext = goose.UpContext

// Migrate applies the embedded migrations matching the db dialect
func Migrate(ctx context.Context, db *bun.DB, logger goose.Logger) error {
	gooseName, dir := gooseDialect(db)

	migrations, err := account.MigrationsFor(dir)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load migrations")
	}

	goose.SetBaseFS(migrations)
	defer goose.SetBaseFS(nil)

	if logger != nil {
		goose.SetLogger(logger)
	}

	if err := goose.SetDialect(gooseName); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to set goose dialect")
	}

	if err := gooseUpContext(ctx, db.DB, "."); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to run migrations")
	}

	return nil
}

// OpenAndMigrate opens the database and brings its schema up to date
func OpenAndMigrate(ctx context.Context, cfg Config, logger goose.Logger) (*bun.DB, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := Migrate(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}
