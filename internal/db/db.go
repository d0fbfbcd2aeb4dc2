package db

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
	_ "modernc.org/sqlite" // register pure-Go SQLite driver

	"document-embed/internal/helper"
	"document-embed/internal/models"
)

// Options selects the backing database of a collection.
type Options struct {
	// DSN is a postgres connection string. When empty the collection lives in
	// a sqlite file named after it inside DataDir.
	DSN        string
	DataDir    string
	Collection string
	// Debug logs every query through bundebug.
	Debug bool
}

func isPostgres(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// Connect opens the bun database described by opts and verifies it answers.
func Connect(ctx context.Context, opts Options) (*bun.DB, error) {
	if opts.Collection == "" {
		return nil, fmt.Errorf("%w: collection name is required", models.ErrInvalidInput)
	}
	if isPostgres(opts.DSN) {
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(opts.DSN)))
		return newDB(ctx, sqldb, pgdialect.New(), opts.Debug)
	}

	if err := helper.CreateFolder(opts.DataDir); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return OpenSQLite(ctx, filepath.Join(opts.DataDir, opts.Collection+".db"), opts.Debug)
}

// OpenSQLite opens (creating if needed) the sqlite file at path.
func OpenSQLite(ctx context.Context, path string, debug bool) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", models.ErrPersistence, path, err)
	}
	// one writer; sqlite serialises anyway
	sqldb.SetMaxOpenConns(1)
	return newDB(ctx, sqldb, sqlitedialect.New(), debug)
}

func newDB(ctx context.Context, sqldb *sql.DB, dialect schema.Dialect, debug bool) (*bun.DB, error) {
	db := bun.NewDB(sqldb, dialect)
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", models.ErrPersistence, err)
	}
	return db, nil
}
