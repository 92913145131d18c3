package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/freelanceops/billing/internal/config"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/types"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// MemoryDSN opens a private in-memory SQLite database
const MemoryDSN = ":memory:"

func init() {
	// sqlx does not know the modernc driver name
	sqlx.BindDriver(string(types.DatabaseDriverSQLite), sqlx.QUESTION)
}

// DB wraps sqlx.DB to provide transaction management
type DB struct {
	*sqlx.DB
	driver     types.DatabaseDriver
	maxRetries int
	logger     *logger.Logger
}

// Querier interface defines all database operations
// Both *sqlx.DB and *sqlx.Tx implement these methods
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	Rebind(query string) string
}

// NewDB opens the configured store, applies connection settings and runs migrations when enabled
func NewDB(cfg *config.Configuration, logger *logger.Logger) (*DB, error) {
	dbCfg := cfg.Database

	var (
		conn *sqlx.DB
		err  error
	)
	switch dbCfg.Driver {
	case types.DatabaseDriverPostgres:
		conn, err = sqlx.Connect("postgres", dbCfg.Postgres.GetDSN())
	case types.DatabaseDriverSQLite:
		conn, err = openSQLite(dbCfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", dbCfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if dbCfg.Driver == types.DatabaseDriverSQLite {
		// a single connection serializes writers and keeps :memory: databases shared
		conn.SetMaxOpenConns(1)
	} else if dbCfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(dbCfg.MaxOpenConns)
	}
	if dbCfg.MaxIdleConns > 0 {
		conn.SetMaxIdleConns(dbCfg.MaxIdleConns)
	}
	if dbCfg.ConnMaxLifetime > 0 {
		conn.SetConnMaxLifetime(dbCfg.ConnMaxLifetime)
	}

	db := &DB{
		DB:         conn,
		driver:     dbCfg.Driver,
		maxRetries: dbCfg.TxMaxRetries,
		logger:     logger,
	}

	if dbCfg.AutoMigrate {
		if err := db.Migrate(context.Background()); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("running migrations: %w", err)
		}
	}

	logger.Infow("database connected",
		"driver", dbCfg.Driver,
		"auto_migrate", dbCfg.AutoMigrate,
	)
	return db, nil
}

func openSQLite(path string) (*sqlx.DB, error) {
	if path != MemoryDSN {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	conn, err := sqlx.Open(string(types.DatabaseDriverSQLite), path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	if path != MemoryDSN {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("applying %q: %w", p, err)
		}
	}
	return conn, nil
}

// Driver returns the configured driver
func (db *DB) Driver() types.DatabaseDriver {
	return db.driver
}

// ForUpdate returns the row locking clause supported by the driver.
// SQLite serializes writers on its single connection and has no row locks.
func (db *DB) ForUpdate() string {
	if db.driver == types.DatabaseDriverPostgres {
		return " FOR UPDATE"
	}
	return ""
}

// Close closes the database connection
func (db *DB) Close() {
	if err := db.DB.Close(); err != nil {
		db.logger.Errorw("error closing database", "error", err)
	}
}

// GetQuerier returns either the transaction from context or the base DB
func (db *DB) GetQuerier(ctx context.Context) Querier {
	if tx, ok := GetTx(ctx); ok {
		return NewTracedQuerier(tx.Tx, db.logger, tx.ID)
	}
	return NewTracedQuerier(db.DB, db.logger, "")
}

// bind expands a named query, including slice arguments for IN clauses,
// into the bindvar style of the driver
func (db *DB) bind(q Querier, query string, arg interface{}) (string, []interface{}, error) {
	named, args, err := sqlx.Named(query, arg)
	if err != nil {
		return "", nil, err
	}
	expanded, args, err := sqlx.In(named, args...)
	if err != nil {
		return "", nil, err
	}
	return q.Rebind(expanded), args, nil
}

// NamedExecContext executes a named statement on the querier from context
func (db *DB) NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error) {
	q := db.GetQuerier(ctx)
	bound, args, err := db.bind(q, query, arg)
	if err != nil {
		return nil, err
	}
	return q.ExecContext(ctx, bound, args...)
}

// NamedGetContext scans a single row of a named query into dest
func (db *DB) NamedGetContext(ctx context.Context, dest interface{}, query string, arg interface{}) error {
	q := db.GetQuerier(ctx)
	bound, args, err := db.bind(q, query, arg)
	if err != nil {
		return err
	}
	return q.GetContext(ctx, dest, bound, args...)
}

// NamedSelectContext scans all rows of a named query into dest
func (db *DB) NamedSelectContext(ctx context.Context, dest interface{}, query string, arg interface{}) error {
	q := db.GetQuerier(ctx)
	bound, args, err := db.bind(q, query, arg)
	if err != nil {
		return err
	}
	return q.SelectContext(ctx, dest, bound, args...)
}
