package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database. Used by tests and by the
// bridge when history is not persisted.
const MemoryPath = ":memory:"

const (
	dirPermissions  = 0750
	filePermissions = 0600

	msPerSecond       = 1000
	connectionTimeout = 5 * time.Second
	connMaxIdleTime   = 30 * time.Minute
)

// DB wraps a sql.DB holding the bridge's history and snapshot tables.
type DB struct {
	*sql.DB
	path string
}

// Config contains database configuration options.
// These map to the database section of config.yaml.
type Config struct {
	// Path is the SQLite file path, or MemoryPath. Parent directories are
	// created on open.
	Path string

	// WALMode enables Write-Ahead Logging so API reads do not block the
	// history writer.
	WALMode bool

	// BusyTimeout is the maximum time to wait for a database lock (seconds).
	BusyTimeout int
}

// Open creates a database connection.
//
// The pool is pinned to a single connection: SQLite allows one writer, and
// an in-memory database only lives as long as its connection.
//
// Parameters:
//   - cfg: Database configuration
//
// Returns:
//   - *DB: Connected database wrapper
//   - error: If the directory, connection or ping fails
func Open(cfg Config) (*DB, error) {
	memory := cfg.Path == MemoryPath
	if !memory {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite3", connectionString(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	if memory {
		sqlDB.SetConnMaxLifetime(0)
		sqlDB.SetConnMaxIdleTime(0)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
		sqlDB.SetConnMaxIdleTime(connMaxIdleTime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	if !memory {
		_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // File may be created lazily
	}

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// connectionString builds the go-sqlite3 DSN with pragmas.
// See: https://github.com/mattn/go-sqlite3#connection-string
func connectionString(cfg Config) string {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*msPerSecond)
	if cfg.WALMode && cfg.Path != MemoryPath {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}
	return dsn
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the path the database was opened with.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to prove the connection is usable.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
//
// Example:
//
//	err := db.WithTx(ctx, func(tx *sql.Tx) error {
//	    _, err := tx.ExecContext(ctx, "DELETE FROM property_history WHERE created_at < ?", cutoff)
//	    return err
//	})
func (db *DB) WithTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}
