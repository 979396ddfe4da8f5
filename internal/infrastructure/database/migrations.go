package database

import (
	"cmp"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"
	"time"
)

// MigrationsFS holds the embedded migration files. The migrations package
// sets it from an init function:
//
//	//go:embed *.sql
//	var migrationsFS embed.FS
//
//	func init() {
//	    database.MigrationsFS = migrationsFS
//	    database.MigrationsDir = "."
//	}
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS holding the files.
var MigrationsDir = "migrations"

// Migration is one versioned schema change.
//
// Files are named YYYYMMDD_HHMMSS_description.up.sql with an optional
// matching .down.sql.
type Migration struct {
	Version string
	Name    string
	UpSQL   string
	DownSQL string
}

// MigrationRecord is a row of the schema_migrations table.
type MigrationRecord struct {
	Version   string
	AppliedAt time.Time
}

// Migrate applies every pending migration in version order, each in its own
// transaction. A failing migration is rolled back and later ones are not
// attempted; earlier ones stay applied, so re-running Migrate continues from
// the failure.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		return err
	}

	for _, m := range pending {
		err := db.WithTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
				return fmt.Errorf("executing SQL: %w", err)
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				m.Version, time.Now().UTC().Format(time.RFC3339))
			return err
		})
		if err != nil {
			return fmt.Errorf("applying migration %s (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration. It is a no-op
// when nothing has been applied.
func (db *DB) MigrateDown(ctx context.Context) error {
	applied, err := db.appliedMigrations(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	latest := applied[len(applied)-1].Version

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading migrations: %w", err)
	}
	i := slices.IndexFunc(all, func(m Migration) bool { return m.Version == latest })
	if i < 0 {
		return fmt.Errorf("migration %s not found in filesystem", latest)
	}
	if all[i].DownSQL == "" {
		return fmt.Errorf("migration %s has no down SQL", latest)
	}

	return db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, all[i].DownSQL); err != nil {
			return fmt.Errorf("executing down SQL: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", latest); err != nil {
			return fmt.Errorf("removing migration record: %w", err)
		}
		return nil
	})
}

// MigrationStatus reports applied and pending migrations.
func (db *DB) MigrationStatus(ctx context.Context) (applied []MigrationRecord, pending []Migration, err error) {
	if err := db.createMigrationsTable(ctx); err != nil {
		return nil, nil, fmt.Errorf("creating migrations table: %w", err)
	}
	applied, err = db.appliedMigrations(ctx)
	if err != nil {
		return nil, nil, err
	}
	all, err := loadMigrations()
	if err != nil {
		return nil, nil, fmt.Errorf("loading migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.Version] = true
	}
	for _, m := range all {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return applied, pending, nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL
		)
	`)
	return err
}

func (db *DB) appliedMigrations(ctx context.Context) ([]MigrationRecord, error) {
	rows, err := db.QueryContext(ctx, "SELECT version, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, fmt.Errorf("querying migrations: %w", err)
	}
	defer rows.Close()

	var records []MigrationRecord
	for rows.Next() {
		var r MigrationRecord
		var appliedAt string
		if err := rows.Scan(&r.Version, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning migration row: %w", err)
		}
		r.AppliedAt, _ = time.Parse(time.RFC3339, appliedAt) //nolint:errcheck // Written by Migrate
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating migrations: %w", err)
	}
	return records, nil
}

// loadMigrations reads MigrationsFS and returns migrations sorted by version.
// An unset filesystem or missing directory yields no migrations.
func loadMigrations() ([]Migration, error) {
	var empty embed.FS
	if MigrationsFS == empty {
		return nil, nil
	}
	names, err := fs.Glob(MigrationsFS, path.Join(MigrationsDir, "*.sql"))
	if err != nil || len(names) == 0 {
		return nil, nil //nolint:nilerr // Glob only fails on a bad pattern
	}

	byVersion := map[string]*Migration{}
	for _, full := range names {
		file := path.Base(full)
		version, name, up, ok := parseMigrationFilename(file)
		if !ok {
			continue
		}
		body, err := fs.ReadFile(MigrationsFS, full)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", file, err)
		}
		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: name}
			byVersion[version] = m
		}
		if up {
			m.UpSQL = string(body)
		} else {
			m.DownSQL = string(body)
		}
	}

	out := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %s has no up SQL", m.Version)
		}
		out = append(out, *m)
	}
	slices.SortFunc(out, func(a, b Migration) int { return cmp.Compare(a.Version, b.Version) })
	return out, nil
}

// parseMigrationFilename splits "20261019_090000_property_history.up.sql"
// into version "20261019_090000", name "property_history" and direction.
func parseMigrationFilename(file string) (version, name string, up, ok bool) {
	base, found := strings.CutSuffix(file, ".sql")
	if !found {
		return "", "", false, false
	}
	switch {
	case strings.HasSuffix(base, ".up"):
		up = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return "", "", false, false
	}

	parts := strings.SplitN(base, "_", 3)
	if len(parts) < 2 || len(parts[0]) != 8 || len(parts[1]) != 6 {
		return "", "", false, false
	}
	version = parts[0] + "_" + parts[1]
	name = version
	if len(parts) == 3 {
		name = parts[2]
	}
	return version, name, up, true
}
