package database

import (
	"context"
	"embed"
	"testing"
	"time"
)

//go:embed testdata/*.sql
var testMigrationsFS embed.FS

// useTestMigrations points the package at testdata for the duration of t.
func useTestMigrations(t *testing.T) {
	t.Helper()
	origFS, origDir := MigrationsFS, MigrationsDir
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
	MigrationsFS = testMigrationsFS
	MigrationsDir = "testdata"
}

func tableExists(t *testing.T, db *DB, kind, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM sqlite_master WHERE type = ? AND name = ?", kind, name).Scan(&n)
	if err != nil {
		t.Fatalf("sqlite_master query: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "table", "test_readings") {
		t.Error("test_readings not created")
	}
	if !tableExists(t, db, "index", "idx_test_readings_device") {
		t.Error("idx_test_readings_device not created")
	}

	applied, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}
	if applied[0].Version != "20261001_100000" || applied[0].AppliedAt.IsZero() {
		t.Errorf("applied[0] = %+v", applied[0])
	}

	// Second run is a no-op.
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}
}

func TestMigrateDown(t *testing.T) {
	useTestMigrations(t)
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}

	if tableExists(t, db, "index", "idx_test_readings_device") {
		t.Error("index still present after MigrateDown")
	}
	if !tableExists(t, db, "table", "test_readings") {
		t.Error("MigrateDown rolled back more than one migration")
	}

	_, pending, err := db.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Name != "add_reading_index" {
		t.Errorf("pending = %+v, want add_reading_index", pending)
	}
}

func TestMigrateNoMigrations(t *testing.T) {
	origFS := MigrationsFS
	t.Cleanup(func() { MigrationsFS = origFS })
	MigrationsFS = embed.FS{}

	db := openTestDB(t)
	if err := db.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() with no migrations error = %v", err)
	}
	if err := db.MigrateDown(context.Background()); err != nil {
		t.Errorf("MigrateDown() with nothing applied error = %v", err)
	}
}

func TestLoadMigrationsOrdered(t *testing.T) {
	useTestMigrations(t)
	all, err := loadMigrations()
	if err != nil {
		t.Fatalf("loadMigrations() error = %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}
	if all[0].Name != "create_readings" || all[1].Name != "add_reading_index" {
		t.Errorf("order = %s, %s", all[0].Name, all[1].Name)
	}
	if all[0].DownSQL == "" {
		t.Error("down SQL not paired with up SQL")
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		file        string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOk      bool
	}{
		{"20261019_090000_property_history.up.sql", "20261019_090000", "property_history", true, true},
		{"20261019_090000_property_history.down.sql", "20261019_090000", "property_history", false, true},
		{"20261019_090000.up.sql", "20261019_090000", "20261019_090000", true, true},
		{"readme.txt", "", "", false, false},
		{"20261019_090000_property_history.sql", "", "", false, false},
		{"invalid.up.sql", "", "", false, false},
		{"2026_09_x.up.sql", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			version, name, up, ok := parseMigrationFilename(tt.file)
			if ok != tt.wantOk {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOk)
			}
			if !ok {
				return
			}
			if version != tt.wantVersion || name != tt.wantName || up != tt.wantUp {
				t.Errorf("parseMigrationFilename(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.file, version, name, up, tt.wantVersion, tt.wantName, tt.wantUp)
			}
		})
	}
}
