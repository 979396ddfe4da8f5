// Package database provides SQLite connectivity for the Tuya bridge.
//
// The bridge keeps two small tables: property_history (every pushed property
// change) and dp_snapshots (last known DP snapshot per device). Both are
// owned by internal/history; this package only opens the database and runs
// the embedded migrations.
//
// # Connection
//
// Open pins the pool to one connection, enables foreign keys and, for file
// databases, WAL mode. Config.Path may be MemoryPath for a private
// in-memory database.
//
// # Migrations
//
// Migrations are embedded by the top-level migrations package and applied
// with Migrate, one transaction per file. They are additive: new columns
// must be nullable or carry a default, and every .up.sql has a .down.sql.
//
// # Usage
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
