package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
)

// SourceEngine marks changes pushed by a sync engine.
const SourceEngine = "engine"

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500

	// timeLayout has a fixed width so text order matches time order.
	timeLayout = "2006-01-02T15:04:05.000000Z"
)

// Entry is one recorded property change.
type Entry struct {
	ID        int64     `json:"id"`
	DeviceID  string    `json:"device_id"`
	Property  string    `json:"property"`
	Value     any       `json:"value"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter narrows a history query.
type Filter struct {
	Property string    // optional: only this property
	Since    time.Time // optional: only entries at or after Since
	Limit    int       // default 50, max 500
}

// SnapshotRecord is the last DP snapshot stored for a device.
type SnapshotRecord struct {
	DeviceID  string      `json:"device_id"`
	Snapshot  dp.Snapshot `json:"snapshot"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// SQLiteRepository stores property history and DP snapshots in SQLite.
//
// Thread Safety: Safe for concurrent use; serialisation is left to the
// database connection pool.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository over an open, migrated database.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// RecordChanges inserts one row per update in a single transaction.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device the updates belong to
//   - updates: Property updates in publication order
//   - source: Origin of the change (default SourceEngine)
//
// Returns:
//   - error: ErrInvalidArgument, or the underlying database error
func (r *SQLiteRepository) RecordChanges(ctx context.Context, deviceID string, updates []reconcile.Update, source string) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if len(updates) == 0 {
		return nil
	}
	if source == "" {
		source = SourceEngine
	}
	createdAt := formatTime(r.now())

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning history transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback after commit is a no-op

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO property_history (device_id, property, value, source, created_at) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing history insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		value, err := json.Marshal(u.Value)
		if err != nil {
			return fmt.Errorf("marshalling %s value: %w", u.Property, err)
		}
		if _, err := stmt.ExecContext(ctx, deviceID, string(u.Property), string(value), source, createdAt); err != nil {
			return fmt.Errorf("inserting property history: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing property history: %w", err)
	}
	return nil
}

// GetHistory returns recent property changes for a device, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - deviceID: Device identifier
//   - filter: Optional property, lower time bound and limit
//
// Returns:
//   - []Entry: Matching entries (empty, never nil)
//   - error: ErrInvalidArgument, or the underlying query error
func (r *SQLiteRepository) GetHistory(ctx context.Context, deviceID string, filter Filter) ([]Entry, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	query := `SELECT id, device_id, property, value, source, created_at
		FROM property_history
		WHERE device_id = ?`
	args := []any{deviceID}
	if filter.Property != "" {
		query += " AND property = ?"
		args = append(args, filter.Property)
	}
	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, formatTime(filter.Since))
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying property history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var valueJSON, createdAt string
		if err := rows.Scan(&entry.ID, &entry.DeviceID, &entry.Property, &valueJSON, &entry.Source, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning property history: %w", err)
		}
		if err := json.Unmarshal([]byte(valueJSON), &entry.Value); err != nil {
			return nil, fmt.Errorf("unmarshalling %s value: %w", entry.Property, err)
		}
		if entry.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating property history: %w", err)
	}
	return entries, nil
}

// PruneHistory deletes entries older than olderThan.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: ErrInvalidArgument for a non-positive duration, or the database error
func (r *SQLiteRepository) PruneHistory(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("%w: retention must be positive", ErrInvalidArgument)
	}

	cutoff := formatTime(r.now().Add(-olderThan))
	result, err := r.db.ExecContext(ctx, "DELETE FROM property_history WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("deleting property history: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}

// SaveSnapshot stores the device's latest DP snapshot, replacing any
// previous one.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, deviceID string, snapshot dp.Snapshot) error {
	if deviceID == "" {
		return fmt.Errorf("%w: device id is required", ErrInvalidArgument)
	}
	if snapshot == nil {
		snapshot = dp.Snapshot{}
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshalling snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO dp_snapshots (device_id, snapshot, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at`,
		deviceID, string(data), formatTime(r.now()))
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// GetSnapshot returns the stored DP snapshot for a device.
//
// Returns:
//   - SnapshotRecord: Stored snapshot and when it was saved
//   - error: ErrNotFound if none is stored
func (r *SQLiteRepository) GetSnapshot(ctx context.Context, deviceID string) (SnapshotRecord, error) {
	var data, updatedAt string
	err := r.db.QueryRowContext(ctx,
		"SELECT snapshot, updated_at FROM dp_snapshots WHERE device_id = ?", deviceID).Scan(&data, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, fmt.Errorf("%w: snapshot for %s", ErrNotFound, deviceID)
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("querying snapshot: %w", err)
	}

	rec := SnapshotRecord{DeviceID: deviceID}
	if err := json.Unmarshal([]byte(data), &rec.Snapshot); err != nil {
		return SnapshotRecord{}, fmt.Errorf("unmarshalling snapshot: %w", err)
	}
	if rec.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return SnapshotRecord{}, err
	}
	return rec, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeLayout, value)
	if err == nil {
		return t, nil
	}
	if t, fallbackErr := time.Parse(time.RFC3339Nano, value); fallbackErr == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", value, err)
}
