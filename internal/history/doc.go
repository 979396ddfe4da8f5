// Package history records the property changes published by the sync
// engines and the last DP snapshot seen per device.
//
// SQLiteRepository keeps a bounded local trail in the property_history and
// dp_snapshots tables (see the migrations package). Recorder is the
// syncengine.PropertySink that feeds it, and optionally mirrors numeric and
// boolean properties to InfluxDB.
//
// Retention is enforced by PruneHistory, which the bridge runs on its health
// tick.
package history
