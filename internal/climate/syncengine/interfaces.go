package syncengine

import (
	"context"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
)

// ChangeHandler receives one device-originated update. delta holds only the
// changed keys; full is the complete snapshot with delta applied (nil if the
// source does not track one).
type ChangeHandler func(delta dp.Delta, full dp.Snapshot)

// StateSource provides device state.
type StateSource interface {
	// GetSnapshot returns the current values for keys. Keys the device does
	// not report are omitted.
	GetSnapshot(ctx context.Context, keys []string) (dp.Snapshot, error)

	// OnChange registers handler for every subsequent update and returns a
	// function that removes it.
	OnChange(handler ChangeHandler) (unsubscribe func())
}

// StateSink applies DP updates. All keys of one call must be applied
// together.
type StateSink interface {
	SetValues(ctx context.Context, updates dp.Delta) error
}

// PropertySink receives property updates for presentation.
type PropertySink interface {
	PropertiesChanged(deviceID string, updates []reconcile.Update)
}

// Logger is the structured logging surface used by the engine.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Metrics receives engine counters. Implementations must be cheap and
// non-blocking.
type Metrics interface {
	// EngineStarted and EngineStopped bracket an engine's lifetime.
	EngineStarted(deviceID string)
	EngineStopped(deviceID string)

	// DeltaApplied records one delta with the number of properties it
	// pushed and the number suppressed as unchanged.
	DeltaApplied(deviceID string, pushed, suppressed int)

	// WriteFinished records a write outcome: "ok", "noop" or "error".
	WriteFinished(deviceID string, result string)
}
