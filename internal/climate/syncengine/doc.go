// Package syncengine keeps one air conditioner's client properties in step
// with its DP state.
//
// An Engine sits between a StateSource/StateSink pair (the device transport)
// and a PropertySink (whatever presents properties to users). It owns the
// last-pushed property cache and the optimistic write overlay; nothing else
// mutates them.
//
// # Lifecycle
//
//	eng, err := syncengine.New(syncengine.Options{
//	    DeviceID:  "living-room-ac",
//	    Accessory: acc,
//	    Source:    adapter,
//	    Sink:      adapter,
//	    Publisher: publisher,
//	})
//	if err := eng.Start(ctx); err != nil { ... }
//	defer eng.Stop()
//
// Start subscribes to changes, fetches the initial snapshot and publishes
// every enabled property once. Afterwards each delta from the source is
// reconciled in arrival order and only changed properties are published.
//
// # Writes
//
// Write and WriteCompound encode the request into one DP delta and hand it
// to the sink in a single SetValues call, so a compound gesture such as
// "power on and cool" is never applied partially. On success the delta is
// held as a pending overlay: stale values in later snapshots are ignored for
// those keys until a delta reports them, which keeps the display from
// bouncing back to the pre-write value.
//
// Sink and source errors are returned exactly as received. The engine never
// retries; timeouts and backoff belong to the transport.
//
// # Asynchronous forms
//
// ReadAsync, WriteAsync and WriteCompoundAsync run the blocking call on a
// goroutine and return a one-shot channel that yields the outcome.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Deltas are applied under the
// engine lock, so PropertySink implementations are called with the lock held
// and must not call back into the same Engine.
package syncengine
