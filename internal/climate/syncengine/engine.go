package syncengine

import (
	"context"
	"fmt"
	"sync"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
)

// Write outcomes reported to Metrics.
const (
	WriteOK    = "ok"
	WriteNoop  = "noop"
	WriteError = "error"
)

// Options holds the collaborators for one engine.
type Options struct {
	// DeviceID identifies the device in published updates and logs.
	DeviceID string

	// Accessory is the resolved device configuration.
	Accessory *accessory.Accessory

	// Source provides snapshots and change notifications.
	Source StateSource

	// Sink applies writes.
	Sink StateSink

	// Publisher is optional. If nil, updates are only cached.
	Publisher PropertySink

	// Logger is optional.
	Logger Logger

	// Metrics is optional.
	Metrics Metrics
}

// Engine synchronizes one device. Create with New, then call Start.
type Engine struct {
	deviceID  string
	acc       *accessory.Accessory
	source    StateSource
	sink      StateSink
	publisher PropertySink
	metrics   Metrics

	mu          sync.Mutex
	rec         *reconcile.Reconciler
	snapshot    dp.Snapshot       // last full snapshot reported by the source
	pending     dp.Snapshot       // written values not yet reported back
	early       dp.Delta          // deltas received before the initial snapshot
	seq         uint64            // number of deltas applied
	reported    map[string]uint64 // DP key → seq of the last delta carrying it
	subscribed  bool
	started     bool
	stopped     bool
	unsubscribe func()

	logger   Logger
	loggerMu sync.RWMutex
}

// New creates an engine.
//
// Returns:
//   - *Engine: Engine ready for Start
//   - error: ErrMissingDependency if Accessory, Source or Sink is nil
func New(opts Options) (*Engine, error) {
	if opts.Accessory == nil {
		return nil, fmt.Errorf("%w: accessory", ErrMissingDependency)
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: state source", ErrMissingDependency)
	}
	if opts.Sink == nil {
		return nil, fmt.Errorf("%w: state sink", ErrMissingDependency)
	}

	return &Engine{
		deviceID:  opts.DeviceID,
		acc:       opts.Accessory,
		source:    opts.Source,
		sink:      opts.Sink,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		rec:       reconcile.New(opts.Accessory),
		snapshot:  dp.Snapshot{},
		pending:   dp.Snapshot{},
		early:     dp.Delta{},
		reported:  map[string]uint64{},
		logger:    opts.Logger,
	}, nil
}

// DeviceID returns the device identifier.
func (e *Engine) DeviceID() string {
	return e.deviceID
}

// Accessory returns the device configuration.
func (e *Engine) Accessory() *accessory.Accessory {
	return e.acc
}

// Start subscribes to changes, loads the initial snapshot and publishes
// every enabled property.
//
// Deltas that arrive while the initial snapshot is in flight are merged on
// top of it so nothing observed during startup is lost.
//
// Returns:
//   - error: ErrAlreadyStarted, or the source error wrapped with context
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.subscribed || e.stopped {
		e.mu.Unlock()
		return ErrAlreadyStarted
	}
	e.subscribed = true
	e.mu.Unlock()

	unsubscribe := e.source.OnChange(e.handleChange)

	snap, err := e.source.GetSnapshot(ctx, e.acc.Keys().All())
	if err != nil {
		unsubscribe()
		e.mu.Lock()
		e.subscribed = false
		e.early = dp.Delta{}
		e.mu.Unlock()
		return fmt.Errorf("initial snapshot for %s: %w", e.deviceID, err)
	}

	e.mu.Lock()
	e.unsubscribe = unsubscribe
	e.snapshot = snap.Merge(e.early)
	e.early = dp.Delta{}
	updates := e.rec.Prime(e.snapshot)
	e.started = true
	e.publish(updates)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.EngineStarted(e.deviceID)
	}
	e.logInfo("sync engine started",
		"device_id", e.deviceID,
		"properties", len(updates))
	return nil
}

// Stop unsubscribes from the source. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	wasStarted := e.started
	e.stopped = true
	e.started = false
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if wasStarted {
		if e.metrics != nil {
			e.metrics.EngineStopped(e.deviceID)
		}
		e.logInfo("sync engine stopped", "device_id", e.deviceID)
	}
}

// Started reports whether the engine is running.
func (e *Engine) Started() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.started
}

// handleChange ingests one update from the source.
func (e *Engine) handleChange(delta dp.Delta, full dp.Snapshot) {
	if len(delta) == 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}
	if !e.started {
		e.early = e.early.Merge(delta)
		return
	}

	if full != nil {
		e.snapshot = full.Merge(delta)
	} else {
		e.snapshot = e.snapshot.Merge(delta)
	}

	// A reported key confirms or corrects the optimistic value.
	e.seq++
	for key := range delta {
		delete(e.pending, key)
		e.reported[key] = e.seq
	}

	affected := len(e.rec.Affected(delta.Keys()))
	updates := e.rec.Apply(delta, e.effective())

	if e.metrics != nil {
		e.metrics.DeltaApplied(e.deviceID, len(updates), affected-len(updates))
	}
	e.logDebug("delta applied",
		"device_id", e.deviceID,
		"keys", delta.Keys(),
		"updates", len(updates))

	e.publish(updates)
}

// effective is the snapshot with the optimistic overlay applied. Caller
// holds e.mu.
func (e *Engine) effective() dp.Snapshot {
	return e.snapshot.Merge(e.pending)
}

// publish hands updates to the publisher. Caller holds e.mu.
func (e *Engine) publish(updates []reconcile.Update) {
	if len(updates) == 0 || e.publisher == nil {
		return
	}
	e.publisher.PropertiesChanged(e.deviceID, updates)
}

// Read fetches the DP keys p depends on from the source and derives its
// value. Pending written values take precedence over what the source
// returns.
//
// Returns:
//   - any: Property value
//   - error: accessory.ErrUnknownProperty/ErrDisabledProperty, ErrNotStarted,
//     or the source error unmodified
func (e *Engine) Read(ctx context.Context, p accessory.Property) (any, error) {
	if _, ok := accessory.ParseProperty(string(p)); !ok {
		return nil, fmt.Errorf("%w: %q", accessory.ErrUnknownProperty, p)
	}
	if !e.acc.Enabled(p) {
		return nil, fmt.Errorf("%w: %s", accessory.ErrDisabledProperty, p)
	}
	if !e.Started() {
		return nil, ErrNotStarted
	}

	keys := e.acc.Dependencies(p)
	snap, err := e.source.GetSnapshot(ctx, keys)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	overlay := e.pending.Subset(keys)
	e.mu.Unlock()

	return e.acc.Derive(p, snap.Merge(overlay))
}

// Write sets one property. See WriteCompound.
func (e *Engine) Write(ctx context.Context, p accessory.Property, value any) error {
	return e.WriteCompound(ctx, accessory.Values{p: value})
}

// WriteCompound sets several properties with a single SetValues call.
//
// Properties that need current DP values (read-modify-write) are resolved
// first via the source. A request whose properties all encode to no-ops
// succeeds without contacting the sink.
//
// Parameters:
//   - ctx: Context passed to the source and sink
//   - values: Property → requested value
//
// Returns:
//   - error: ErrEmptyWrite, ErrNotStarted, an accessory encoding error, or
//     the source/sink error unmodified
func (e *Engine) WriteCompound(ctx context.Context, values accessory.Values) error {
	if len(values) == 0 {
		return ErrEmptyWrite
	}
	if !e.Started() {
		return ErrNotStarted
	}

	current := dp.Snapshot{}
	if keys := e.acc.CompoundReadKeys(values); len(keys) > 0 {
		snap, err := e.source.GetSnapshot(ctx, keys)
		if err != nil {
			e.recordWrite(WriteError)
			return err
		}
		e.mu.Lock()
		current = snap.Merge(e.pending.Subset(keys))
		e.mu.Unlock()
	}

	delta, err := e.acc.EncodeCompound(values, current)
	if err != nil {
		e.recordWrite(WriteError)
		return err
	}
	if len(delta) == 0 {
		e.recordWrite(WriteNoop)
		e.logDebug("write is a no-op", "device_id", e.deviceID, "properties", len(values))
		return nil
	}

	e.mu.Lock()
	since := e.seq
	e.mu.Unlock()

	if err := e.sink.SetValues(ctx, delta); err != nil {
		e.recordWrite(WriteError)
		e.logWarn("write failed",
			"device_id", e.deviceID,
			"keys", delta.Keys(),
			"error", err)
		return err
	}
	e.recordWrite(WriteOK)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return nil
	}
	// Keys the device reported while the write was in flight already hold
	// newer state than the written value.
	overlay := dp.Delta{}
	for key, v := range delta {
		if e.reported[key] > since {
			continue
		}
		overlay[key] = v
	}
	e.pending = e.pending.Merge(overlay)
	e.publish(e.rec.Apply(delta, e.effective()))
	return nil
}

func (e *Engine) recordWrite(result string) {
	if e.metrics != nil {
		e.metrics.WriteFinished(e.deviceID, result)
	}
}

// ReadResult is the outcome of ReadAsync.
type ReadResult struct {
	Value any
	Err   error
}

// ReadAsync runs Read on a goroutine. The channel receives exactly one
// result and is then closed.
func (e *Engine) ReadAsync(ctx context.Context, p accessory.Property) <-chan ReadResult {
	out := make(chan ReadResult, 1)
	go func() {
		defer close(out)
		v, err := e.Read(ctx, p)
		out <- ReadResult{Value: v, Err: err}
	}()
	return out
}

// WriteAsync runs Write on a goroutine. The channel receives the outcome
// (nil on success) and is then closed.
func (e *Engine) WriteAsync(ctx context.Context, p accessory.Property, value any) <-chan error {
	return e.WriteCompoundAsync(ctx, accessory.Values{p: value})
}

// WriteCompoundAsync runs WriteCompound on a goroutine.
func (e *Engine) WriteCompoundAsync(ctx context.Context, values accessory.Values) <-chan error {
	out := make(chan error, 1)
	go func() {
		defer close(out)
		out <- e.WriteCompound(ctx, values)
	}()
	return out
}

// Properties returns the last value pushed for every enabled property.
func (e *Engine) Properties() accessory.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Values()
}

// Property returns the last value pushed for p.
func (e *Engine) Property(p accessory.Property) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Last(p)
}

// Snapshot returns the last known DP snapshot with pending writes applied.
func (e *Engine) Snapshot() dp.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.effective()
}

// Pending returns the written DP values still awaiting confirmation.
func (e *Engine) Pending() dp.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending.Clone()
}

// SetLogger replaces the logger.
func (e *Engine) SetLogger(logger Logger) {
	e.loggerMu.Lock()
	e.logger = logger
	e.loggerMu.Unlock()
}

func (e *Engine) getLogger() Logger {
	e.loggerMu.RLock()
	defer e.loggerMu.RUnlock()
	return e.logger
}

func (e *Engine) logInfo(msg string, keysAndValues ...any) {
	if logger := e.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

func (e *Engine) logWarn(msg string, keysAndValues ...any) {
	if logger := e.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (e *Engine) logDebug(msg string, keysAndValues ...any) {
	if logger := e.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
