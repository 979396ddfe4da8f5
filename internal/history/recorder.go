package history

import (
	"context"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
)

// defaultWriteTimeout bounds one SQLite write from the recorder.
const defaultWriteTimeout = 5 * time.Second

// ChangeStore persists property changes.
type ChangeStore interface {
	RecordChanges(ctx context.Context, deviceID string, updates []reconcile.Update, source string) error
}

// MetricWriter writes numeric property samples to a time-series database.
// Satisfied by *influxdb.Client.
type MetricWriter interface {
	WritePropertyMetric(deviceID, property string, value float64, at time.Time)
}

// Logger is the logging surface used by the recorder.
type Logger interface {
	Warn(msg string, keysAndValues ...any)
}

// RecorderOptions configures a Recorder. Every field is optional.
type RecorderOptions struct {
	Store        ChangeStore
	Metrics      MetricWriter
	WriteTimeout time.Duration
	Logger       Logger
}

// Recorder fans property updates out to the history store and the
// time-series database. It implements syncengine.PropertySink.
//
// Only booleans and numbers reach the time-series database; booleans are
// written as 0 or 1. Enumerated values (target state, units) are stored in
// SQLite only.
type Recorder struct {
	store   ChangeStore
	metrics MetricWriter
	timeout time.Duration
	now     func() time.Time

	logger   Logger
	loggerMu sync.RWMutex
}

// NewRecorder creates a recorder.
func NewRecorder(opts RecorderOptions) *Recorder {
	timeout := opts.WriteTimeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}
	return &Recorder{
		store:   opts.Store,
		metrics: opts.Metrics,
		timeout: timeout,
		now:     time.Now,
		logger:  opts.Logger,
	}
}

// PropertiesChanged implements syncengine.PropertySink.
func (r *Recorder) PropertiesChanged(deviceID string, updates []reconcile.Update) {
	if len(updates) == 0 {
		return
	}

	if r.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		err := r.store.RecordChanges(ctx, deviceID, updates, SourceEngine)
		cancel()
		if err != nil {
			r.logWarn("failed to record property history", "device_id", deviceID, "error", err)
		}
	}

	if r.metrics != nil {
		at := r.now()
		for _, u := range updates {
			if v, ok := MetricValue(u.Value); ok {
				r.metrics.WritePropertyMetric(deviceID, string(u.Property), v, at)
			}
		}
	}
}

// MetricValue converts a property value to a time-series sample.
// Booleans map to 0/1; strings are never sampled, even numeric ones.
func MetricValue(v any) (float64, bool) {
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case string, nil:
		return 0, false
	}
	return dp.Number(v)
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.loggerMu.Lock()
	r.logger = logger
	r.loggerMu.Unlock()
}

func (r *Recorder) logWarn(msg string, keysAndValues ...any) {
	r.loggerMu.RLock()
	logger := r.logger
	r.loggerMu.RUnlock()

	if logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}
