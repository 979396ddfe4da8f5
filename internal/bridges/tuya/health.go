package tuya

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

// DefaultHealthInterval is used when HealthReporterConfig.Interval is zero.
const DefaultHealthInterval = 30 * time.Second

// HealthPublisher is the interface for publishing health messages.
// This is typically implemented by an MQTT client.
type HealthPublisher interface {
	// Publish sends a message to a topic with the specified QoS and retention.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// IsConnected returns true if the publisher is connected.
	IsConnected() bool
}

// EngineCounter reports how many sync engines are running.
type EngineCounter interface {
	EngineCounts() (started, total int)
}

// HealthReporter manages periodic health status reporting.
// It publishes health messages to MQTT at regular intervals.
type HealthReporter struct {
	bridgeID  string
	version   string
	startTime time.Time
	interval  time.Duration
	publisher HealthPublisher
	engines   EngineCounter
	onTick    func(ctx context.Context)
	topics    mqtt.Topics

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger   syncengine.Logger
	loggerMu sync.RWMutex
}

// HealthReporterConfig holds configuration for the health reporter.
type HealthReporterConfig struct {
	// BridgeID is the bridge identifier for health messages.
	BridgeID string

	// Version is the bridge software version.
	Version string

	// Interval is how often to publish health status.
	// Default: 30 seconds.
	Interval time.Duration

	// Publisher is the MQTT client for publishing messages.
	Publisher HealthPublisher

	// Engines reports sync engine status. Optional.
	Engines EngineCounter

	// OnTick runs before each periodic report. Optional.
	OnTick func(ctx context.Context)
}

// NewHealthReporter creates a new health reporter.
//
// Parameters:
//   - cfg: Configuration for the health reporter
//
// Returns:
//   - *HealthReporter: Ready to start (call Start to begin reporting)
func NewHealthReporter(cfg HealthReporterConfig) *HealthReporter {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultHealthInterval
	}

	return &HealthReporter{
		bridgeID:  cfg.BridgeID,
		version:   cfg.Version,
		startTime: time.Now(),
		interval:  interval,
		publisher: cfg.Publisher,
		engines:   cfg.Engines,
		onTick:    cfg.OnTick,
		done:      make(chan struct{}),
	}
}

// Start begins periodic health reporting.
// Call Stop to shut down.
func (h *HealthReporter) Start(ctx context.Context) {
	h.wg.Add(1)
	go h.reportLoop(ctx)
}

// Stop gracefully stops health reporting.
// Publishes a final "stopping" status before returning.
// Safe to call multiple times.
func (h *HealthReporter) Stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()

		//nolint:errcheck // Best-effort during shutdown, nothing we can do if it fails
		h.publishStatus(HealthStopping, "")
	})
}

// SetLogger sets the logger for this reporter.
func (h *HealthReporter) SetLogger(logger syncengine.Logger) {
	h.loggerMu.Lock()
	h.logger = logger
	h.loggerMu.Unlock()
}

// PublishStarting publishes a "starting" status.
func (h *HealthReporter) PublishStarting() error {
	return h.publishStatus(HealthStarting, "bridge starting")
}

// PublishNow publishes the current health status immediately.
func (h *HealthReporter) PublishNow() error {
	status, reason := h.determineStatus()
	return h.publishStatus(status, reason)
}

func (h *HealthReporter) reportLoop(ctx context.Context) {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-ticker.C:
			if h.onTick != nil {
				h.onTick(ctx)
			}
			if err := h.PublishNow(); err != nil {
				h.logError("failed to publish health", err)
			}
		}
	}
}

// determineStatus evaluates the current bridge status.
func (h *HealthReporter) determineStatus() (HealthStatus, string) {
	if h.publisher == nil || !h.publisher.IsConnected() {
		return HealthDegraded, "MQTT disconnected"
	}
	if h.engines != nil {
		started, total := h.engines.EngineCounts()
		if started < total {
			return HealthDegraded, fmt.Sprintf("%d of %d devices not synchronised", total-started, total)
		}
	}
	return HealthHealthy, ""
}

func (h *HealthReporter) publishStatus(status HealthStatus, reason string) error {
	if h.publisher == nil {
		return nil
	}

	msg := HealthMessage{
		Bridge:        mqtt.Protocol,
		BridgeID:      h.bridgeID,
		Timestamp:     time.Now().UTC(),
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Reason:        reason,
	}
	if h.engines != nil {
		msg.EnginesStarted, msg.DevicesManaged = h.engines.EngineCounts()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	// QoS 1, retained so late subscribers see the last status.
	return h.publisher.Publish(h.topics.BridgeHealth(mqtt.Protocol), payload, 1, true)
}

func (h *HealthReporter) logError(msg string, err error) {
	h.loggerMu.RLock()
	logger := h.logger
	h.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
