package tuya

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

// snapshotSaveTimeout bounds the final snapshot save during Stop.
const snapshotSaveTimeout = 5 * time.Second

// commandQueueSize bounds the commands waiting for one device.
const commandQueueSize = 32

// SnapshotStore persists the last DP snapshot seen per device.
// It is optional; if nil, snapshots are only held in memory.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, deviceID string, snapshot dp.Snapshot) error
}

// BridgeOptions holds configuration for creating a bridge.
type BridgeOptions struct {
	// Devices are the validated device configurations (see LoadDevices).
	Devices []DeviceConfig

	// MQTTClient is the MQTT client implementation.
	MQTTClient MQTTClient

	// GatewayPrefix is the base of the gateway topics. Default "tuya".
	GatewayPrefix string

	// AckTimeout bounds each gateway write. Default DefaultAckTimeout.
	AckTimeout time.Duration

	// SnapshotTimeout bounds the wait for a gateway's first state.
	// Default DefaultSnapshotTimeout.
	SnapshotTimeout time.Duration

	// HealthInterval is the health publish period. Default 30s.
	HealthInterval time.Duration

	// BridgeID and Version appear in health messages.
	BridgeID string
	Version  string

	// Logger is optional structured logger.
	Logger syncengine.Logger

	// Metrics is optional and shared by every engine.
	Metrics syncengine.Metrics

	// Listeners receive every published property batch (history, websocket).
	Listeners []syncengine.PropertySink

	// Snapshots is optional DP snapshot persistence.
	Snapshots SnapshotStore

	// OnHealthTick runs on every health interval after engine retries and
	// snapshot saves. Optional.
	OnHealthTick func(ctx context.Context)
}

type managedDevice struct {
	cfg     DeviceConfig
	acc     *accessory.Accessory
	gateway *Gateway
	engine  *syncengine.Engine

	// commands feeds the device's command worker in arrival order.
	commands chan []byte
}

// DeviceInfo summarises a managed device for the API.
type DeviceInfo struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name"`
	GatewayID      string                   `json:"gateway_id"`
	Representation accessory.Representation `json:"representation"`
	Started        bool                     `json:"started"`
	GatewayReady   bool                     `json:"gateway_ready"`
	LastSeen       *time.Time               `json:"last_seen,omitempty"`
}

// Bridge hosts one gateway and one sync engine per configured device.
// It handles:
//   - Receiving commands via MQTT and applying them as property writes
//   - Publishing property state and exposed-properties declarations
//   - Health reporting, engine restarts and graceful shutdown
//
// Thread Safety: All methods are safe for concurrent use.
type Bridge struct {
	bridgeID   string
	mqtt       MQTTClient
	topics     mqtt.Topics
	devices    map[string]*managedDevice
	order      []string
	publisher  *StatePublisher
	health     *HealthReporter
	snapshots  SnapshotStore
	onTick     func(ctx context.Context)
	cmdTimeout time.Duration

	// Shutdown coordination
	stateMu   sync.Mutex
	stopped   bool
	done      chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
	ctx       context.Context
	ctxCancel context.CancelFunc

	logger   syncengine.Logger
	loggerMu sync.RWMutex
}

// NewBridge creates a bridge and every device's gateway and engine.
// Call Start to begin operation.
func NewBridge(opts BridgeOptions) (*Bridge, error) {
	if opts.MQTTClient == nil {
		return nil, fmt.Errorf("%w: MQTT client is required", ErrInvalidConfig)
	}
	if len(opts.Devices) == 0 {
		return nil, fmt.Errorf("%w: at least one device is required", ErrInvalidConfig)
	}

	ctx, ctxCancel := context.WithCancel(context.Background())

	b := &Bridge{
		bridgeID:  opts.BridgeID,
		mqtt:      opts.MQTTClient,
		devices:   make(map[string]*managedDevice, len(opts.Devices)),
		snapshots: opts.Snapshots,
		onTick:    opts.OnHealthTick,
		done:      make(chan struct{}),
		ctx:       ctx,
		ctxCancel: ctxCancel,
		logger:    opts.Logger,
	}

	b.publisher = NewStatePublisher(opts.MQTTClient, opts.Listeners...)
	b.publisher.SetLogger(opts.Logger)

	topics := mqtt.GatewayTopics{Prefix: opts.GatewayPrefix}
	for _, cfg := range opts.Devices {
		if _, dup := b.devices[cfg.DeviceID]; dup {
			ctxCancel()
			return nil, fmt.Errorf("%w: duplicate device %s", ErrInvalidConfig, cfg.DeviceID)
		}
		acc, err := cfg.Accessory()
		if err != nil {
			ctxCancel()
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		gw, err := NewGateway(GatewayOptions{
			GatewayID:       cfg.GatewayID,
			Topics:          topics,
			Client:          opts.MQTTClient,
			AckTimeout:      opts.AckTimeout,
			SnapshotTimeout: opts.SnapshotTimeout,
			Logger:          opts.Logger,
		})
		if err != nil {
			ctxCancel()
			return nil, err
		}
		engine, err := syncengine.New(syncengine.Options{
			DeviceID:  cfg.DeviceID,
			Accessory: acc,
			Source:    gw,
			Sink:      gw,
			Publisher: b.publisher,
			Logger:    opts.Logger,
			Metrics:   opts.Metrics,
		})
		if err != nil {
			ctxCancel()
			return nil, err
		}
		b.devices[cfg.DeviceID] = &managedDevice{
			cfg:      cfg,
			acc:      acc,
			gateway:  gw,
			engine:   engine,
			commands: make(chan []byte, commandQueueSize),
		}
		b.order = append(b.order, cfg.DeviceID)

		// A write reads a snapshot then waits for the gateway result.
		if t := gw.snapshotTimeout + gw.ackTimeout; t > b.cmdTimeout {
			b.cmdTimeout = t
		}
	}

	b.health = NewHealthReporter(HealthReporterConfig{
		BridgeID:  opts.BridgeID,
		Version:   opts.Version,
		Interval:  opts.HealthInterval,
		Publisher: opts.MQTTClient,
		Engines:   b,
		OnTick:    b.healthTick,
	})
	b.health.SetLogger(opts.Logger)

	return b, nil
}

// Start subscribes every gateway, starts the engines, publishes the
// exposed-properties declarations and begins accepting commands.
//
// An engine whose gateway has not reported state in time is logged and
// retried on every health tick; it does not fail Start.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.health.PublishStarting(); err != nil {
		b.logError("failed to publish starting status", err)
	}

	b.publisher.Start()

	for _, id := range b.order {
		if err := b.devices[id].gateway.Start(); err != nil {
			return fmt.Errorf("starting gateway for %s: %w", id, err)
		}
	}

	b.startEngines(ctx)
	b.publishExposed()

	for _, id := range b.order {
		b.wg.Add(1)
		go b.commandWorker(b.devices[id])
	}

	commandTopic := b.topics.AllBridgeCommands(mqtt.Protocol)
	if err := b.mqtt.Subscribe(commandTopic, 1, b.handleMQTTMessage); err != nil {
		return fmt.Errorf("subscribe to commands: %w", err)
	}
	b.logInfo("subscribed to commands", "topic", commandTopic)

	b.health.Start(b.ctx)
	if err := b.health.PublishNow(); err != nil {
		b.logError("failed to publish healthy status", err)
	}

	started, total := b.EngineCounts()
	b.logInfo("bridge started",
		"bridge_id", b.bridgeID,
		"devices", total,
		"engines_started", started)
	return nil
}

// Stop gracefully shuts down the bridge.
func (b *Bridge) Stop() {
	b.stopOnce.Do(func() {
		b.stateMu.Lock()
		b.stopped = true
		b.stateMu.Unlock()

		close(b.done)

		// Abort in-flight commands
		b.ctxCancel()

		if err := b.mqtt.Unsubscribe(b.topics.AllBridgeCommands(mqtt.Protocol)); err != nil {
			b.logDebug("command unsubscribe failed", "error", err)
		}

		// Publishes "stopping"
		b.health.Stop()

		b.wg.Wait()

		for _, id := range b.order {
			b.devices[id].engine.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), snapshotSaveTimeout)
		b.saveSnapshots(ctx)
		cancel()

		for _, id := range b.order {
			b.devices[id].gateway.Stop()
		}
		b.publisher.Stop()

		b.logInfo("bridge stopped")
	})
}

// Resync asks every gateway for a full state. Call it after the MQTT link
// comes back: gateway changes published while the bridge was offline were
// not delivered, and engines only learn about them from the fresh state.
// The requests run in the background so the caller may be an MQTT callback.
func (b *Bridge) Resync() {
	b.stateMu.Lock()
	if b.stopped {
		b.stateMu.Unlock()
		return
	}
	b.wg.Add(1)
	b.stateMu.Unlock()

	go func() {
		defer b.wg.Done()
		for _, id := range b.order {
			b.devices[id].gateway.Refresh()
		}
		b.logInfo("requested gateway state after reconnect", "devices", len(b.order))
	}()
}

// startEngines starts every engine that is not running yet, concurrently.
func (b *Bridge) startEngines(ctx context.Context) {
	var wg sync.WaitGroup
	for _, id := range b.order {
		dev := b.devices[id]
		if dev.engine.Started() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := dev.engine.Start(ctx)
			switch {
			case err == nil:
			case errors.Is(err, syncengine.ErrAlreadyStarted):
				// Concurrent retry or engine already stopped.
			default:
				b.logWarn("sync engine not started", "device_id", dev.cfg.DeviceID, "error", err)
			}
		}()
	}
	wg.Wait()
}

// healthTick retries engines, persists snapshots and runs the caller hook.
func (b *Bridge) healthTick(ctx context.Context) {
	b.startEngines(ctx)
	b.saveSnapshots(ctx)
	if b.onTick != nil {
		b.onTick(ctx)
	}
}

func (b *Bridge) saveSnapshots(ctx context.Context) {
	if b.snapshots == nil {
		return
	}
	for _, id := range b.order {
		gw := b.devices[id].gateway
		if !gw.Ready() {
			continue
		}
		if err := b.snapshots.SaveSnapshot(ctx, id, gw.Snapshot()); err != nil {
			b.logWarn("failed to save dp snapshot", "device_id", id, "error", err)
		}
	}
}

// publishExposed publishes each device's exposed-properties declaration
// (QoS 1, retained).
func (b *Bridge) publishExposed() {
	now := time.Now().UTC()
	for _, id := range b.order {
		dev := b.devices[id]
		msg := ExposedMessage{
			DeviceID:       id,
			Name:           dev.acc.Name(),
			Representation: dev.acc.Representation(),
			Timestamp:      now,
			Exposed:        dev.acc.Exposed(),
		}
		payload, err := json.Marshal(msg)
		if err != nil {
			b.logError("failed to marshal exposed declaration", err)
			continue
		}
		if err := b.mqtt.Publish(b.topics.BridgeExposed(mqtt.Protocol, id), payload, 1, true); err != nil {
			b.logError("failed to publish exposed declaration", err)
		}
	}
}

// handleMQTTMessage runs on the MQTT callback goroutine. Commands wait for
// the gateway's result message, so they are queued for the device's worker.
// Unknown devices and full queues are rejected on a separate goroutine.
func (b *Bridge) handleMQTTMessage(topic string, payload []byte) {
	deviceID := mqtt.AddressFromTopic(topic)
	data := append([]byte(nil), payload...)

	b.stateMu.Lock()
	defer b.stateMu.Unlock()
	if b.stopped {
		return
	}

	dev, ok := b.devices[deviceID]
	if ok {
		select {
		case dev.commands <- data:
			return
		default:
		}
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if !ok {
			b.handleCommand(deviceID, data)
			return
		}
		b.rejectCommand(deviceID, data, "command queue full")
	}()
}

// commandWorker applies one device's commands one at a time, in the order
// they arrived.
func (b *Bridge) commandWorker(dev *managedDevice) {
	defer b.wg.Done()
	for {
		select {
		case data := <-dev.commands:
			b.handleCommand(dev.cfg.DeviceID, data)
		case <-b.done:
			return
		}
	}
}

// rejectCommand acks a command the bridge could not accept.
func (b *Bridge) rejectCommand(deviceID string, payload []byte, reason string) {
	var cmd CommandMessage
	_ = json.Unmarshal(payload, &cmd) //nolint:errcheck // Best effort: the ack carries the id when present
	b.publishAckError(cmd, deviceID, AckFailed, ErrCodeBridgeError, reason)
}

// handleCommand applies one command and publishes its acknowledgement.
func (b *Bridge) handleCommand(deviceID string, payload []byte) {
	var cmd CommandMessage
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.publishAckError(cmd, deviceID, AckFailed, ErrCodeInvalidCommand,
			fmt.Sprintf("invalid command payload: %v", err))
		return
	}

	b.logInfo("received command",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"source", cmd.Source)

	if cmd.DeviceID != "" && cmd.DeviceID != deviceID {
		b.publishAckError(cmd, deviceID, AckFailed, ErrCodeInvalidCommand,
			fmt.Sprintf("device_id %s does not match topic device %s", cmd.DeviceID, deviceID))
		return
	}

	dev, ok := b.devices[deviceID]
	if !ok {
		b.publishAckError(cmd, deviceID, AckFailed, ErrCodeNotConfigured,
			fmt.Sprintf("device %s not configured", deviceID))
		return
	}

	values, err := cmd.Values()
	if err != nil {
		code := ErrCodeInvalidCommand
		if errors.Is(err, accessory.ErrUnknownProperty) {
			code = ErrCodeInvalidParameters
		}
		b.publishAckError(cmd, deviceID, AckFailed, code, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, b.cmdTimeout)
	defer cancel()

	if err := dev.engine.WriteCompound(ctx, values); err != nil {
		status, code := classifyWriteError(err)
		b.publishAckError(cmd, deviceID, status, code, err.Error())
		return
	}
	b.publishAck(cmd, deviceID, AckAccepted)
}

// classifyWriteError maps a write failure onto an ack status and error code.
func classifyWriteError(err error) (AckStatus, string) {
	switch {
	case errors.Is(err, ErrAckTimeout), errors.Is(err, context.DeadlineExceeded):
		return AckTimeout, ErrCodeTimeout
	case errors.Is(err, accessory.ErrInvalidValue),
		errors.Is(err, accessory.ErrReadOnly),
		errors.Is(err, accessory.ErrDisabledProperty),
		errors.Is(err, accessory.ErrUnknownProperty),
		errors.Is(err, syncengine.ErrEmptyWrite):
		return AckFailed, ErrCodeInvalidParameters
	case errors.Is(err, ErrNotConnected),
		errors.Is(err, ErrGateway),
		errors.Is(err, syncengine.ErrNotStarted):
		return AckFailed, ErrCodeDeviceUnreachable
	default:
		return AckFailed, ErrCodeBridgeError
	}
}

func (b *Bridge) publishAck(cmd CommandMessage, deviceID string, status AckStatus) {
	b.sendAck(newAck(cmd, deviceID, status))
}

func (b *Bridge) publishAckError(cmd CommandMessage, deviceID string, status AckStatus, code, message string) {
	ack := newAck(cmd, deviceID, status)
	ack.Error = &AckError{Code: code, Message: message}
	b.sendAck(ack)

	b.logWarn("command failed",
		"command_id", cmd.ID,
		"device_id", deviceID,
		"code", code,
		"message", message)
}

func (b *Bridge) sendAck(ack AckMessage) {
	payload, err := json.Marshal(ack)
	if err != nil {
		b.logError("failed to marshal ack", err)
		return
	}
	if err := b.mqtt.Publish(b.topics.BridgeAck(mqtt.Protocol, ack.DeviceID), payload, 1, false); err != nil {
		b.logError("failed to publish ack", err)
	}
}

// EngineCounts implements EngineCounter.
func (b *Bridge) EngineCounts() (started, total int) {
	for _, id := range b.order {
		if b.devices[id].engine.Started() {
			started++
		}
	}
	return started, len(b.order)
}

// Devices returns every managed device in configuration order.
func (b *Bridge) Devices() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.devices[id].info())
	}
	return out
}

// Device returns one managed device.
func (b *Bridge) Device(id string) (DeviceInfo, error) {
	dev, err := b.device(id)
	if err != nil {
		return DeviceInfo{}, err
	}
	return dev.info(), nil
}

func (d *managedDevice) info() DeviceInfo {
	info := DeviceInfo{
		ID:             d.cfg.DeviceID,
		Name:           d.acc.Name(),
		GatewayID:      d.cfg.GatewayID,
		Representation: d.acc.Representation(),
		Started:        d.engine.Started(),
		GatewayReady:   d.gateway.Ready(),
	}
	if seen := d.gateway.LastSeen(); !seen.IsZero() {
		info.LastSeen = &seen
	}
	return info
}

func (b *Bridge) device(id string) (*managedDevice, error) {
	dev, ok := b.devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	return dev, nil
}

// Properties returns the last-pushed property values of a device.
func (b *Bridge) Properties(id string) (accessory.Values, error) {
	dev, err := b.device(id)
	if err != nil {
		return nil, err
	}
	return dev.engine.Properties(), nil
}

// Read derives one property from fresh device state.
func (b *Bridge) Read(ctx context.Context, id string, p accessory.Property) (any, error) {
	dev, err := b.device(id)
	if err != nil {
		return nil, err
	}
	return dev.engine.Read(ctx, p)
}

// Write applies one property write.
func (b *Bridge) Write(ctx context.Context, id string, p accessory.Property, value any) error {
	dev, err := b.device(id)
	if err != nil {
		return err
	}
	return dev.engine.Write(ctx, p, value)
}

// WriteCompound applies several property writes as one device update.
func (b *Bridge) WriteCompound(ctx context.Context, id string, values accessory.Values) error {
	dev, err := b.device(id)
	if err != nil {
		return err
	}
	return dev.engine.WriteCompound(ctx, values)
}

// Exposed returns a device's exposed-properties declaration.
func (b *Bridge) Exposed(id string) ([]accessory.Exposure, error) {
	dev, err := b.device(id)
	if err != nil {
		return nil, err
	}
	return dev.acc.Exposed(), nil
}

// Snapshot returns the DP values last reported by a device's gateway.
func (b *Bridge) Snapshot(id string) (dp.Snapshot, error) {
	dev, err := b.device(id)
	if err != nil {
		return nil, err
	}
	return dev.gateway.Snapshot(), nil
}

// Connected reports whether the MQTT client is connected.
func (b *Bridge) Connected() bool {
	return b.mqtt.IsConnected()
}

// SetLogger sets the logger for the bridge and its components.
func (b *Bridge) SetLogger(logger syncengine.Logger) {
	b.loggerMu.Lock()
	b.logger = logger
	b.loggerMu.Unlock()

	b.health.SetLogger(logger)
	b.publisher.SetLogger(logger)
	for _, dev := range b.devices {
		dev.gateway.SetLogger(logger)
		dev.engine.SetLogger(logger)
	}
}

func (b *Bridge) getLogger() syncengine.Logger {
	b.loggerMu.RLock()
	defer b.loggerMu.RUnlock()
	return b.logger
}

// logInfo logs an info message if logger is set.
func (b *Bridge) logInfo(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Info(msg, keysAndValues...)
	}
}

// logWarn logs a warning if logger is set.
func (b *Bridge) logWarn(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

// logError logs an error message if logger is set.
func (b *Bridge) logError(msg string, err error) {
	if logger := b.getLogger(); logger != nil {
		logger.Error(msg, "error", err)
	}
}

// logDebug logs a debug message if logger is set.
func (b *Bridge) logDebug(msg string, keysAndValues ...any) {
	if logger := b.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
