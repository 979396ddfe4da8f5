package tuya

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

// Gateway defaults.
const (
	// DefaultAckTimeout bounds how long a set request waits for its result.
	DefaultAckTimeout = 5 * time.Second

	// DefaultSnapshotTimeout bounds how long GetSnapshot waits for the
	// gateway's first full state.
	DefaultSnapshotTimeout = 10 * time.Second

	// eventQueueSize is the per-gateway buffer between the MQTT callback and
	// the dispatch worker.
	eventQueueSize = 64
)

// MQTTClient is the interface for MQTT operations.
// This allows mocking in tests and flexibility in implementation.
type MQTTClient interface {
	// Publish sends a message to a topic.
	Publish(topic string, payload []byte, qos byte, retained bool) error

	// Subscribe registers a handler for a topic pattern.
	Subscribe(topic string, qos byte, handler func(topic string, payload []byte)) error

	// Unsubscribe removes a subscription.
	Unsubscribe(topic string) error

	// IsConnected returns true if connected to the broker.
	IsConnected() bool
}

type eventKind int

const (
	eventState eventKind = iota
	eventChange
)

type gatewayEvent struct {
	kind   eventKind
	values dp.Snapshot
}

// GatewayOptions configures one device gateway.
type GatewayOptions struct {
	// GatewayID is the topic segment the gateway publishes under.
	GatewayID string

	// Topics builds the gateway topics. A zero value uses the "tuya" prefix.
	Topics mqtt.GatewayTopics

	// Client is the MQTT connection.
	Client MQTTClient

	// AckTimeout defaults to DefaultAckTimeout.
	AckTimeout time.Duration

	// SnapshotTimeout defaults to DefaultSnapshotTimeout.
	SnapshotTimeout time.Duration

	// Logger is optional.
	Logger syncengine.Logger
}

// Gateway speaks the DP protocol of one device gateway over MQTT and serves
// as the sync engine's state source and sink.
//
// State and change messages are applied in arrival order by a single worker
// so change handlers never run on the MQTT callback goroutine.
//
// Thread Safety: All methods are safe for concurrent use.
type Gateway struct {
	id              string
	topics          mqtt.GatewayTopics
	client          MQTTClient
	ackTimeout      time.Duration
	snapshotTimeout time.Duration
	newRequestID    func() string

	mu          sync.Mutex
	snapshot    dp.Snapshot
	lastSeen    time.Time
	handlers    map[uint64]syncengine.ChangeHandler
	nextHandler uint64
	waiters     map[string]chan SetResult

	ready     chan struct{}
	readyOnce sync.Once

	events    chan gatewayEvent
	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   bool

	logger   syncengine.Logger
	loggerMu sync.RWMutex
}

// NewGateway creates a gateway. Call Start to subscribe.
func NewGateway(opts GatewayOptions) (*Gateway, error) {
	if opts.GatewayID == "" {
		return nil, fmt.Errorf("%w: gateway id is required", ErrInvalidConfig)
	}
	if opts.Client == nil {
		return nil, fmt.Errorf("%w: MQTT client is required", ErrInvalidConfig)
	}
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = DefaultSnapshotTimeout
	}

	return &Gateway{
		id:              opts.GatewayID,
		topics:          opts.Topics,
		client:          opts.Client,
		ackTimeout:      opts.AckTimeout,
		snapshotTimeout: opts.SnapshotTimeout,
		newRequestID:    uuid.NewString,
		snapshot:        dp.Snapshot{},
		handlers:        make(map[uint64]syncengine.ChangeHandler),
		waiters:         make(map[string]chan SetResult),
		ready:           make(chan struct{}),
		events:          make(chan gatewayEvent, eventQueueSize),
		done:            make(chan struct{}),
		logger:          opts.Logger,
	}, nil
}

// ID returns the gateway identifier.
func (g *Gateway) ID() string {
	return g.id
}

// Start subscribes to the gateway's state, change and result topics and
// asks it to republish its full state.
func (g *Gateway) Start() error {
	var err error
	g.startOnce.Do(func() {
		for _, topic := range g.subscriptions() {
			if err = g.client.Subscribe(topic, 1, g.handleMessage); err != nil {
				err = fmt.Errorf("subscribe to %s: %w", topic, err)
				return
			}
		}

		g.wg.Add(1)
		go g.run()

		g.mu.Lock()
		g.started = true
		g.mu.Unlock()

		g.requestState()
		g.logDebug("gateway subscribed", "gateway_id", g.id)
	})
	return err
}

// Stop unsubscribes and releases pending writers. Safe to call more than once.
func (g *Gateway) Stop() {
	g.stopOnce.Do(func() {
		close(g.done)

		g.mu.Lock()
		started := g.started
		g.mu.Unlock()

		if started {
			for _, topic := range g.subscriptions() {
				if err := g.client.Unsubscribe(topic); err != nil {
					g.logWarn("gateway unsubscribe failed", "topic", topic, "error", err)
				}
			}
		}
		g.wg.Wait()
	})
}

// Refresh asks a started gateway to republish its full state. The reply
// replaces the cached snapshot and reaches handlers as an ordinary change.
func (g *Gateway) Refresh() {
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()
	if !started {
		return
	}
	select {
	case <-g.done:
		return
	default:
	}
	g.requestState()
}

func (g *Gateway) subscriptions() []string {
	return []string{g.topics.State(g.id), g.topics.Change(g.id), g.topics.Result(g.id)}
}

// requestState publishes a get request. Failures are logged; the gateway
// also publishes state on its own schedule.
func (g *Gateway) requestState() {
	payload, err := json.Marshal(GetRequest{RequestID: g.newRequestID()})
	if err != nil {
		g.logWarn("marshal get request failed", "gateway_id", g.id, "error", err)
		return
	}
	if err := g.client.Publish(g.topics.Get(g.id), payload, 1, false); err != nil {
		g.logWarn("get request failed", "gateway_id", g.id, "error", err)
	}
}

// handleMessage runs on the MQTT callback goroutine and must not block on
// MQTT itself.
func (g *Gateway) handleMessage(topic string, payload []byte) {
	id, kind, ok := g.topics.GatewayID(topic)
	if !ok || id != g.id {
		return
	}

	switch kind {
	case "state", "change":
		values, err := parseDPMessage(payload)
		if err != nil {
			g.logWarn("discarding gateway message", "gateway_id", g.id, "topic", topic, "error", err)
			return
		}
		ev := gatewayEvent{kind: eventChange, values: values}
		if kind == "state" {
			ev.kind = eventState
		}
		select {
		case g.events <- ev:
		case <-g.done:
		}

	case "result":
		var res SetResult
		if err := json.Unmarshal(payload, &res); err != nil {
			g.logWarn("discarding set result", "gateway_id", g.id, "error", err)
			return
		}
		g.mu.Lock()
		ch, waiting := g.waiters[res.RequestID]
		delete(g.waiters, res.RequestID)
		g.mu.Unlock()
		if !waiting {
			g.logDebug("set result without waiter", "gateway_id", g.id, "request_id", res.RequestID)
			return
		}
		ch <- res
	}
}

func (g *Gateway) run() {
	defer g.wg.Done()
	for {
		select {
		case <-g.done:
			return
		case ev := <-g.events:
			g.apply(ev)
		}
	}
}

// apply folds one event into the cached snapshot and notifies handlers with
// what actually changed.
func (g *Gateway) apply(ev gatewayEvent) {
	g.mu.Lock()
	var next dp.Snapshot
	if ev.kind == eventState {
		next = ev.values.Clone()
	} else {
		next = g.snapshot.Merge(ev.values)
	}
	delta := g.snapshot.Diff(next)
	g.snapshot = next
	g.lastSeen = time.Now()
	handlers := make([]syncengine.ChangeHandler, 0, len(g.handlers))
	for _, h := range g.handlers {
		handlers = append(handlers, h)
	}
	g.mu.Unlock()

	if ev.kind == eventState {
		g.readyOnce.Do(func() { close(g.ready) })
	}

	if len(delta) == 0 {
		return
	}
	for _, h := range handlers {
		h(delta, next.Clone())
	}
}

// GetSnapshot returns the cached values for keys, waiting for the gateway's
// first full state if none has arrived yet. An empty key list returns
// everything.
//
// Returns:
//   - dp.Snapshot: Values the gateway reported for keys
//   - error: ErrGateway if no state arrives in time, or ctx.Err()
func (g *Gateway) GetSnapshot(ctx context.Context, keys []string) (dp.Snapshot, error) {
	select {
	case <-g.ready:
	default:
		timer := time.NewTimer(g.snapshotTimeout)
		defer timer.Stop()
		select {
		case <-g.ready:
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.done:
			return nil, fmt.Errorf("%w: gateway %s stopped", ErrGateway, g.id)
		case <-timer.C:
			return nil, fmt.Errorf("%w: no state from gateway %s within %v", ErrGateway, g.id, g.snapshotTimeout)
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(keys) == 0 {
		return g.snapshot.Clone(), nil
	}
	return g.snapshot.Subset(keys), nil
}

// OnChange registers handler for every subsequent update.
func (g *Gateway) OnChange(handler syncengine.ChangeHandler) func() {
	g.mu.Lock()
	id := g.nextHandler
	g.nextHandler++
	g.handlers[id] = handler
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.handlers, id)
			g.mu.Unlock()
		})
	}
}

// SetValues publishes updates as one set request and waits for the
// gateway's result.
//
// Returns:
//   - error: ErrNotConnected, ErrAckTimeout, ErrGateway (rejected or
//     stopped), or ctx.Err()
func (g *Gateway) SetValues(ctx context.Context, updates dp.Delta) error {
	if len(updates) == 0 {
		return nil
	}
	if !g.client.IsConnected() {
		return ErrNotConnected
	}

	req := SetRequest{RequestID: g.newRequestID(), DPS: map[string]any(updates.Clone())}
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal set request: %w", err)
	}

	ch := make(chan SetResult, 1)
	g.mu.Lock()
	g.waiters[req.RequestID] = ch
	g.mu.Unlock()
	defer func() {
		g.mu.Lock()
		delete(g.waiters, req.RequestID)
		g.mu.Unlock()
	}()

	if err := g.client.Publish(g.topics.Set(g.id), payload, 1, false); err != nil {
		return fmt.Errorf("%w: publish set request: %w", ErrGateway, err)
	}
	g.logDebug("set request sent", "gateway_id", g.id, "request_id", req.RequestID, "dps", len(updates))

	timer := time.NewTimer(g.ackTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if !res.Success {
			msg := res.Error
			if msg == "" {
				msg = "set rejected"
			}
			return fmt.Errorf("%w: %s", ErrGateway, msg)
		}
		return nil
	case <-timer.C:
		return fmt.Errorf("%w: request %s after %v", ErrAckTimeout, req.RequestID, g.ackTimeout)
	case <-ctx.Done():
		return ctx.Err()
	case <-g.done:
		return fmt.Errorf("%w: gateway %s stopped", ErrGateway, g.id)
	}
}

// Snapshot returns a copy of the cached DP values.
func (g *Gateway) Snapshot() dp.Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshot.Clone()
}

// LastSeen returns when the gateway last reported state, or the zero time.
func (g *Gateway) LastSeen() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSeen
}

// Ready reports whether a full state has been received.
func (g *Gateway) Ready() bool {
	select {
	case <-g.ready:
		return true
	default:
		return false
	}
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger syncengine.Logger) {
	g.loggerMu.Lock()
	g.logger = logger
	g.loggerMu.Unlock()
}

func (g *Gateway) getLogger() syncengine.Logger {
	g.loggerMu.RLock()
	defer g.loggerMu.RUnlock()
	return g.logger
}

func (g *Gateway) logWarn(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Warn(msg, keysAndValues...)
	}
}

func (g *Gateway) logDebug(msg string, keysAndValues ...any) {
	if logger := g.getLogger(); logger != nil {
		logger.Debug(msg, keysAndValues...)
	}
}
