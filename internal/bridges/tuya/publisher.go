package tuya

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/syncengine"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

// publishQueueSize is the buffer between the engines and the publish worker.
const publishQueueSize = 256

type propertyBatch struct {
	deviceID string
	updates  []reconcile.Update
	at       time.Time
}

// StatePublisher receives property updates from the sync engines and
// publishes them as retained state messages. Each batch is also handed to
// every listener, in order, after it has been published.
//
// PropertiesChanged only enqueues; engines call it while holding their own
// lock and it must never wait on MQTT.
type StatePublisher struct {
	client    MQTTClient
	topics    mqtt.Topics
	listeners []syncengine.PropertySink

	queue chan propertyBatch

	mu    sync.RWMutex
	state map[string]map[string]any

	done      chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once

	logger   syncengine.Logger
	loggerMu sync.RWMutex
}

// NewStatePublisher creates a publisher. Listeners may be nil.
func NewStatePublisher(client MQTTClient, listeners ...syncengine.PropertySink) *StatePublisher {
	var ls []syncengine.PropertySink
	for _, l := range listeners {
		if l != nil {
			ls = append(ls, l)
		}
	}
	return &StatePublisher{
		client:    client,
		listeners: ls,
		queue:     make(chan propertyBatch, publishQueueSize),
		state:     make(map[string]map[string]any),
		done:      make(chan struct{}),
	}
}

// Start launches the publish worker.
func (p *StatePublisher) Start() {
	p.startOnce.Do(func() {
		p.wg.Add(1)
		go p.run()
	})
}

// Stop drains queued batches and stops the worker.
func (p *StatePublisher) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.wg.Wait()
	})
}

// PropertiesChanged implements syncengine.PropertySink.
func (p *StatePublisher) PropertiesChanged(deviceID string, updates []reconcile.Update) {
	if len(updates) == 0 {
		return
	}
	batch := propertyBatch{
		deviceID: deviceID,
		updates:  append([]reconcile.Update(nil), updates...),
		at:       time.Now().UTC(),
	}
	select {
	case p.queue <- batch:
	case <-p.done:
	}
}

// State returns the last published property values for a device.
func (p *StatePublisher) State(deviceID string) map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cur, ok := p.state[deviceID]
	if !ok {
		return nil
	}
	out := make(map[string]any, len(cur))
	for k, v := range cur {
		out[k] = v
	}
	return out
}

func (p *StatePublisher) run() {
	defer p.wg.Done()
	for {
		select {
		case batch := <-p.queue:
			p.publish(batch)
		case <-p.done:
			for {
				select {
				case batch := <-p.queue:
					p.publish(batch)
				default:
					return
				}
			}
		}
	}
}

func (p *StatePublisher) publish(batch propertyBatch) {
	changed := make(map[string]any, len(batch.updates))
	for _, u := range batch.updates {
		changed[string(u.Property)] = u.Value
	}

	p.mu.Lock()
	cur, ok := p.state[batch.deviceID]
	if !ok {
		cur = make(map[string]any)
		p.state[batch.deviceID] = cur
	}
	for k, v := range changed {
		cur[k] = v
	}
	full := make(map[string]any, len(cur))
	for k, v := range cur {
		full[k] = v
	}
	p.mu.Unlock()

	msg := StateMessage{
		DeviceID:  batch.deviceID,
		Timestamp: batch.at,
		Protocol:  mqtt.Protocol,
		Changed:   changed,
		State:     full,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		p.logError("failed to marshal state", err)
	} else if p.client != nil {
		topic := p.topics.BridgeState(mqtt.Protocol, batch.deviceID)
		if err := p.client.Publish(topic, payload, 1, true); err != nil {
			p.logError("failed to publish state", err)
		}
	}

	for _, l := range p.listeners {
		l.PropertiesChanged(batch.deviceID, batch.updates)
	}
}

// SetLogger sets the logger for the publisher.
func (p *StatePublisher) SetLogger(logger syncengine.Logger) {
	p.loggerMu.Lock()
	p.logger = logger
	p.loggerMu.Unlock()
}

func (p *StatePublisher) logError(msg string, err error) {
	p.loggerMu.RLock()
	logger := p.logger
	p.loggerMu.RUnlock()

	if logger != nil {
		logger.Error(msg, "error", err)
	}
}
