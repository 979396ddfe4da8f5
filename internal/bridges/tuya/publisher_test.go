package tuya

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/reconcile"
)

type recordedBatch struct {
	deviceID string
	updates  []reconcile.Update
}

// recordingSink implements syncengine.PropertySink for testing.
type recordingSink struct {
	mu      sync.Mutex
	batches []recordedBatch
}

func (r *recordingSink) PropertiesChanged(deviceID string, updates []reconcile.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, recordedBatch{deviceID: deviceID, updates: updates})
}

func (r *recordingSink) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *recordingSink) Batches() []recordedBatch {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedBatch(nil), r.batches...)
}

func TestStatePublisher_PublishesChangedAndFullState(t *testing.T) {
	mock := NewMockMQTTClient()
	listener := &recordingSink{}
	p := NewStatePublisher(mock, listener, nil)
	p.Start()

	p.PropertiesChanged("ac-1", []reconcile.Update{
		{Property: accessory.PropActive, Value: true},
		{Property: accessory.PropTargetTemperature, Value: 22.0},
	})
	p.PropertiesChanged("ac-1", []reconcile.Update{
		{Property: accessory.PropTargetTemperature, Value: 23.0},
	})
	p.PropertiesChanged("ac-1", nil)
	p.Stop()

	pubs := mock.PublishedOn("graylogic/state/tuya/ac-1")
	if len(pubs) != 2 {
		t.Fatalf("state publishes = %d, want 2", len(pubs))
	}
	for _, pub := range pubs {
		if !pub.Retained || pub.QoS != 1 {
			t.Errorf("publish qos=%d retained=%v, want 1/true", pub.QoS, pub.Retained)
		}
	}

	var second StateMessage
	if err := json.Unmarshal(pubs[1].Payload, &second); err != nil {
		t.Fatal(err)
	}
	if len(second.Changed) != 1 || second.Changed["target_temperature"] != 23.0 {
		t.Errorf("Changed = %v, want only target_temperature 23", second.Changed)
	}
	if second.State["active"] != true || second.State["target_temperature"] != 23.0 {
		t.Errorf("State = %v, want merged full state", second.State)
	}

	if listener.Count() != 2 {
		t.Errorf("listener batches = %d, want 2", listener.Count())
	}

	state := p.State("ac-1")
	if state["target_temperature"] != 23.0 {
		t.Errorf("State() = %v", state)
	}
	if p.State("unknown") != nil {
		t.Error("State(unknown) should be nil")
	}
}

func TestStatePublisher_ListenerRunsWhenPublishFails(t *testing.T) {
	mock := NewMockMQTTClient()
	mock.publishError = errors.New("broker down")
	listener := &recordingSink{}
	p := NewStatePublisher(mock, listener)
	p.Start()

	p.PropertiesChanged("ac-1", []reconcile.Update{{Property: accessory.PropHealth, Value: true}})
	p.Stop()

	if listener.Count() != 1 {
		t.Errorf("listener batches = %d, want 1", listener.Count())
	}
}

func TestStatePublisher_UpdatesAreCopied(t *testing.T) {
	listener := &recordingSink{}
	p := NewStatePublisher(nil, listener)
	p.Start()

	updates := []reconcile.Update{{Property: accessory.PropActive, Value: true}}
	p.PropertiesChanged("ac-1", updates)
	updates[0].Value = false
	p.Stop()

	if got := listener.Batches()[0].updates[0].Value; got != true {
		t.Errorf("listener saw %v, want the value at enqueue time", got)
	}
}

func TestStatePublisher_StopIsIdempotent(t *testing.T) {
	p := NewStatePublisher(NewMockMQTTClient())
	p.Start()
	p.Stop()
	p.Stop()

	// Enqueue after Stop must not block.
	p.PropertiesChanged("ac-1", []reconcile.Update{{Property: accessory.PropActive, Value: true}})
}
