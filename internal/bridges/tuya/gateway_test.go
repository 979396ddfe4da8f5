package tuya

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

type observedChange struct {
	delta dp.Delta
	full  dp.Snapshot
}

func newTestGateway(t *testing.T, mock *MockMQTTClient) *Gateway {
	t.Helper()
	g, err := NewGateway(GatewayOptions{
		GatewayID:       "gw1",
		Client:          mock,
		AckTimeout:      100 * time.Millisecond,
		SnapshotTimeout: 100 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("NewGateway() error = %v", err)
	}
	g.newRequestID = func() string { return "req-1" }
	if err := g.Start(); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	t.Cleanup(g.Stop)
	return g
}

func watchChanges(g *Gateway) (<-chan observedChange, func()) {
	ch := make(chan observedChange, 16)
	unsubscribe := g.OnChange(func(delta dp.Delta, full dp.Snapshot) {
		ch <- observedChange{delta: delta, full: full}
	})
	return ch, unsubscribe
}

func nextChange(t *testing.T, ch <-chan observedChange) observedChange {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for change")
		return observedChange{}
	}
}

func expectNoChange(t *testing.T, ch <-chan observedChange) {
	t.Helper()
	select {
	case c := <-ch:
		t.Fatalf("unexpected change %v", c.delta)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestNewGateway_Validation(t *testing.T) {
	if _, err := NewGateway(GatewayOptions{Client: NewMockMQTTClient()}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing id error = %v, want ErrInvalidConfig", err)
	}
	if _, err := NewGateway(GatewayOptions{GatewayID: "gw1"}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("missing client error = %v, want ErrInvalidConfig", err)
	}

	g, err := NewGateway(GatewayOptions{GatewayID: "gw1", Client: NewMockMQTTClient()})
	if err != nil {
		t.Fatal(err)
	}
	if g.ackTimeout != DefaultAckTimeout || g.snapshotTimeout != DefaultSnapshotTimeout {
		t.Errorf("timeouts = %v/%v, want defaults", g.ackTimeout, g.snapshotTimeout)
	}
}

func TestGateway_StartSubscribesAndRequestsState(t *testing.T) {
	mock := NewMockMQTTClient()
	newTestGateway(t, mock)

	want := map[string]bool{"tuya/gw1/state": false, "tuya/gw1/change": false, "tuya/gw1/result": false}
	for _, s := range mock.GetSubscriptions() {
		if _, ok := want[s.Topic]; ok {
			want[s.Topic] = true
		}
		if s.QoS != 1 {
			t.Errorf("subscription %s qos = %d, want 1", s.Topic, s.QoS)
		}
	}
	for topic, seen := range want {
		if !seen {
			t.Errorf("missing subscription %s", topic)
		}
	}

	gets := mock.PublishedOn("tuya/gw1/get")
	if len(gets) != 1 {
		t.Fatalf("get requests = %d, want 1", len(gets))
	}
	var req GetRequest
	if err := json.Unmarshal(gets[0].Payload, &req); err != nil || req.RequestID != "req-1" {
		t.Errorf("get request = %s, %v", gets[0].Payload, err)
	}
}

func TestGateway_StartSubscribeError(t *testing.T) {
	mock := NewMockMQTTClient()
	mock.subscribeError = errors.New("not connected")
	g, err := NewGateway(GatewayOptions{GatewayID: "gw1", Client: mock})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err == nil {
		t.Error("Start() should fail when subscribe fails")
	}
	g.Stop()
}

func TestGateway_GetSnapshotWaitsForState(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)

	type result struct {
		snap dp.Snapshot
		err  error
	}
	done := make(chan result, 1)
	go func() {
		snap, err := g.GetSnapshot(context.Background(), []string{"1", "2", "9"})
		done <- result{snap, err}
	}()

	time.Sleep(10 * time.Millisecond)
	mock.SimulateMessage("tuya/gw1/state", []byte(`{"dps":{"1":true,"2":220,"4":"cold"}}`))

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("GetSnapshot() error = %v", r.err)
		}
		if len(r.snap) != 2 || r.snap.Get("1") != true || r.snap.Get("2") != float64(220) {
			t.Errorf("GetSnapshot() = %v, want keys 1 and 2 only", r.snap)
		}
	case <-time.After(time.Second):
		t.Fatal("GetSnapshot() did not return after state")
	}

	all, err := g.GetSnapshot(context.Background(), nil)
	if err != nil || len(all) != 3 {
		t.Errorf("GetSnapshot(nil) = %v, %v; want all three keys", all, err)
	}
	if !g.Ready() {
		t.Error("Ready() = false after state")
	}
}

func TestGateway_GetSnapshotTimeout(t *testing.T) {
	g := newTestGateway(t, NewMockMQTTClient())

	_, err := g.GetSnapshot(context.Background(), []string{"1"})
	if !errors.Is(err, ErrGateway) {
		t.Errorf("GetSnapshot() error = %v, want ErrGateway", err)
	}
}

func TestGateway_GetSnapshotContextCancelled(t *testing.T) {
	g := newTestGateway(t, NewMockMQTTClient())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.GetSnapshot(ctx, []string{"1"}); !errors.Is(err, context.Canceled) {
		t.Errorf("GetSnapshot() error = %v, want context.Canceled", err)
	}
}

func TestGateway_ChangeDispatch(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)
	changes, unsubscribe := watchChanges(g)

	mock.SimulateMessage("tuya/gw1/state", []byte(`{"dps":{"1":true,"2":220}}`))
	first := nextChange(t, changes)
	if len(first.delta) != 2 {
		t.Errorf("initial delta = %v, want both keys", first.delta)
	}

	mock.SimulateMessage("tuya/gw1/change", []byte(`{"dps":{"2":230}}`))
	c := nextChange(t, changes)
	if len(c.delta) != 1 || c.delta.Get("2") != float64(230) {
		t.Errorf("delta = %v, want {2:230}", c.delta)
	}
	if c.full.Get("1") != true || c.full.Get("2") != float64(230) {
		t.Errorf("full = %v, want merged snapshot", c.full)
	}

	// Repeated value carries no change.
	mock.SimulateMessage("tuya/gw1/change", []byte(`{"dps":{"2":230}}`))
	expectNoChange(t, changes)

	// A full state that repeats known values only reports the difference.
	mock.SimulateMessage("tuya/gw1/state", []byte(`{"dps":{"1":false,"2":230}}`))
	c = nextChange(t, changes)
	if len(c.delta) != 1 || c.delta.Get("1") != false {
		t.Errorf("state delta = %v, want {1:false}", c.delta)
	}

	unsubscribe()
	unsubscribe()
	mock.SimulateMessage("tuya/gw1/change", []byte(`{"dps":{"2":240}}`))
	expectNoChange(t, changes)

	waitFor(t, "snapshot update", func() bool { return g.Snapshot().Get("2") == float64(240) })
}

func TestGateway_StateReplacesSnapshot(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)

	mock.SimulateMessage("tuya/gw1/state", []byte(`{"dps":{"1":true,"18":40}}`))
	mock.SimulateMessage("tuya/gw1/state", []byte(`{"dps":{"1":true}}`))

	waitFor(t, "state replaced", func() bool {
		snap := g.Snapshot()
		return snap.Has("1") && !snap.Has("18")
	})
	if g.LastSeen().IsZero() {
		t.Error("LastSeen() should be set")
	}
}

func TestGateway_IgnoresForeignAndMalformed(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)
	changes, _ := watchChanges(g)

	g.handleMessage("tuya/gw2/change", []byte(`{"dps":{"1":true}}`))
	g.handleMessage("other/gw1/change", []byte(`{"dps":{"1":true}}`))
	g.handleMessage("tuya/gw1/change", []byte(`{"dps":`))
	g.handleMessage("tuya/gw1/change", []byte(`{}`))
	g.handleMessage("tuya/gw1/result", []byte(`nope`))
	g.handleMessage("tuya/gw1/result", []byte(`{"request_id":"unknown","success":true}`))

	expectNoChange(t, changes)
	if len(g.Snapshot()) != 0 {
		t.Errorf("Snapshot() = %v, want empty", g.Snapshot())
	}
}

func TestGateway_SetValues(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)

	var published SetRequest
	mock.OnPublish = func(topic string, payload []byte) {
		if topic != "tuya/gw1/set" {
			return
		}
		if err := json.Unmarshal(payload, &published); err != nil {
			t.Errorf("unmarshal set: %v", err)
		}
		mock.SimulateMessage("tuya/gw1/result", []byte(`{"request_id":"req-1","success":true}`))
	}

	if err := g.SetValues(context.Background(), dp.Delta{"1": true, "4": "hot"}); err != nil {
		t.Fatalf("SetValues() error = %v", err)
	}
	if published.RequestID != "req-1" || published.DPS["1"] != true || published.DPS["4"] != "hot" {
		t.Errorf("set request = %+v", published)
	}

	sets := mock.PublishedOn("tuya/gw1/set")
	if len(sets) != 1 || sets[0].QoS != 1 || sets[0].Retained {
		t.Errorf("set publish = %+v, want one qos 1 non-retained", sets)
	}
}

func TestGateway_SetValuesFailures(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(m *MockMQTTClient)
		ctx     func() context.Context
		wantErr error
		wantMsg string
	}{
		{
			name: "rejected",
			setup: func(m *MockMQTTClient) {
				m.OnPublish = func(topic string, _ []byte) {
					if topic == "tuya/gw1/set" {
						m.SimulateMessage("tuya/gw1/result", []byte(`{"request_id":"req-1","success":false,"error":"dp 4 busy"}`))
					}
				}
			},
			wantErr: ErrGateway,
			wantMsg: "dp 4 busy",
		},
		{
			name: "rejected without message",
			setup: func(m *MockMQTTClient) {
				m.OnPublish = func(topic string, _ []byte) {
					if topic == "tuya/gw1/set" {
						m.SimulateMessage("tuya/gw1/result", []byte(`{"request_id":"req-1","success":false}`))
					}
				}
			},
			wantErr: ErrGateway,
			wantMsg: "set rejected",
		},
		{
			name:    "no result",
			setup:   func(*MockMQTTClient) {},
			wantErr: ErrAckTimeout,
		},
		{
			name:    "not connected",
			setup:   func(m *MockMQTTClient) { m.SetConnected(false) },
			wantErr: ErrNotConnected,
		},
		{
			name:    "publish error",
			setup:   func(m *MockMQTTClient) { m.publishError = errors.New("queue full") },
			wantErr: ErrGateway,
			wantMsg: "queue full",
		},
		{
			name:  "cancelled",
			setup: func(*MockMQTTClient) {},
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			wantErr: context.Canceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockMQTTClient()
			g := newTestGateway(t, mock)
			mock.mu.Lock()
			mock.published = nil
			mock.mu.Unlock()
			tt.setup(mock)

			ctx := context.Background()
			if tt.ctx != nil {
				ctx = tt.ctx()
			}
			err := g.SetValues(ctx, dp.Delta{"1": false})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("SetValues() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}

			g.mu.Lock()
			waiters := len(g.waiters)
			g.mu.Unlock()
			if waiters != 0 {
				t.Errorf("waiters = %d after return, want 0", waiters)
			}
		})
	}
}

func TestGateway_SetValuesEmpty(t *testing.T) {
	mock := NewMockMQTTClient()
	g := newTestGateway(t, mock)
	mock.SetConnected(false)

	if err := g.SetValues(context.Background(), dp.Delta{}); err != nil {
		t.Errorf("SetValues(empty) error = %v, want nil", err)
	}
	if len(mock.PublishedOn("tuya/gw1/set")) != 0 {
		t.Error("empty write should not publish")
	}
}

func TestGateway_StopReleasesWaiters(t *testing.T) {
	mock := NewMockMQTTClient()
	g, err := NewGateway(GatewayOptions{GatewayID: "gw1", Client: mock, AckTimeout: time.Minute})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}

	errc := make(chan error, 1)
	go func() { errc <- g.SetValues(context.Background(), dp.Delta{"1": true}) }()
	waitFor(t, "set request", func() bool { return len(mock.PublishedOn("tuya/gw1/set")) == 1 })

	g.Stop()
	g.Stop()

	select {
	case err := <-errc:
		if !errors.Is(err, ErrGateway) {
			t.Errorf("SetValues() error = %v, want ErrGateway", err)
		}
	case <-time.After(time.Second):
		t.Fatal("SetValues() still blocked after Stop")
	}
	if len(mock.GetUnsubscribed()) != 3 {
		t.Errorf("unsubscribed = %v, want 3 topics", mock.GetUnsubscribed())
	}
}

func TestGateway_CustomPrefix(t *testing.T) {
	mock := NewMockMQTTClient()
	g, err := NewGateway(GatewayOptions{
		GatewayID: "gw1",
		Client:    mock,
		Topics:    mqtt.GatewayTopics{Prefix: "site/ac/"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := g.Start(); err != nil {
		t.Fatal(err)
	}
	defer g.Stop()

	mock.SimulateMessage("site/ac/gw1/state", []byte(`{"dps":{"1":true}}`))
	waitFor(t, "state", g.Ready)
}
