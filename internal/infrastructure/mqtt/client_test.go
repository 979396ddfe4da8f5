package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "graylogic-tuya-test",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// offlineClient returns a client that never connected, which is enough to
// exercise argument validation and bookkeeping without a broker.
func offlineClient() *Client {
	return &Client{cfg: testConfig(), subscriptions: make(map[string]subscription)}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// fakeToken implements pahomqtt.Token. A token with timeout set never
// completes.
type fakeToken struct {
	err     error
	timeout bool
}

func (t *fakeToken) Wait() bool                     { return !t.timeout }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.timeout }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if !t.timeout {
		close(ch)
	}
	return ch
}

// fakePaho records the paho calls the client makes while connected.
// Methods the client never calls are left to the embedded nil interface.
type fakePaho struct {
	pahomqtt.Client

	mu           sync.Mutex
	subscribed   []string
	published    []string
	subscribeErr error
}

func (f *fakePaho) IsConnected() bool { return true }

func (f *fakePaho) Subscribe(topic string, _ byte, _ pahomqtt.MessageHandler) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, topic)
	return &fakeToken{err: f.subscribeErr}
}

func (f *fakePaho) Publish(topic string, _ byte, _ bool, _ interface{}) pahomqtt.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, topic)
	return &fakeToken{}
}

func (f *fakePaho) Unsubscribe(...string) pahomqtt.Token { return &fakeToken{} }

func (f *fakePaho) subscribeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribed)
}

type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
	warns  []string
}

func (l *recordingLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *recordingLogger) Error(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

func (l *recordingLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

// =============================================================================
// Topic Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"BridgeState", topics.BridgeState(Protocol, "ac-living"), "graylogic/state/tuya/ac-living"},
		{"BridgeCommand", topics.BridgeCommand(Protocol, "ac-living"), "graylogic/command/tuya/ac-living"},
		{"AllBridgeCommands", topics.AllBridgeCommands(Protocol), "graylogic/command/tuya/+"},
		{"BridgeAck", topics.BridgeAck(Protocol, "ac-living"), "graylogic/ack/tuya/ac-living"},
		{"BridgeHealth", topics.BridgeHealth(Protocol), "graylogic/health/tuya"},
		{"BridgeExposed", topics.BridgeExposed(Protocol, "ac-living"), "graylogic/tuya/ac-living/exposed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestGatewayTopics(t *testing.T) {
	tests := []struct {
		prefix string
		got    func(GatewayTopics) string
		want   string
	}{
		{"", func(g GatewayTopics) string { return g.State("gw1") }, "tuya/gw1/state"},
		{"tuya", func(g GatewayTopics) string { return g.Change("gw1") }, "tuya/gw1/change"},
		{"tuya/", func(g GatewayTopics) string { return g.Set("gw1") }, "tuya/gw1/set"},
		{"site/tuya", func(g GatewayTopics) string { return g.Result("gw1") }, "site/tuya/gw1/result"},
		{"tuya", func(g GatewayTopics) string { return g.Get("gw1") }, "tuya/gw1/get"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.got(GatewayTopics{Prefix: tt.prefix}); got != tt.want {
				t.Errorf("topic = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGatewayID(t *testing.T) {
	g := GatewayTopics{Prefix: "site/tuya"}
	tests := []struct {
		topic   string
		gateway string
		kind    string
		ok      bool
	}{
		{"site/tuya/gw1/change", "gw1", "change", true},
		{"site/tuya/gw1/result", "gw1", "result", true},
		{"tuya/gw1/change", "", "", false},
		{"site/tuya/change", "", "", false},
		{"site/tuya/gw1/", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.topic, func(t *testing.T) {
			gw, kind, ok := g.GatewayID(tt.topic)
			if gw != tt.gateway || kind != tt.kind || ok != tt.ok {
				t.Errorf("GatewayID(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.topic, gw, kind, ok, tt.gateway, tt.kind, tt.ok)
			}
		})
	}
}

func TestAddressFromTopic(t *testing.T) {
	if got := AddressFromTopic("graylogic/command/tuya/ac-living"); got != "ac-living" {
		t.Errorf("AddressFromTopic() = %q, want %q", got, "ac-living")
	}
	if got := AddressFromTopic("plain"); got != "plain" {
		t.Errorf("AddressFromTopic() = %q, want %q", got, "plain")
	}
}

// =============================================================================
// Option and Payload Tests
// =============================================================================

func TestBuildClientOptions(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "bridge"
	cfg.Auth.Password = "secret"

	opts := buildClientOptions(cfg)

	if len(opts.Servers) != 1 || opts.Servers[0].String() != "tcp://127.0.0.1:1883" {
		t.Errorf("Servers = %v, want [tcp://127.0.0.1:1883]", opts.Servers)
	}
	if opts.ClientID != cfg.Broker.ClientID {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, cfg.Broker.ClientID)
	}
	if opts.Username != "bridge" || opts.Password != "secret" {
		t.Errorf("credentials = %q/%q, want bridge/secret", opts.Username, opts.Password)
	}
	if !opts.AutoReconnect {
		t.Error("AutoReconnect = false, want true")
	}
	if opts.TLSConfig != nil {
		t.Error("TLSConfig set without TLS enabled")
	}
}

func TestBuildClientOptionsTLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	cfg.Broker.Port = 8883

	opts := buildClientOptions(cfg)

	if got := opts.Servers[0].String(); got != "ssl://127.0.0.1:8883" {
		t.Errorf("broker = %q, want ssl://127.0.0.1:8883", got)
	}
	if opts.TLSConfig == nil || opts.TLSConfig.MinVersion != tlsMinVersion {
		t.Error("TLSConfig missing or below minimum version")
	}
}

func TestConfigureLWT(t *testing.T) {
	opts := buildClientOptions(testConfig())
	configureLWT(opts, "graylogic-tuya-test")

	if !opts.WillEnabled {
		t.Fatal("WillEnabled = false, want true")
	}
	if opts.WillTopic != "graylogic/health/tuya" {
		t.Errorf("WillTopic = %q, want graylogic/health/tuya", opts.WillTopic)
	}
	if !opts.WillRetained {
		t.Error("WillRetained = false, want true")
	}

	var msg map[string]any
	if err := json.Unmarshal(opts.WillPayload, &msg); err != nil {
		t.Fatalf("will payload is not JSON: %v", err)
	}
	if msg["status"] != "offline" || msg["reason"] != "unexpected_disconnect" || msg["bridge"] != Protocol {
		t.Errorf("will payload = %v", msg)
	}
}

func TestStatusPayloads(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantStatus string
		wantReason bool
	}{
		{"online", buildOnlinePayload("c1"), "online", false},
		{"offline", buildOfflinePayload("c1"), "offline", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg map[string]any
			if err := json.Unmarshal([]byte(tt.payload), &msg); err != nil {
				t.Fatalf("payload is not JSON: %v", err)
			}
			if msg["status"] != tt.wantStatus {
				t.Errorf("status = %v, want %s", msg["status"], tt.wantStatus)
			}
			if msg["client_id"] != "c1" {
				t.Errorf("client_id = %v, want c1", msg["client_id"])
			}
			if _, has := msg["reason"]; has != tt.wantReason {
				t.Errorf("reason present = %v, want %v", has, tt.wantReason)
			}
		})
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestPublishValidation(t *testing.T) {
	c := offlineClient()
	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		wantErr error
	}{
		{"empty topic", "", []byte("x"), 1, ErrInvalidTopic},
		{"invalid qos", "t", []byte("x"), 3, ErrInvalidQoS},
		{"oversize", "t", make([]byte, maxPayloadSize+1), 1, ErrPublishFailed},
		{"disconnected", "t", []byte("x"), 1, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Publish() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSubscribeValidation(t *testing.T) {
	c := offlineClient()
	noop := func(string, []byte) error { return nil }
	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		wantErr error
	}{
		{"empty topic", "", 1, noop, ErrInvalidTopic},
		{"invalid qos", "t", 3, noop, ErrInvalidQoS},
		{"nil handler", "t", 1, nil, ErrSubscribeFailed},
		{"disconnected", "t", 1, noop, ErrNotConnected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
	if len(c.subscriptions) != 0 {
		t.Errorf("tracked subscriptions = %d, want 0", len(c.subscriptions))
	}
}

func TestUnsubscribeValidation(t *testing.T) {
	c := offlineClient()
	if err := c.Unsubscribe(""); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Unsubscribe(\"\") error = %v, want ErrInvalidTopic", err)
	}
	if err := c.Unsubscribe("t"); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribeOfflineForgetsTopic(t *testing.T) {
	c := offlineClient()
	c.subscriptions["tuya/gw1/state"] = subscription{topic: "tuya/gw1/state", qos: 1}

	if err := c.Unsubscribe("tuya/gw1/state"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
	if _, ok := c.subscriptions["tuya/gw1/state"]; ok {
		t.Error("topic still tracked after offline Unsubscribe()")
	}
}

func TestSubscribeFailureIsNotTracked(t *testing.T) {
	fake := &fakePaho{subscribeErr: errors.New("not authorized")}
	c := offlineClient()
	c.client = fake
	c.connected = true

	err := c.Subscribe("tuya/gw1/change", 1, func(string, []byte) error { return nil })
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Fatalf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
	if len(c.subscriptions) != 0 {
		t.Errorf("tracked subscriptions = %d, want 0", len(c.subscriptions))
	}
}

func TestCloseNil(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestAwait(t *testing.T) {
	brokerErr := errors.New("not authorized")
	tests := []struct {
		name    string
		token   *fakeToken
		wantErr error
	}{
		{"completed", &fakeToken{}, nil},
		{"timeout", &fakeToken{timeout: true}, ErrPublishFailed},
		{"broker error", &fakeToken{err: brokerErr}, brokerErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := await(tt.token, ErrPublishFailed, time.Millisecond)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("await() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) || !errors.Is(err, ErrPublishFailed) {
				t.Errorf("await() error = %v, want %v wrapped in ErrPublishFailed", err, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// Handler Wrapping Tests
// =============================================================================

func TestWrapHandlerDelivers(t *testing.T) {
	c := offlineClient()
	var gotTopic, gotPayload string
	h := c.wrapHandler(func(topic string, payload []byte) error {
		gotTopic, gotPayload = topic, string(payload)
		return nil
	})

	h(nil, fakeMessage{topic: "tuya/gw1/change", payload: []byte(`{"dps":{"2":230}}`)})

	if gotTopic != "tuya/gw1/change" || !strings.Contains(gotPayload, `"2":230`) {
		t.Errorf("handler got (%q, %q)", gotTopic, gotPayload)
	}
}

func TestWrapHandlerLogsError(t *testing.T) {
	c := offlineClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { return errors.New("bad payload") })
	h(nil, fakeMessage{topic: "t"})

	if len(logger.warns) != 1 {
		t.Errorf("warns = %v, want one entry", logger.warns)
	}
}

func TestWrapHandlerRecoversPanic(t *testing.T) {
	c := offlineClient()
	logger := &recordingLogger{}
	c.SetLogger(logger)

	h := c.wrapHandler(func(string, []byte) error { panic("boom") })
	h(nil, fakeMessage{topic: "t"})

	if len(logger.errors) != 1 {
		t.Errorf("errors = %v, want one panic entry", logger.errors)
	}
}

func TestWrapHandlerWithoutLogger(t *testing.T) {
	c := offlineClient()
	h := c.wrapHandler(func(string, []byte) error { panic("boom") })
	h(nil, fakeMessage{topic: "t"}) // must not propagate
}

func TestCallbacks(t *testing.T) {
	c := offlineClient()
	var connected, disconnected bool
	c.SetOnReconnect(func() { connected = true })
	c.SetOnDisconnect(func(error) { disconnected = true })

	c.handleDisconnect(errors.New("lost"))

	if !disconnected {
		t.Error("OnDisconnect callback not invoked")
	}
	if connected {
		t.Error("OnReconnect callback invoked on disconnect")
	}
	if c.IsConnected() {
		t.Error("IsConnected() = true after disconnect")
	}
}

// =============================================================================
// Reconnect Tests
// =============================================================================

func TestReconnectRestoresSubscriptionsBeforeHook(t *testing.T) {
	fake := &fakePaho{}
	c := offlineClient()
	c.client = fake
	noop := func(string, []byte) error { return nil }
	for _, topic := range []string{"tuya/gw1/state", "tuya/gw1/result", "graylogic/command/tuya/+"} {
		c.subscriptions[topic] = subscription{topic: topic, qos: 1, handler: noop}
	}

	hooks := 0
	subscribedAtHook := 0
	c.SetOnReconnect(func() {
		hooks++
		subscribedAtHook = fake.subscribeCount()
	})

	c.handleConnect()
	if hooks != 0 {
		t.Fatalf("reconnect hook ran %d times on initial connect", hooks)
	}

	c.handleDisconnect(errors.New("connection reset"))
	c.handleConnect()

	if hooks != 1 {
		t.Fatalf("reconnect hook ran %d times, want 1", hooks)
	}
	if subscribedAtHook != 6 {
		t.Errorf("subscriptions at hook time = %d, want 6", subscribedAtHook)
	}
	if !c.IsConnected() {
		t.Error("IsConnected() = false after reconnect")
	}

	health := Topics{}.BridgeHealth(Protocol)
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if len(fake.published) != 2 || fake.published[1] != health {
		t.Errorf("published = %v, want online status on %s per connect", fake.published, health)
	}
}

func TestReconnectHookRunsWhenResubscribeFails(t *testing.T) {
	fake := &fakePaho{subscribeErr: errors.New("not authorized")}
	c := offlineClient()
	c.client = fake
	c.connects = 1
	logger := &recordingLogger{}
	c.SetLogger(logger)
	c.subscriptions["tuya/gw1/state"] = subscription{topic: "tuya/gw1/state", qos: 1, handler: func(string, []byte) error { return nil }}

	ran := false
	c.SetOnReconnect(func() { ran = true })
	c.handleConnect()

	if !ran {
		t.Error("reconnect hook did not run")
	}
	if len(logger.errors) != 1 || logger.errors[0] != "MQTT resubscribe failed" {
		t.Errorf("errors = %v, want one resubscribe failure", logger.errors)
	}
}
