package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/config"
)

// Client is the bridge's connection to the broker that carries both the
// Tuya gateway topics and the bridge's own command, state and health topics.
//
// On every reconnect the client re-subscribes the gateway and command
// topics, republishes the bridge's online status and then runs the
// reconnect hook, in that order. The hook is where the bridge asks each
// gateway for a fresh state: gateway change messages published while the
// bridge was offline are not retained and would otherwise be lost.
//
// All methods are safe for concurrent use.
type Client struct {
	client pahomqtt.Client
	cfg    config.MQTTConfig

	subscriptions map[string]subscription
	subMu         sync.RWMutex

	connected bool
	connects  int // OnConnect events seen; the first is the initial connect
	connMu    sync.RWMutex

	onReconnect  func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	logger   Logger
	loggerMu sync.RWMutex
}

// Logger is satisfied by logging.Logger.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler receives one gateway or command message. paho runs it on
// its own goroutine; a returned error is logged and the message is still
// acknowledged.
type MessageHandler func(topic string, payload []byte) error

// Connect dials the broker with the configured credentials and TLS, sets
// the bridge's Last Will on the health topic and waits for the first
// connection. paho reconnects on its own afterwards.
//
// Parameters:
//   - cfg: MQTT section of config.yaml
//
// Returns:
//   - *Client: connected client
//   - error: ErrConnectionFailed if the broker does not accept in time
func Connect(cfg config.MQTTConfig) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, cfg.Broker.ClientID)

	c := &Client{
		cfg:           cfg,
		subscriptions: make(map[string]subscription),
	}

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})
	opts.SetReconnectingHandler(func(_ pahomqtt.Client, _ *pahomqtt.ClientOptions) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT reconnecting", "broker", cfg.Broker.Host)
		}
	})

	c.client = pahomqtt.NewClient(opts)
	if err := await(c.client.Connect(), ErrConnectionFailed, defaultConnectTimeout); err != nil {
		return nil, err
	}

	// OnConnect runs asynchronously; IsConnected must hold once Connect returns.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// handleConnect runs on paho's OnConnect goroutine, so it may wait on tokens.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connects++
	reconnect := c.connects > 1
	c.connMu.Unlock()

	c.restoreSubscriptions()
	c.publishStatus([]byte(buildOnlinePayload(c.cfg.Broker.ClientID)))

	if !reconnect {
		return
	}

	c.callbackMu.RLock()
	callback := c.onReconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-subscribes every tracked topic. The session is
// clean, so the broker forgets them on disconnect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	subs := make([]subscription, 0, len(c.subscriptions))
	for _, sub := range c.subscriptions {
		subs = append(subs, sub)
	}
	c.subMu.RUnlock()

	logger := c.getLogger()
	restored := 0
	for _, sub := range subs {
		token := c.client.Subscribe(sub.topic, sub.qos, c.wrapHandler(sub.handler))
		if err := await(token, ErrSubscribeFailed, defaultPublishTimeout); err != nil {
			if logger != nil {
				logger.Error("MQTT resubscribe failed", "topic", sub.topic, "error", err)
			}
			continue
		}
		restored++
	}
	if logger != nil {
		logger.Info("MQTT subscriptions restored", "restored", restored, "total", len(subs))
	}
}

// publishStatus publishes a retained bridge health payload without waiting.
func (c *Client) publishStatus(payload []byte) pahomqtt.Token {
	return c.client.Publish(Topics{}.BridgeHealth(Protocol), byte(c.cfg.QoS), true, payload)
}

// Close publishes a graceful offline status, which unlike the Last Will
// tells the core the bridge stopped on purpose, and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		c.publishStatus([]byte(buildOfflinePayload(c.cfg.Broker.ClientID))).WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// SetOnReconnect sets the hook run after a lost connection comes back and
// subscriptions are restored. It is not run for the initial connect.
func (c *Client) SetOnReconnect(callback func()) {
	c.callbackMu.Lock()
	c.onReconnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets the hook run when the connection is lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets the logger for handler failures and reconnect progress.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// wrapHandler adapts a MessageHandler to paho. Returned errors are logged
// and panics are recovered.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				if logger := c.getLogger(); logger != nil {
					logger.Error("MQTT handler panic recovered", "topic", msg.Topic(), "panic", r)
				}
			}
		}()

		if err := handler(msg.Topic(), msg.Payload()); err != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT handler returned error", "topic", msg.Topic(), "error", err)
			}
		}
	}
}

// await waits for token and wraps a timeout or broker error in kind.
func await(token pahomqtt.Token, kind error, timeout time.Duration) error {
	if !token.WaitTimeout(timeout) {
		return fmt.Errorf("%w: no broker response after %v", kind, timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", kind, err)
	}
	return nil
}
