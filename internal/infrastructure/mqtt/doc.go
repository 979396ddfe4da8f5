// Package mqtt provides MQTT client connectivity for the Tuya bridge.
//
// The broker carries two families of topics:
//
//	Tuya DP gateway ↔ broker ↔ tuyabridge ↔ broker ↔ Gray Logic Core
//
// Gateway topics (GatewayTopics) hold raw DP snapshots, deltas, writes and
// write results. Gray Logic topics (Topics) hold the translated property
// state, commands, acks, health and exposed-properties declarations.
//
// # Connection
//
// Connect configures auto-reconnect with backoff and a retained Last Will on
// graylogic/health/tuya. Subscriptions are tracked and restored after every
// reconnect. Handlers run on paho goroutines with panic recovery; an error
// returned by a handler is logged at warn level when a logger is set.
//
// # Security Considerations
//
//   - Enable TLS (cfg.Broker.TLS) whenever the broker is not on localhost
//   - Credentials are checked against the broker ACL
//   - Payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	g := mqtt.GatewayTopics{Prefix: cfg.Tuya.TopicPrefix}
//	err = client.Subscribe(g.Change("bf12ab"), 1, func(topic string, payload []byte) error {
//	    return handleDelta(payload)
//	})
package mqtt
