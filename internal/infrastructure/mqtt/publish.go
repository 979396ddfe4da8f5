package mqtt

import "fmt"

// maxPayloadSize caps a single publish. Gateway writes and property state
// are a few hundred bytes; anything near this is a bug upstream.
const maxPayloadSize = 1 << 20

// Publish sends payload and waits for the broker to accept it.
//
// The bridge retains property state, exposed declarations and health, and
// never retains gateway get/set requests or command acks: a retained set
// would be replayed to the gateway after its next restart.
//
// Parameters:
//   - topic: e.g. GatewayTopics{}.Set("bf12ab") or Topics{}.BridgeState(...)
//   - payload: JSON body, at most 1 MiB
//   - qos: 0, 1 or 2
//   - retained: whether the broker keeps the message for new subscribers
//
// Returns:
//   - error: ErrNotConnected while offline, otherwise ErrPublishFailed
//     wrapping the reason
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	return await(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed, defaultPublishTimeout)
}
