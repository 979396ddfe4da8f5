package mqtt

import "fmt"

// Subscribe registers handler for topic and remembers it so the
// subscription is restored after a reconnect. topic may use wildcards, as
// the bridge does for its command topic (graylogic/command/tuya/+).
//
// A failed subscribe is forgotten again, so it is not retried on reconnect.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	c.subMu.Lock()
	c.subscriptions[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.subMu.Unlock()

	if err := await(c.client.Subscribe(topic, qos, c.wrapHandler(handler)), ErrSubscribeFailed, defaultPublishTimeout); err != nil {
		c.subMu.Lock()
		delete(c.subscriptions, topic)
		c.subMu.Unlock()
		return err
	}
	return nil
}

// Unsubscribe drops topic from the broker and from the restore set. The
// restore set is updated even when the broker is unreachable, so a gateway
// stopped while offline is not re-subscribed later.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.subMu.Lock()
	delete(c.subscriptions, topic)
	c.subMu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	return await(c.client.Unsubscribe(topic), ErrUnsubscribeFailed, defaultPublishTimeout)
}
