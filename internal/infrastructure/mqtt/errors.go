package mqtt

import "errors"

// Errors returned by Client. Operation failures wrap one of these with the
// broker's reason, so callers match with errors.Is.
var (
	// ErrNotConnected means the broker link is down; the bridge keeps
	// running and paho keeps reconnecting.
	ErrNotConnected = errors.New("mqtt: client not connected")

	// ErrConnectionFailed means the initial connect did not succeed.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	ErrPublishFailed     = errors.New("mqtt: publish failed")
	ErrSubscribeFailed   = errors.New("mqtt: subscribe failed")
	ErrUnsubscribeFailed = errors.New("mqtt: unsubscribe failed")

	// ErrInvalidQoS rejects QoS above 2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level (must be 0, 1, or 2)")

	// ErrInvalidTopic rejects an empty topic.
	ErrInvalidTopic = errors.New("mqtt: topic cannot be empty")
)
