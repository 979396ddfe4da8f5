package tuya

import "errors"

// Domain errors for the Tuya bridge package.
var (
	// ErrUnknownDevice is returned for a device id not in the devices file.
	ErrUnknownDevice = errors.New("tuya: unknown device")

	// ErrAckTimeout is returned when the gateway does not report a write
	// result within the ack timeout.
	ErrAckTimeout = errors.New("tuya: gateway ack timeout")

	// ErrGateway is returned when the gateway rejects a write or never
	// reports state.
	ErrGateway = errors.New("tuya: gateway error")

	// ErrNotConnected is returned when a write is attempted while the MQTT
	// connection is down.
	ErrNotConnected = errors.New("tuya: not connected to broker")

	// ErrInvalidConfig is returned when the devices file fails validation.
	ErrInvalidConfig = errors.New("tuya: invalid devices configuration")

	// ErrInvalidCommand is returned for a malformed Gray Logic command.
	ErrInvalidCommand = errors.New("tuya: invalid command")
)
