package influxdb

import "errors"

// Sentinel errors for InfluxDB operations.
var (
	// ErrNotConnected indicates the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps asynchronous batch write failures passed to the
	// SetOnError callback.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrDisabled indicates InfluxDB is disabled in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
