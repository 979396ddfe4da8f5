// Package api implements the bridge's HTTP REST API and WebSocket stream.
//
// This package provides:
//   - REST endpoints to list devices and read or write their properties
//   - Property history and stored DP snapshots from the history repository
//   - The Prometheus scrape endpoint
//   - A WebSocket hub that relays property changes as they are published
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Architecture
//
// Writes go straight to the owning sync engine through the Bridge
// interface and return once the gateway has acknowledged them. The hub is a
// syncengine.PropertySink registered with the bridge's state publisher, so
// WebSocket clients see exactly what is published on MQTT.
//
// # Error Mapping
//
// Engine and gateway errors are mapped to HTTP statuses:
//
//	unknown device                     404 not_found
//	invalid, read-only, disabled value 400 validation_error
//	gateway ack timeout                504 timeout
//	broker down, gateway error         503 service_unavailable
//
// # Graceful Degradation
//
// History endpoints answer 503 when no history repository is configured;
// everything else works without it.
package api
