// Package tuya implements the Tuya air-conditioner bridge for Gray Logic.
//
// The bridge hosts one sync engine per configured device. Each engine reads
// and writes Tuya data points (DPs) through a Gateway that speaks a small
// JSON protocol over MQTT, and publishes the derived climate properties on
// the Gray Logic topic tree.
//
// # Architecture
//
//	┌─────────────────┐          ┌─────────────────┐          ┌──────────────┐
//	│   Gray Logic    │   MQTT   │   Tuya Bridge   │   MQTT   │  DP gateway  │
//	│      Core       │◄────────►│   (this pkg)    │◄────────►│  (per device)│
//	└─────────────────┘          └─────────────────┘          └──────────────┘
//
// # Gateway Protocol
//
// Under the configurable prefix (default "tuya"):
//
//	tuya/{gateway_id}/state   {"dps":{...}}                 full snapshot
//	tuya/{gateway_id}/change  {"dps":{...}}                 delta
//	tuya/{gateway_id}/set     {"request_id":"..","dps":{}}  write
//	tuya/{gateway_id}/result  {"request_id":"..","success":true}
//	tuya/{gateway_id}/get     {"request_id":".."}           refresh request
//
// A write waits for its result until the ack timeout and fails with
// ErrAckTimeout otherwise.
//
// # Gray Logic Topics
//
//   - graylogic/state/tuya/{device_id}: property state (retained)
//   - graylogic/command/tuya/{device_id}: property writes
//   - graylogic/ack/tuya/{device_id}: command acknowledgements
//   - graylogic/tuya/{device_id}/exposed: exposed-properties declaration (retained)
//   - graylogic/health/tuya: bridge health and Last Will
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package tuya
