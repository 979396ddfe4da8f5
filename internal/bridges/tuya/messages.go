package tuya

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-tuya/internal/climate/accessory"
	"github.com/nerrad567/gray-logic-tuya/internal/climate/dp"
	"github.com/nerrad567/gray-logic-tuya/internal/infrastructure/mqtt"
)

// Gateway payloads.

// DPMessage carries DP values on the state and change topics.
//
//	{"dps":{"1":true,"2":220}}
type DPMessage struct {
	DPS map[string]any `json:"dps"`
}

// SetRequest is published on the set topic.
type SetRequest struct {
	RequestID string         `json:"request_id"`
	DPS       map[string]any `json:"dps"`
}

// SetResult is the gateway's answer to a SetRequest.
type SetResult struct {
	RequestID string `json:"request_id"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
}

// GetRequest asks the gateway to republish its full state.
type GetRequest struct {
	RequestID string `json:"request_id"`
}

// parseDPMessage decodes a state or change payload. Numbers are kept as
// float64, matching how the climate packages coerce values.
func parseDPMessage(payload []byte) (dp.Snapshot, error) {
	var msg DPMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("parsing dp message: %w", err)
	}
	if msg.DPS == nil {
		return nil, fmt.Errorf("parsing dp message: missing dps")
	}
	return dp.Snapshot(msg.DPS), nil
}

// Gray Logic payloads.

// CommandMessage is sent by Gray Logic Core to change device properties.
// Topic: graylogic/command/tuya/{device_id}
//
// Either Property with Value, or Properties, must be set:
//
//	{"id":"c1","property":"target_temperature","value":22}
//	{"id":"c2","properties":{"active":true,"target_state":"cool"}}
type CommandMessage struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp,omitempty"`
	DeviceID   string         `json:"device_id,omitempty"`
	Property   string         `json:"property,omitempty"`
	Value      any            `json:"value,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`
	Source     string         `json:"source,omitempty"`
}

// Values converts the command into a property map.
func (c CommandMessage) Values() (accessory.Values, error) {
	if c.Property != "" && len(c.Properties) > 0 {
		return nil, fmt.Errorf("%w: both property and properties set", ErrInvalidCommand)
	}
	raw := c.Properties
	if c.Property != "" {
		raw = map[string]any{c.Property: c.Value}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: no property given", ErrInvalidCommand)
	}

	values := make(accessory.Values, len(raw))
	for name, v := range raw {
		p, ok := accessory.ParseProperty(name)
		if !ok {
			return nil, fmt.Errorf("%w: %q", accessory.ErrUnknownProperty, name)
		}
		values[p] = v
	}
	return values, nil
}

// AckStatus is the outcome reported for a command.
type AckStatus string

// Ack statuses.
const (
	AckAccepted AckStatus = "accepted"
	AckFailed   AckStatus = "failed"
	AckTimeout  AckStatus = "timeout"
)

// AckMessage acknowledges a command.
// Topic: graylogic/ack/tuya/{device_id}
type AckMessage struct {
	CommandID string    `json:"command_id"`
	Timestamp time.Time `json:"timestamp"`
	DeviceID  string    `json:"device_id"`
	Status    AckStatus `json:"status"`
	Protocol  string    `json:"protocol"`
	Error     *AckError `json:"error,omitempty"`
}

// AckError details a failed command.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes for failed commands.
const (
	ErrCodeNotConfigured     = "NOT_CONFIGURED"
	ErrCodeInvalidCommand    = "INVALID_COMMAND"
	ErrCodeInvalidParameters = "INVALID_PARAMETERS"
	ErrCodeDeviceUnreachable = "DEVICE_UNREACHABLE"
	ErrCodeTimeout           = "TIMEOUT"
	ErrCodeBridgeError       = "BRIDGE_ERROR"
)

// StateMessage carries property state.
// Topic: graylogic/state/tuya/{device_id} (QoS 1, retained)
type StateMessage struct {
	DeviceID  string         `json:"device_id"`
	Timestamp time.Time      `json:"timestamp"`
	Protocol  string         `json:"protocol"`
	Changed   map[string]any `json:"changed"`
	State     map[string]any `json:"state"`
}

// ExposedMessage carries a device's exposed-properties declaration.
// Topic: graylogic/tuya/{device_id}/exposed (QoS 1, retained)
type ExposedMessage struct {
	DeviceID       string                   `json:"device_id"`
	Name           string                   `json:"name"`
	Representation accessory.Representation `json:"representation"`
	Timestamp      time.Time                `json:"timestamp"`
	Exposed        []accessory.Exposure     `json:"exposed"`
}

// HealthStatus is the bridge's operational status.
type HealthStatus string

// Health statuses.
const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthStarting HealthStatus = "starting"
	HealthStopping HealthStatus = "stopping"
)

// HealthMessage reports bridge status.
// Topic: graylogic/health/tuya (QoS 1, retained)
type HealthMessage struct {
	Bridge         string       `json:"bridge"`
	BridgeID       string       `json:"bridge_id"`
	Timestamp      time.Time    `json:"timestamp"`
	Status         HealthStatus `json:"status"`
	Version        string       `json:"version"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	DevicesManaged int          `json:"devices_managed"`
	EnginesStarted int          `json:"engines_started"`
	Reason         string       `json:"reason,omitempty"`
}

func newAck(cmd CommandMessage, deviceID string, status AckStatus) AckMessage {
	return AckMessage{
		CommandID: cmd.ID,
		Timestamp: time.Now().UTC(),
		DeviceID:  deviceID,
		Status:    status,
		Protocol:  mqtt.Protocol,
	}
}
