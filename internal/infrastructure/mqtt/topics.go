package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes.
//
// Gray Logic topics use the flat scheme graylogic/{category}/{protocol}/{address},
// shared with every other Gray Logic bridge. Gateway topics belong to the
// Tuya DP gateway and live under a configurable prefix (default "tuya").
const (
	// TopicPrefixBridge is the base for all Gray Logic bridge topics.
	TopicPrefixBridge = "graylogic"

	// Protocol is the protocol segment this bridge publishes under.
	Protocol = "tuya"

	// DefaultGatewayPrefix is the default base for gateway topics.
	DefaultGatewayPrefix = "tuya"
)

// Topics provides builders for Gray Logic MQTT topics.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState(mqtt.Protocol, "ac-living")
//	// Returns: "graylogic/state/tuya/ac-living"
type Topics struct{}

// BridgeState returns the topic for device property state.
//
// Example: graylogic/state/tuya/ac-living
func (Topics) BridgeState(protocol, address string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeCommand returns the topic for commands to a device.
//
// Example: graylogic/command/tuya/ac-living
func (Topics) BridgeCommand(protocol, address string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, address)
}

// AllBridgeCommands returns the wildcard covering every command for a protocol.
//
// Example: graylogic/command/tuya/+
func (Topics) AllBridgeCommands(protocol string) string {
	return fmt.Sprintf("%s/command/%s/+", TopicPrefixBridge, protocol)
}

// BridgeAck returns the topic for command acknowledgements.
//
// Example: graylogic/ack/tuya/ac-living
func (Topics) BridgeAck(protocol, address string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, address)
}

// BridgeHealth returns the topic for bridge health status. It doubles as
// the Last Will topic.
//
// Example: graylogic/health/tuya
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// BridgeExposed returns the topic carrying a device's exposed-properties
// declaration.
//
// Example: graylogic/tuya/ac-living/exposed
func (Topics) BridgeExposed(protocol, address string) string {
	return fmt.Sprintf("%s/%s/%s/exposed", TopicPrefixBridge, protocol, address)
}

// AddressFromTopic returns the last segment of a topic, which is the device
// address for every per-device topic above.
func AddressFromTopic(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// GatewayTopics builds topics for a Tuya DP gateway.
//
//	g := mqtt.GatewayTopics{Prefix: "tuya"}
//	g.Set("bf12ab") // "tuya/bf12ab/set"
type GatewayTopics struct {
	Prefix string
}

func (g GatewayTopics) prefix() string {
	if g.Prefix == "" {
		return DefaultGatewayPrefix
	}
	return strings.TrimSuffix(g.Prefix, "/")
}

// State returns the retained full-snapshot topic for a gateway.
func (g GatewayTopics) State(gatewayID string) string {
	return fmt.Sprintf("%s/%s/state", g.prefix(), gatewayID)
}

// Change returns the delta topic for a gateway.
func (g GatewayTopics) Change(gatewayID string) string {
	return fmt.Sprintf("%s/%s/change", g.prefix(), gatewayID)
}

// Set returns the outbound write topic for a gateway.
func (g GatewayTopics) Set(gatewayID string) string {
	return fmt.Sprintf("%s/%s/set", g.prefix(), gatewayID)
}

// Result returns the write-result topic for a gateway.
func (g GatewayTopics) Result(gatewayID string) string {
	return fmt.Sprintf("%s/%s/result", g.prefix(), gatewayID)
}

// Get returns the snapshot refresh request topic for a gateway.
func (g GatewayTopics) Get(gatewayID string) string {
	return fmt.Sprintf("%s/%s/get", g.prefix(), gatewayID)
}

// GatewayID extracts the gateway id and the trailing segment from a gateway
// topic. ok is false when topic is not under this prefix.
func (g GatewayTopics) GatewayID(topic string) (gatewayID, kind string, ok bool) {
	rest, found := strings.CutPrefix(topic, g.prefix()+"/")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return "", "", false
	}
	return rest[:i], rest[i+1:], true
}
